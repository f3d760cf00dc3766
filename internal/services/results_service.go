package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/export"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

// exportRowLimit caps one workbook; the screen filters further.
const exportRowLimit = 10000

type resultsService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewResultsService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ResultsService {
	return &resultsService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

func (s *resultsService) FilterOptions(ctx context.Context) (*repositories.ResultFilterOptions, error) {
	return s.repo.Results().FilterOptions(ctx, nil)
}

func (s *resultsService) List(ctx context.Context, filters repositories.ResultFilters) (*ResultListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	rows, total, err := s.repo.Results().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	return &ResultListResponse{
		Results: rows,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

func (s *resultsService) Export(ctx context.Context, filters repositories.ResultFilters) ([]byte, string, error) {
	s.logger.Info("Exporting results", "test_id", filters.TestID, "version_id", filters.VersionID, "period_id", filters.PeriodID)

	filters.Limit = exportRowLimit
	filters.Offset = 0

	rows, _, err := s.repo.Results().List(ctx, nil, filters)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list results: %w", err)
	}

	questions, err := s.exportQuestions(ctx, filters)
	if err != nil {
		return nil, "", err
	}

	var answers map[uint]map[uint]*models.TestAnswer
	if len(questions) > 0 && len(rows) > 0 {
		assignmentIDs := make([]uint, len(rows))
		for i, row := range rows {
			assignmentIDs[i] = row.AssignmentID
		}
		answers, err = s.repo.Results().AnswersFor(ctx, nil, assignmentIDs)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load answers: %w", err)
		}
	}

	data, err := export.WriteResults(&export.ResultsWorkbook{
		Rows:      rows,
		Questions: questions,
		Answers:   answers,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to build workbook: %w", err)
	}

	filename := fmt.Sprintf("results_%s.xlsx", time.Now().Format("20060102_150405"))
	s.logger.Info("Results exported", "rows", len(rows), "questions", len(questions), "filename", filename)
	return data, filename, nil
}

// exportQuestions resolves the per-question columns. Only a filter pinned
// to one version (directly or through a test) gets answer columns; a
// cross-version export sticks to the student fields.
func (s *resultsService) exportQuestions(ctx context.Context, filters repositories.ResultFilters) ([]*models.Question, error) {
	versionID := uint(0)
	switch {
	case filters.TestID != nil:
		test, err := s.repo.Test().GetByID(ctx, nil, *filters.TestID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTestNotFound
			}
			return nil, fmt.Errorf("failed to get test: %w", err)
		}
		versionID = test.VersionID
	case filters.VersionID != nil:
		versionID = *filters.VersionID
	default:
		return nil, nil
	}

	tree, err := s.repo.Question().ListTree(ctx, nil, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question tree: %w", err)
	}

	// Flatten to answerable questions, children in place of their parent.
	flat := make([]*models.Question, 0, len(tree))
	for _, root := range tree {
		if root.Type == models.TypeGrouped {
			for i := range root.Children {
				flat = append(flat, &root.Children[i])
			}
			continue
		}
		flat = append(flat, root)
	}
	return flat, nil
}
