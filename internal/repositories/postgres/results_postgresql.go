package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

type resultsRepository struct {
	db *gorm.DB
}

func NewResultsRepository(db *gorm.DB) repositories.ResultsRepository {
	return &resultsRepository{db: db}
}

func (r *resultsRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// FilterOptions loads the distinct tests, versions and periods that have
// at least one completed assignment, for the results screen's dropdowns.
func (r *resultsRepository) FilterOptions(ctx context.Context, tx *gorm.DB) (*repositories.ResultFilterOptions, error) {
	db := r.getDB(tx)
	options := &repositories.ResultFilterOptions{}

	err := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id IN (?)", db.Model(&models.TestAssignment{}).
			Select("test_id").
			Where("completed = ?", true)).
		Order("name ASC").
		Find(&options.Tests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load test filter options: %w", err)
	}

	err = db.WithContext(ctx).
		Model(&models.TemplateVersion{}).
		Where("id IN (?)", db.Model(&models.Test{}).Select("version_id")).
		Order("version DESC").
		Find(&options.Versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load version filter options: %w", err)
	}

	err = db.WithContext(ctx).
		Model(&models.Period{}).
		Where("id IN (?)", db.Model(&models.Test{}).Select("period_id")).
		Order("start_date DESC").
		Find(&options.Periods).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load period filter options: %w", err)
	}

	return options, nil
}

func (r *resultsRepository) baseQuery(ctx context.Context, db *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	query := db.WithContext(ctx).
		Model(&models.TestAssignment{}).
		Joins("JOIN tests ON tests.id = test_assignments.test_id").
		Joins("JOIN students ON students.id = test_assignments.student_id").
		Joins("JOIN template_versions ON template_versions.id = tests.version_id").
		Joins("JOIN periods ON periods.id = tests.period_id").
		Where("test_assignments.completed = ?", true)

	if filters.TestID != nil {
		query = query.Where("tests.id = ?", *filters.TestID)
	}
	if filters.VersionID != nil {
		query = query.Where("tests.version_id = ?", *filters.VersionID)
	}
	if filters.PeriodID != nil {
		query = query.Where("tests.period_id = ?", *filters.PeriodID)
	}
	if filters.Search != nil && *filters.Search != "" {
		like := "%" + *filters.Search + "%"
		query = query.Where(
			"students.first_name ILIKE ? OR students.last_name ILIKE ? OR students.document_id ILIKE ?",
			like, like, like)
	}
	if filters.DateFrom != nil {
		query = query.Where("test_assignments.completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("test_assignments.completed_at <= ?", *filters.DateTo)
	}

	return query
}

func (r *resultsRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*repositories.ResultRow, int64, error) {
	db := r.getDB(tx)

	var total int64
	if err := r.baseQuery(ctx, db, filters).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	query := r.baseQuery(ctx, db, filters).
		Select(`test_assignments.id AS assignment_id,
			students.first_name || ' ' || students.last_name AS student_name,
			students.document_id,
			students.email,
			tests.name AS test_name,
			periods.name AS period_name,
			template_versions.version,
			test_assignments.completed_at`).
		Order("test_assignments.completed_at DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []*repositories.ResultRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}

	return rows, total, nil
}

func (r *resultsRepository) AnswersFor(ctx context.Context, tx *gorm.DB, assignmentIDs []uint) (map[uint]map[uint]*models.TestAnswer, error) {
	result := make(map[uint]map[uint]*models.TestAnswer)
	if len(assignmentIDs) == 0 {
		return result, nil
	}

	db := r.getDB(tx)
	var answers []*models.TestAnswer
	err := db.WithContext(ctx).
		Where("assignment_id IN ?", assignmentIDs).
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answers for export: %w", err)
	}

	for _, answer := range answers {
		byQuestion, ok := result[answer.AssignmentID]
		if !ok {
			byQuestion = make(map[uint]*models.TestAnswer)
			result[answer.AssignmentID] = byQuestion
		}
		byQuestion[answer.QuestionID] = answer
	}

	return result, nil
}
