package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/ordering"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, versionID uint, req *CreateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Creating question", "version_id", versionID, "type", req.Type)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var created *models.Question
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		version, err := requireDraftVersion(ctx, r, versionID)
		if err != nil {
			return err
		}

		scope, err := s.resolveCreateScope(ctx, r, version.ID, req)
		if err != nil {
			return err
		}

		if err := validateInlinePayloads(req); err != nil {
			return err
		}

		coll := r.Question().Collection(nil, scope)
		order, err := ordering.InsertAt(ctx, coll, req.Order)
		if err != nil {
			return mapOrderingError(err)
		}

		question := &models.Question{
			VersionID: version.ID,
			ParentID:  scope.ParentID,
			Type:      req.Type,
			Text:      req.Text,
			Section:   req.Section,
			Required:  boolOrDefault(req.Required, true),
			Order:     order,
		}
		if err := r.Question().Create(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}

		if len(req.Options) > 0 {
			if err := s.createInlineOptions(ctx, r, question.ID, req.Options); err != nil {
				return err
			}
		}

		if len(req.Children) > 0 {
			if err := s.createChildren(ctx, r, question, req.Children); err != nil {
				return err
			}
		}

		created, err = r.Question().GetByIDWithDetails(ctx, nil, question.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question created", "question_id", created.ID, "version_id", versionID, "order", created.Order)
	return created, nil
}

func (s *questionService) Get(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*models.Question, error) {
	s.logger.Info("Updating question", "question_id", id)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var updated *models.Question
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		question, err := r.Question().GetByIDWithDetails(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		if _, err := requireDraftVersion(ctx, r, question.VersionID); err != nil {
			return err
		}

		if err := s.applyTypeChange(ctx, r, question, req.Type); err != nil {
			return err
		}

		if req.Text != nil {
			question.Text = *req.Text
		}
		if req.Section != nil {
			question.Section = req.Section
		}
		if req.Required != nil {
			question.Required = *req.Required
		}
		if err := r.Question().Update(ctx, nil, question); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}

		if req.Order != nil {
			coll := r.Question().Collection(nil, scopeOf(question))
			if err := ordering.MoveTo(ctx, coll, question.ID, *req.Order); err != nil {
				return mapOrderingError(err)
			}
		}

		if req.Options != nil {
			if err := s.syncOptions(ctx, r, question, req.Options); err != nil {
				return err
			}
		}

		if req.Children != nil {
			if question.Type != models.TypeGrouped {
				return fmt.Errorf("%w: children are only valid on grouped questions", ErrInvalidPayload)
			}
			if err := s.syncChildren(ctx, r, question, req.Children); err != nil {
				return err
			}
		}

		updated, err = r.Question().GetByIDWithDetails(ctx, nil, question.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question updated", "question_id", id)
	return updated, nil
}

func (s *questionService) Delete(ctx context.Context, id uint) error {
	s.logger.Info("Deleting question", "question_id", id)

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		question, err := r.Question().GetByID(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		if _, err := requireDraftVersion(ctx, r, question.VersionID); err != nil {
			return err
		}

		if err := s.deleteSubtree(ctx, r, question); err != nil {
			return err
		}

		coll := r.Question().Collection(nil, scopeOf(question))
		if err := ordering.Compact(ctx, coll, question.Order); err != nil {
			return mapOrderingError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Question deleted", "question_id", id)
	return nil
}

func (s *questionService) ListTree(ctx context.Context, versionID uint) ([]*models.Question, error) {
	if _, err := s.repo.Version().GetByID(ctx, nil, versionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return s.repo.Question().ListTree(ctx, nil, versionID)
}

func (s *questionService) Reorder(ctx context.Context, versionID uint, req ordering.ReorderRequest) ([]*models.Question, error) {
	s.logger.Info("Reordering questions", "version_id", versionID)

	var roots []*models.Question
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if _, err := requireDraftVersion(ctx, r, versionID); err != nil {
			return err
		}

		coll := r.Question().Collection(nil, repositories.RootScope(versionID))
		if err := ordering.Reorder(ctx, coll, req); err != nil {
			return mapOrderingError(err)
		}

		var err error
		roots, err = r.Question().ListByScope(ctx, nil, repositories.RootScope(versionID))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Questions reordered", "version_id", versionID, "count", len(roots))
	return roots, nil
}

// ===== OPTION OPERATIONS =====

func (s *questionService) CreateOption(ctx context.Context, questionID uint, req *CreateOptionRequest) (*models.QuestionOption, error) {
	s.logger.Info("Creating option", "question_id", questionID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var created *models.QuestionOption
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		question, err := s.requireOptionOwner(ctx, r, questionID)
		if err != nil {
			return err
		}

		coll := r.Option().Collection(nil, question.ID)
		order, err := ordering.InsertAt(ctx, coll, req.Order)
		if err != nil {
			return mapOrderingError(err)
		}

		created = &models.QuestionOption{
			QuestionID: question.ID,
			Label:      req.Label,
			Value:      req.Value,
			Order:      order,
		}
		return r.Option().Create(ctx, nil, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Option created", "option_id", created.ID, "question_id", questionID, "order", created.Order)
	return created, nil
}

func (s *questionService) UpdateOption(ctx context.Context, optionID uint, req *UpdateOptionRequest) (*models.QuestionOption, error) {
	s.logger.Info("Updating option", "option_id", optionID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var updated *models.QuestionOption
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		option, err := r.Option().GetByID(ctx, nil, optionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrOptionNotFound
			}
			return fmt.Errorf("failed to get option: %w", err)
		}

		if _, err := s.requireOptionOwner(ctx, r, option.QuestionID); err != nil {
			return err
		}

		if req.Label != nil {
			option.Label = *req.Label
		}
		if req.Value != nil {
			option.Value = req.Value
		}
		if err := r.Option().Update(ctx, nil, option); err != nil {
			return fmt.Errorf("failed to update option: %w", err)
		}

		if req.Order != nil {
			coll := r.Option().Collection(nil, option.QuestionID)
			if err := ordering.MoveTo(ctx, coll, option.ID, *req.Order); err != nil {
				return mapOrderingError(err)
			}
		}

		updated, err = r.Option().GetByID(ctx, nil, option.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Option updated", "option_id", optionID)
	return updated, nil
}

func (s *questionService) DeleteOption(ctx context.Context, optionID uint) error {
	s.logger.Info("Deleting option", "option_id", optionID)

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		option, err := r.Option().GetByID(ctx, nil, optionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrOptionNotFound
			}
			return fmt.Errorf("failed to get option: %w", err)
		}

		if _, err := s.requireOptionOwner(ctx, r, option.QuestionID); err != nil {
			return err
		}

		if err := r.Option().Delete(ctx, nil, option.ID); err != nil {
			return fmt.Errorf("failed to delete option: %w", err)
		}

		coll := r.Option().Collection(nil, option.QuestionID)
		if err := ordering.Compact(ctx, coll, option.Order); err != nil {
			return mapOrderingError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Option deleted", "option_id", optionID)
	return nil
}

func (s *questionService) ListOptions(ctx context.Context, questionID uint) ([]*models.QuestionOption, error) {
	if _, err := s.repo.Question().GetByID(ctx, nil, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return s.repo.Option().ListByQuestion(ctx, nil, questionID)
}

func (s *questionService) ReorderOptions(ctx context.Context, questionID uint, req ordering.ReorderRequest) ([]*models.QuestionOption, error) {
	s.logger.Info("Reordering options", "question_id", questionID)

	var options []*models.QuestionOption
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		question, err := s.requireOptionOwner(ctx, r, questionID)
		if err != nil {
			return err
		}

		coll := r.Option().Collection(nil, question.ID)
		if err := ordering.Reorder(ctx, coll, req); err != nil {
			return mapOrderingError(err)
		}

		options, err = r.Option().ListByQuestion(ctx, nil, question.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Options reordered", "question_id", questionID, "count", len(options))
	return options, nil
}

// mapOrderingError translates engine sentinels into the service taxonomy so
// handlers see one error surface.
func mapOrderingError(err error) error {
	switch {
	case errors.Is(err, ordering.ErrInvalidPayload):
		return ErrInvalidPayload
	case errors.Is(err, ordering.ErrScopeMismatch):
		return ErrScopeMismatch
	case errors.Is(err, ordering.ErrNotInCollection):
		return ErrQuestionNotFound
	}
	return err
}
