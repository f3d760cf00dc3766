package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/events"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

type templateService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
}

func NewTemplateService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) TemplateService {
	return &templateService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
	}
}

// ===== TEMPLATE OPERATIONS =====

func (s *templateService) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*models.TestTemplate, error) {
	s.logger.Info("Creating template", "name", req.Name)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var created *models.TestTemplate
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		exists, err := r.Template().ExistsByName(ctx, nil, req.Name, nil)
		if err != nil {
			return fmt.Errorf("failed to check template name: %w", err)
		}
		if exists {
			return ErrDuplicateName
		}

		created = &models.TestTemplate{
			Name:        req.Name,
			Description: req.Description,
		}
		if err := r.Template().Create(ctx, nil, created); err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}

		// Every template starts with an empty draft version 1.
		first := &models.TemplateVersion{
			TemplateID: created.ID,
			Version:    1,
			Status:     models.VersionDraft,
		}
		if err := r.Version().Create(ctx, nil, first); err != nil {
			return fmt.Errorf("failed to create initial version: %w", err)
		}
		created.Versions = []models.TemplateVersion{*first}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Template created", "template_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *templateService) GetTemplate(ctx context.Context, id uint) (*models.TestTemplate, error) {
	template, err := s.repo.Template().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return template, nil
}

func (s *templateService) ListTemplates(ctx context.Context, filters repositories.TemplateFilters) (*TemplateListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	templates, total, err := s.repo.Template().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return &TemplateListResponse{
		Templates: templates,
		Total:     total,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	}, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, id uint, req *UpdateTemplateRequest) (*models.TestTemplate, error) {
	s.logger.Info("Updating template", "template_id", id)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var updated *models.TestTemplate
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		template, err := r.Template().GetByID(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("failed to get template: %w", err)
		}

		if req.Name != nil && *req.Name != template.Name {
			exists, err := r.Template().ExistsByName(ctx, nil, *req.Name, &id)
			if err != nil {
				return fmt.Errorf("failed to check template name: %w", err)
			}
			if exists {
				return ErrDuplicateName
			}
			template.Name = *req.Name
		}
		if req.Description != nil {
			template.Description = req.Description
		}

		if err := r.Template().Update(ctx, nil, template); err != nil {
			return fmt.Errorf("failed to update template: %w", err)
		}
		updated = template
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Template updated", "template_id", id)
	return updated, nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, id uint) error {
	s.logger.Info("Deleting template", "template_id", id)

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if _, err := r.Template().GetByID(ctx, nil, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("failed to get template: %w", err)
		}

		inUse, err := r.Template().HasVersionsInUse(ctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to check template usage: %w", err)
		}
		if inUse {
			return NewDependencyConflictError("template", id, "one or more versions are bound to tests")
		}

		versions, err := r.Version().ListByTemplate(ctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}
		for _, version := range versions {
			if err := deleteVersionStructure(ctx, r, version.ID); err != nil {
				return err
			}
			if err := r.Version().Delete(ctx, nil, version.ID); err != nil {
				return fmt.Errorf("failed to delete version: %w", err)
			}
		}

		return r.Template().Delete(ctx, nil, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Template deleted", "template_id", id)
	return nil
}

// ===== VERSION OPERATIONS =====

func (s *templateService) CreateVersion(ctx context.Context, templateID uint, req *CreateVersionRequest) (*models.TemplateVersion, error) {
	s.logger.Info("Creating version", "template_id", templateID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var created *models.TemplateVersion
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if _, err := r.Template().GetByID(ctx, nil, templateID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("failed to get template: %w", err)
		}

		number := 0
		if req.Version != nil {
			number = *req.Version
			exists, err := r.Version().ExistsNumber(ctx, nil, templateID, number, nil)
			if err != nil {
				return fmt.Errorf("failed to check version number: %w", err)
			}
			if exists {
				return ErrDuplicateVersion
			}
		} else {
			next, err := r.Version().NextVersionNumber(ctx, nil, templateID)
			if err != nil {
				return fmt.Errorf("failed to get next version number: %w", err)
			}
			number = next
		}

		created = &models.TemplateVersion{
			TemplateID: templateID,
			Version:    number,
			Status:     models.VersionDraft,
			Notes:      req.Notes,
		}
		return r.Version().Create(ctx, nil, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Version created", "version_id", created.ID, "template_id", templateID, "number", created.Version)
	return created, nil
}

func (s *templateService) ListVersions(ctx context.Context, templateID uint) ([]*models.TemplateVersion, error) {
	if _, err := s.repo.Template().GetByID(ctx, nil, templateID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return s.repo.Version().ListByTemplate(ctx, nil, templateID)
}

func (s *templateService) UpdateVersion(ctx context.Context, versionID uint, req *UpdateVersionRequest) (*models.TemplateVersion, error) {
	s.logger.Info("Updating version", "version_id", versionID)

	var updated *models.TemplateVersion
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		version, err := requireDraftVersion(ctx, r, versionID)
		if err != nil {
			return err
		}

		if req.Notes != nil {
			version.Notes = req.Notes
		}
		if err := r.Version().Update(ctx, nil, version); err != nil {
			return fmt.Errorf("failed to update version: %w", err)
		}
		updated = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Version updated", "version_id", versionID)
	return updated, nil
}

func (s *templateService) DeleteVersion(ctx context.Context, versionID uint) error {
	s.logger.Info("Deleting version", "version_id", versionID)

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		version, err := r.Version().GetByID(ctx, nil, versionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrVersionNotFound
			}
			return fmt.Errorf("failed to get version: %w", err)
		}

		inUse, err := r.Version().IsUsedByTests(ctx, nil, version.ID)
		if err != nil {
			return fmt.Errorf("failed to check version usage: %w", err)
		}
		if inUse {
			return NewDependencyConflictError("version", version.ID, "version is bound to tests")
		}

		if err := deleteVersionStructure(ctx, r, version.ID); err != nil {
			return err
		}
		return r.Version().Delete(ctx, nil, version.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Version deleted", "version_id", versionID)
	return nil
}

func (s *templateService) PublishVersion(ctx context.Context, versionID uint) (*models.TemplateVersion, error) {
	s.logger.Info("Publishing version", "version_id", versionID)

	var published *models.TemplateVersion
	var questionCount int64
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		version, err := r.Version().GetByID(ctx, nil, versionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrVersionNotFound
			}
			return fmt.Errorf("failed to get version: %w", err)
		}
		if !version.IsDraft() {
			return ErrNotDraft
		}

		now := time.Now().UTC()
		version.Status = models.VersionPublished
		version.PublishedAt = &now
		if err := r.Version().Update(ctx, nil, version); err != nil {
			return fmt.Errorf("failed to publish version: %w", err)
		}

		questionCount, err = r.Question().CountByVersion(ctx, nil, version.ID)
		if err != nil {
			return fmt.Errorf("failed to count questions: %w", err)
		}
		published = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(events.EventVersionPublished, &events.VersionPublishedEvent{
		VersionID:     published.ID,
		TemplateID:    published.TemplateID,
		Version:       published.Version,
		QuestionCount: questionCount,
		PublishedAt:   *published.PublishedAt,
	})
	if err := s.eventPublisher.Publish(ctx, events.TopicStructure, event); err != nil {
		// Best-effort: the version is published regardless.
		s.logger.Error("Failed to publish version event", "version_id", published.ID, "error", err)
	}

	s.logger.Info("Version published", "version_id", published.ID, "questions", questionCount)
	return published, nil
}

// deleteVersionStructure drops a version's whole question tree, options
// included. Used by template and version deletes.
func deleteVersionStructure(ctx context.Context, r repositories.Repository, versionID uint) error {
	roots, err := r.Question().ListByScope(ctx, nil, repositories.RootScope(versionID))
	if err != nil {
		return fmt.Errorf("failed to list questions: %w", err)
	}
	for _, root := range roots {
		if err := r.Option().DeleteByQuestion(ctx, nil, root.ID); err != nil {
			return fmt.Errorf("failed to delete options: %w", err)
		}
		if root.Type == models.TypeGrouped {
			children, err := r.Question().GetChildren(ctx, nil, root.ID)
			if err != nil {
				return fmt.Errorf("failed to list children: %w", err)
			}
			for _, child := range children {
				if err := r.Option().DeleteByQuestion(ctx, nil, child.ID); err != nil {
					return fmt.Errorf("failed to delete child options: %w", err)
				}
			}
			if err := r.Question().DeleteChildren(ctx, nil, root.ID); err != nil {
				return fmt.Errorf("failed to delete children: %w", err)
			}
		}
		if err := r.Question().Delete(ctx, nil, root.ID); err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
	}
	return nil
}
