package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

type administrationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAdministrationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AdministrationService {
	return &administrationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== PERIOD OPERATIONS =====

func (s *administrationService) CreatePeriod(ctx context.Context, req *PeriodRequest) (*models.Period, error) {
	s.logger.Info("Creating period", "name", req.Name)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	start, end, err := parsePeriodDates(req)
	if err != nil {
		return nil, err
	}

	var created *models.Period
	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		exists, err := r.Period().ExistsByName(ctx, nil, req.Name, nil)
		if err != nil {
			return fmt.Errorf("failed to check period name: %w", err)
		}
		if exists {
			return ErrDuplicateName
		}

		created = &models.Period{
			Name:      req.Name,
			StartDate: start,
			EndDate:   end,
		}
		return r.Period().Create(ctx, nil, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Period created", "period_id", created.ID)
	return created, nil
}

func (s *administrationService) ListPeriods(ctx context.Context) ([]*models.Period, error) {
	return s.repo.Period().List(ctx, nil)
}

func (s *administrationService) UpdatePeriod(ctx context.Context, id uint, req *PeriodRequest) (*models.Period, error) {
	s.logger.Info("Updating period", "period_id", id)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	start, end, err := parsePeriodDates(req)
	if err != nil {
		return nil, err
	}

	var updated *models.Period
	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		period, err := r.Period().GetByID(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrPeriodNotFound
			}
			return fmt.Errorf("failed to get period: %w", err)
		}

		exists, err := r.Period().ExistsByName(ctx, nil, req.Name, &id)
		if err != nil {
			return fmt.Errorf("failed to check period name: %w", err)
		}
		if exists {
			return ErrDuplicateName
		}

		period.Name = req.Name
		period.StartDate = start
		period.EndDate = end
		if err := r.Period().Update(ctx, nil, period); err != nil {
			return fmt.Errorf("failed to update period: %w", err)
		}
		updated = period
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Period updated", "period_id", id)
	return updated, nil
}

func (s *administrationService) DeletePeriod(ctx context.Context, id uint) error {
	s.logger.Info("Deleting period", "period_id", id)

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if _, err := r.Period().GetByID(ctx, nil, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrPeriodNotFound
			}
			return fmt.Errorf("failed to get period: %w", err)
		}

		count, err := r.Period().CountTests(ctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to count period tests: %w", err)
		}
		if count > 0 {
			return NewDependencyConflictError("period", id, fmt.Sprintf("%d tests reference this period", count))
		}

		return r.Period().Delete(ctx, nil, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Period deleted", "period_id", id)
	return nil
}

// ===== TEST OPERATIONS =====

func (s *administrationService) CreateTest(ctx context.Context, req *CreateTestRequest) (*models.Test, error) {
	s.logger.Info("Creating test", "name", req.Name, "version_id", req.VersionID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var created *models.Test
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		version, err := r.Version().GetByID(ctx, nil, req.VersionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrVersionNotFound
			}
			return fmt.Errorf("failed to get version: %w", err)
		}
		// Tests only run against frozen structure.
		if !version.IsPublished() {
			return ErrNotPublished
		}

		if _, err := r.Period().GetByID(ctx, nil, req.PeriodID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrPeriodNotFound
			}
			return fmt.Errorf("failed to get period: %w", err)
		}

		exists, err := r.Test().ExistsByAccessCode(ctx, nil, req.AccessCode, nil)
		if err != nil {
			return fmt.Errorf("failed to check access code: %w", err)
		}
		if exists {
			return ErrDuplicateAccessCode
		}

		created = &models.Test{
			Name:       req.Name,
			VersionID:  req.VersionID,
			PeriodID:   req.PeriodID,
			AccessCode: req.AccessCode,
			Status:     models.TestActive,
		}
		return r.Test().Create(ctx, nil, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test created", "test_id", created.ID, "access_code", created.AccessCode)
	return created, nil
}

func (s *administrationService) GetTest(ctx context.Context, id uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *administrationService) ListTests(ctx context.Context, filters repositories.TestFilters) (*TestListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	tests, total, err := s.repo.Test().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	return &TestListResponse{
		Tests:  tests,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

func (s *administrationService) UpdateTest(ctx context.Context, id uint, req *UpdateTestRequest) (*models.Test, error) {
	s.logger.Info("Updating test", "test_id", id)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	var updated *models.Test
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		test, err := r.Test().GetByID(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		if req.Name != nil {
			test.Name = *req.Name
		}
		if req.PeriodID != nil {
			if _, err := r.Period().GetByID(ctx, nil, *req.PeriodID); err != nil {
				if repositories.IsNotFoundError(err) {
					return ErrPeriodNotFound
				}
				return fmt.Errorf("failed to get period: %w", err)
			}
			test.PeriodID = *req.PeriodID
		}
		if req.AccessCode != nil && *req.AccessCode != test.AccessCode {
			exists, err := r.Test().ExistsByAccessCode(ctx, nil, *req.AccessCode, &id)
			if err != nil {
				return fmt.Errorf("failed to check access code: %w", err)
			}
			if exists {
				return ErrDuplicateAccessCode
			}
			test.AccessCode = *req.AccessCode
		}
		if req.Status != nil {
			test.Status = *req.Status
		}

		if err := r.Test().Update(ctx, nil, test); err != nil {
			return fmt.Errorf("failed to update test: %w", err)
		}
		updated = test
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Test updated", "test_id", id)
	return updated, nil
}

func (s *administrationService) DeleteTest(ctx context.Context, id uint) error {
	s.logger.Info("Deleting test", "test_id", id)

	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		if _, err := r.Test().GetByID(ctx, nil, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		count, err := r.Assignment().CountCompletedByTest(ctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to count completed submissions: %w", err)
		}
		if count > 0 {
			return NewDependencyConflictError("test", id, fmt.Sprintf("%d completed submissions reference this test", count))
		}

		return r.Test().Delete(ctx, nil, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Test deleted", "test_id", id)
	return nil
}

// parsePeriodDates parses and orders the period window.
func parsePeriodDates(req *PeriodRequest) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start_date", ErrInvalidPayload)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end_date", ErrInvalidPayload)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date must precede end_date", ErrInvalidPayload)
	}
	return start, end, nil
}
