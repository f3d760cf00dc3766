package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

type PeriodPostgreSQL struct {
	db *gorm.DB
}

func NewPeriodPostgreSQL(db *gorm.DB) repositories.PeriodRepository {
	return &PeriodPostgreSQL{db: db}
}

func (p *PeriodPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

func (p *PeriodPostgreSQL) Create(ctx context.Context, tx *gorm.DB, period *models.Period) error {
	db := p.getDB(tx)
	if err := db.WithContext(ctx).Create(period).Error; err != nil {
		return fmt.Errorf("failed to create period: %w", err)
	}
	return nil
}

func (p *PeriodPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Period, error) {
	db := p.getDB(tx)
	var period models.Period
	if err := db.WithContext(ctx).First(&period, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	return &period, nil
}

func (p *PeriodPostgreSQL) Update(ctx context.Context, tx *gorm.DB, period *models.Period) error {
	db := p.getDB(tx)
	if err := db.WithContext(ctx).Save(period).Error; err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}
	return nil
}

func (p *PeriodPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := p.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Period{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete period: %w", err)
	}
	return nil
}

func (p *PeriodPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.Period, error) {
	db := p.getDB(tx)
	var periods []*models.Period
	if err := db.WithContext(ctx).Order("start_date DESC").Find(&periods).Error; err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	return periods, nil
}

func (p *PeriodPostgreSQL) ExistsByName(ctx context.Context, tx *gorm.DB, name string, excludeID *uint) (bool, error) {
	db := p.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Period{}).
		Where("LOWER(name) = LOWER(?)", name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check period name: %w", err)
	}
	return count > 0, nil
}

func (p *PeriodPostgreSQL) CountTests(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	db := p.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("period_id = ?", id).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tests in period: %w", err)
	}
	return count, nil
}

type TestPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (t *TestPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	return nil
}

func (t *TestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	db := t.getDB(tx)
	var test models.Test
	err := db.WithContext(ctx).
		Preload("Version").
		Preload("Period").
		First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return &test, nil
}

func (t *TestPostgreSQL) GetByAccessCode(ctx context.Context, tx *gorm.DB, code string) (*models.Test, error) {
	db := t.getDB(tx)
	var test models.Test
	err := db.WithContext(ctx).
		Preload("Version").
		Preload("Period").
		Where("access_code = ?", code).
		First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get test by access code: %w", err)
	}
	return &test, nil
}

func (t *TestPostgreSQL) GetActiveByAccessCode(ctx context.Context, tx *gorm.DB, code string) (*models.Test, error) {
	db := t.getDB(tx)
	var test models.Test
	err := db.WithContext(ctx).
		Preload("Version").
		Preload("Period").
		Where("access_code = ? AND status = ?", code, models.TestActive).
		First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get active test by access code: %w", err)
	}
	return &test, nil
}

func (t *TestPostgreSQL) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Save(test).Error; err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	return nil
}

func (t *TestPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Test{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	return nil
}

func (t *TestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	db := t.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Test{})

	if filters.PeriodID != nil {
		query = query.Where("period_id = ?", *filters.PeriodID)
	}
	if filters.VersionID != nil {
		query = query.Where("version_id = ?", *filters.VersionID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Search != nil && *filters.Search != "" {
		query = query.Where("name ILIKE ?", "%"+*filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tests: %w", err)
	}

	query = t.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var tests []*models.Test
	if err := query.Preload("Version").Preload("Period").Find(&tests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tests: %w", err)
	}

	return tests, total, nil
}

func (t *TestPostgreSQL) ExistsByAccessCode(ctx context.Context, tx *gorm.DB, code string, excludeID *uint) (bool, error) {
	db := t.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("access_code = ?", code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check access code: %w", err)
	}
	return count > 0, nil
}
