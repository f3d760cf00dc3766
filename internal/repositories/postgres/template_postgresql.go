package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/cache"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

type TemplatePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewTemplatePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.TemplateRepository {
	return &TemplatePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (t *TemplatePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TemplatePostgreSQL) Create(ctx context.Context, tx *gorm.DB, template *models.TestTemplate) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, t.cacheManager.Template, "list:*")

	return nil
}

func (t *TemplatePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestTemplate, error) {
	db := t.getDB(tx)

	cacheKey := fmt.Sprintf("id:%d", id)
	var template models.TestTemplate

	err := t.cacheManager.Template.CacheOrExecute(ctx, cacheKey, &template, cache.TemplateCacheConfig.TTL, func() (interface{}, error) {
		var dbTemplate models.TestTemplate
		if err := db.WithContext(ctx).First(&dbTemplate, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, gorm.ErrRecordNotFound
			}
			return nil, fmt.Errorf("failed to get template: %w", err)
		}
		return &dbTemplate, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}

	return &template, nil
}

func (t *TemplatePostgreSQL) Update(ctx context.Context, tx *gorm.DB, template *models.TestTemplate) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Save(template).Error; err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, t.cacheManager, template.ID)

	return nil
}

func (t *TemplatePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.TestTemplate{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, t.cacheManager, id)

	return nil
}

func (t *TemplatePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TemplateFilters) ([]*models.TestTemplate, int64, error) {
	db := t.getDB(tx)
	query := db.WithContext(ctx).Model(&models.TestTemplate{})

	if filters.Search != nil && *filters.Search != "" {
		query = query.Where("name ILIKE ?", "%"+*filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	query = t.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var templates []*models.TestTemplate
	if err := query.Find(&templates).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, total, nil
}

func (t *TemplatePostgreSQL) ExistsByName(ctx context.Context, tx *gorm.DB, name string, excludeID *uint) (bool, error) {
	db := t.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.TestTemplate{}).
		Where("LOWER(name) = LOWER(?)", name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check template name: %w", err)
	}
	return count > 0, nil
}

func (t *TemplatePostgreSQL) HasVersionsInUse(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := t.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Test{}).
		Joins("JOIN template_versions ON template_versions.id = tests.version_id").
		Where("template_versions.template_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check template usage: %w", err)
	}
	return count > 0, nil
}

type VersionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewVersionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.VersionRepository {
	return &VersionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (v *VersionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return v.db
}

func (v *VersionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, version *models.TemplateVersion) error {
	db := v.getDB(tx)
	if err := db.WithContext(ctx).Create(version).Error; err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, v.cacheManager, version.TemplateID)

	return nil
}

func (v *VersionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TemplateVersion, error) {
	db := v.getDB(tx)
	var version models.TemplateVersion
	if err := db.WithContext(ctx).First(&version, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return &version, nil
}

func (v *VersionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, version *models.TemplateVersion) error {
	db := v.getDB(tx)
	if err := db.WithContext(ctx).Save(version).Error; err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, v.cacheManager, version.TemplateID, version.ID)

	return nil
}

func (v *VersionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := v.getDB(tx)

	var version models.TemplateVersion
	if err := db.WithContext(ctx).Select("id, template_id").First(&version, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("failed to get version before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.TemplateVersion{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}

	cache.InvalidateTemplateCache(ctx, v.cacheManager, version.TemplateID, id)

	return nil
}

func (v *VersionPostgreSQL) ListByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) ([]*models.TemplateVersion, error) {
	db := v.getDB(tx)
	var versions []*models.TemplateVersion
	err := db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("version DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

func (v *VersionPostgreSQL) NextVersionNumber(ctx context.Context, tx *gorm.DB, templateID uint) (int, error) {
	db := v.getDB(tx)
	var max int
	err := db.WithContext(ctx).
		Model(&models.TemplateVersion{}).
		Where("template_id = ?", templateID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max version number: %w", err)
	}
	return max + 1, nil
}

func (v *VersionPostgreSQL) ExistsNumber(ctx context.Context, tx *gorm.DB, templateID uint, version int, excludeID *uint) (bool, error) {
	db := v.getDB(tx)
	query := db.WithContext(ctx).
		Model(&models.TemplateVersion{}).
		Where("template_id = ? AND version = ?", templateID, version)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check version number: %w", err)
	}
	return count > 0, nil
}

func (v *VersionPostgreSQL) IsUsedByTests(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := v.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("version_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check version usage: %w", err)
	}
	return count > 0, nil
}
