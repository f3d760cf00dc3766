package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
)

// TemplateRepository interface for test template operations
type TemplateRepository interface {
	Create(ctx context.Context, tx *gorm.DB, template *models.TestTemplate) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestTemplate, error)
	Update(ctx context.Context, tx *gorm.DB, template *models.TestTemplate) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB, filters TemplateFilters) ([]*models.TestTemplate, int64, error)

	// Validation
	ExistsByName(ctx context.Context, tx *gorm.DB, name string, excludeID *uint) (bool, error)
	HasVersionsInUse(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

// VersionRepository interface for template version operations
type VersionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, version *models.TemplateVersion) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TemplateVersion, error)
	Update(ctx context.Context, tx *gorm.DB, version *models.TemplateVersion) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	ListByTemplate(ctx context.Context, tx *gorm.DB, templateID uint) ([]*models.TemplateVersion, error)
	NextVersionNumber(ctx context.Context, tx *gorm.DB, templateID uint) (int, error)

	// Validation
	ExistsNumber(ctx context.Context, tx *gorm.DB, templateID uint, version int, excludeID *uint) (bool, error)
	IsUsedByTests(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}
