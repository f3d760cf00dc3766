package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/ordering"
)

// QuestionRepository interface for question rows and their ordered scopes
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) // Include options, children
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Scope queries
	ListByScope(ctx context.Context, tx *gorm.DB, scope QuestionScope) ([]*models.Question, error)
	ListTree(ctx context.Context, tx *gorm.DB, versionID uint) ([]*models.Question, error) // roots with options and children, all ordered
	GetChildren(ctx context.Context, tx *gorm.DB, parentID uint) ([]*models.Question, error)
	CountByVersion(ctx context.Context, tx *gorm.DB, versionID uint) (int64, error)

	// Cascade helpers
	DeleteChildren(ctx context.Context, tx *gorm.DB, parentID uint) error
	DeleteChildrenNotIn(ctx context.Context, tx *gorm.DB, parentID uint, keepIDs []uint) ([]uint, error)

	// Ordered collection binding. The returned collection addresses one
	// scope through the given transaction; pass the same tx the mutation
	// runs in.
	Collection(tx *gorm.DB, scope QuestionScope) ordering.Collection
}

// OptionRepository interface for answer options and their per-question scope
type OptionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, option *models.QuestionOption) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionOption, error)
	Update(ctx context.Context, tx *gorm.DB, option *models.QuestionOption) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Scope queries
	ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.QuestionOption, error)
	CountByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) (int64, error)

	// Cascade helpers
	DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) error
	DeleteByQuestionNotIn(ctx context.Context, tx *gorm.DB, questionID uint, keepIDs []uint) error

	// Ordered collection binding for one question's option list.
	Collection(tx *gorm.DB, questionID uint) ordering.Collection
}
