package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/cache"
	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/ordering"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}

// ===== BASIC CRUD OPERATIONS =====

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.SafeInvalidateVersionTree(ctx, q.cacheManager, question.VersionID)

	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

// GetByIDWithDetails retrieves a question with its options and children,
// all in display order.
func (q *QuestionPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		Preload("Children.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"order\" ASC")
		}).
		First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get question with details: %w", err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.SafeInvalidateVersionTree(ctx, q.cacheManager, question.VersionID)

	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	var question models.Question
	if err := db.WithContext(ctx).Select("id, version_id").First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	cache.SafeInvalidateVersionTree(ctx, q.cacheManager, question.VersionID)

	return nil
}

// ===== SCOPE QUERIES =====

func (q *QuestionPostgreSQL) ListByScope(ctx context.Context, tx *gorm.DB, scope repositories.QuestionScope) ([]*models.Question, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).
		Where("version_id = ?", scope.VersionID)
	if scope.ParentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *scope.ParentID)
	}

	var questions []*models.Question
	if err := query.Order("\"order\" ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions in scope: %w", err)
	}
	return questions, nil
}

// ListTree returns a version's root questions with options and ordered
// children, cached per version when a transaction is not in play.
func (q *QuestionPostgreSQL) ListTree(ctx context.Context, tx *gorm.DB, versionID uint) ([]*models.Question, error) {
	fetch := func() (interface{}, error) {
		db := q.getDB(tx)
		var questions []*models.Question
		err := db.WithContext(ctx).
			Where("version_id = ? AND parent_id IS NULL", versionID).
			Preload("Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("\"order\" ASC")
			}).
			Preload("Children", func(db *gorm.DB) *gorm.DB {
				return db.Order("\"order\" ASC")
			}).
			Preload("Children.Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("\"order\" ASC")
			}).
			Order("\"order\" ASC").
			Find(&questions).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list question tree: %w", err)
		}
		return questions, nil
	}

	// Inside a transaction the tree may be mid-mutation; bypass the cache.
	// WithTransaction rebinds q.db to the transaction handle, so the bound
	// handle has to be checked as well as the explicit tx argument.
	if tx != nil || isTxHandle(q.db) {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.([]*models.Question), nil
	}

	cacheKey := fmt.Sprintf("version:%d", versionID)
	var questions []*models.Question
	err := q.cacheManager.Tree.CacheOrExecute(ctx, cacheKey, &questions, cache.TreeCacheConfig.TTL, fetch)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetChildren(ctx context.Context, tx *gorm.DB, parentID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var children []*models.Question
	err := db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("\"order\" ASC").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get children of question %d: %w", parentID, err)
	}
	return children, nil
}

func (q *QuestionPostgreSQL) CountByVersion(ctx context.Context, tx *gorm.DB, versionID uint) (int64, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("version_id = ?", versionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// ===== CASCADE HELPERS =====

func (q *QuestionPostgreSQL) DeleteChildren(ctx context.Context, tx *gorm.DB, parentID uint) error {
	db := q.getDB(tx)
	err := db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Delete(&models.Question{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete children of question %d: %w", parentID, err)
	}
	return nil
}

// DeleteChildrenNotIn removes persisted children absent from keepIDs and
// returns the IDs it deleted so the caller can cascade their options.
func (q *QuestionPostgreSQL) DeleteChildrenNotIn(ctx context.Context, tx *gorm.DB, parentID uint, keepIDs []uint) ([]uint, error) {
	db := q.getDB(tx)

	query := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("parent_id = ?", parentID)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}

	var doomed []uint
	if err := query.Pluck("id", &doomed).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale children of question %d: %w", parentID, err)
	}
	if len(doomed) == 0 {
		return nil, nil
	}

	if err := db.WithContext(ctx).Delete(&models.Question{}, doomed).Error; err != nil {
		return nil, fmt.Errorf("failed to delete stale children of question %d: %w", parentID, err)
	}
	return doomed, nil
}

// ===== ORDERED COLLECTION =====

func (q *QuestionPostgreSQL) Collection(tx *gorm.DB, scope repositories.QuestionScope) ordering.Collection {
	return &invalidatingCollection{
		Collection: newQuestionCollection(q.getDB(tx), scope),
		invalidate: func(ctx context.Context) {
			cache.SafeInvalidateVersionTree(ctx, q.cacheManager, scope.VersionID)
		},
	}
}
