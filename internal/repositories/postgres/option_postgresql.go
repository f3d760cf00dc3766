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

type OptionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewOptionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.OptionRepository {
	return &OptionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (o *OptionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return o.db
}

func (o *OptionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, option *models.QuestionOption) error {
	db := o.getDB(tx)
	if err := db.WithContext(ctx).Create(option).Error; err != nil {
		return fmt.Errorf("failed to create option: %w", err)
	}

	o.invalidateTreeForQuestion(ctx, db, option.QuestionID)

	return nil
}

func (o *OptionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionOption, error) {
	db := o.getDB(tx)
	var option models.QuestionOption
	if err := db.WithContext(ctx).First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get option: %w", err)
	}
	return &option, nil
}

func (o *OptionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, option *models.QuestionOption) error {
	db := o.getDB(tx)
	if err := db.WithContext(ctx).Save(option).Error; err != nil {
		return fmt.Errorf("failed to update option: %w", err)
	}

	o.invalidateTreeForQuestion(ctx, db, option.QuestionID)

	return nil
}

func (o *OptionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := o.getDB(tx)

	var option models.QuestionOption
	if err := db.WithContext(ctx).Select("id, question_id").First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("failed to get option before delete: %w", err)
	}

	if err := db.WithContext(ctx).Delete(&models.QuestionOption{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete option: %w", err)
	}

	o.invalidateTreeForQuestion(ctx, db, option.QuestionID)

	return nil
}

func (o *OptionPostgreSQL) ListByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) ([]*models.QuestionOption, error) {
	db := o.getDB(tx)
	var options []*models.QuestionOption
	err := db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("\"order\" ASC").
		Find(&options).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list options of question %d: %w", questionID, err)
	}
	return options, nil
}

func (o *OptionPostgreSQL) CountByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) (int64, error) {
	db := o.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.QuestionOption{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count options: %w", err)
	}
	return count, nil
}

func (o *OptionPostgreSQL) DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uint) error {
	db := o.getDB(tx)
	err := db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Delete(&models.QuestionOption{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete options of question %d: %w", questionID, err)
	}
	return nil
}

func (o *OptionPostgreSQL) DeleteByQuestionNotIn(ctx context.Context, tx *gorm.DB, questionID uint, keepIDs []uint) error {
	db := o.getDB(tx)
	query := db.WithContext(ctx).
		Where("question_id = ?", questionID)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}
	if err := query.Delete(&models.QuestionOption{}).Error; err != nil {
		return fmt.Errorf("failed to delete stale options of question %d: %w", questionID, err)
	}
	return nil
}

func (o *OptionPostgreSQL) Collection(tx *gorm.DB, questionID uint) ordering.Collection {
	db := o.getDB(tx)
	return &invalidatingCollection{
		Collection: newOptionCollection(db, questionID),
		invalidate: func(ctx context.Context) {
			o.invalidateTreeForQuestion(ctx, db, questionID)
		},
	}
}

// invalidateTreeForQuestion resolves the owning version and drops its tree
// cache. Best effort; a miss just means one stale read window.
func (o *OptionPostgreSQL) invalidateTreeForQuestion(ctx context.Context, db *gorm.DB, questionID uint) {
	var question models.Question
	if err := db.WithContext(ctx).Select("id, version_id").First(&question, questionID).Error; err != nil {
		return
	}
	cache.SafeInvalidateVersionTree(ctx, o.cacheManager, question.VersionID)
}
