package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/ordering"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

// orderedCollection implements ordering.Collection over one gorm model and
// one scope predicate. It is always bound to the transaction the mutation
// runs in; density is a service invariant re-established before commit, so
// no (scope, "order") index constrains the intermediate states.
type orderedCollection struct {
	db    *gorm.DB
	model interface{}
	scope func(*gorm.DB) *gorm.DB
}

func newQuestionCollection(db *gorm.DB, scope repositories.QuestionScope) ordering.Collection {
	return &orderedCollection{
		db:    db,
		model: &models.Question{},
		scope: func(q *gorm.DB) *gorm.DB {
			q = q.Where("version_id = ?", scope.VersionID)
			if scope.ParentID == nil {
				return q.Where("parent_id IS NULL")
			}
			return q.Where("parent_id = ?", *scope.ParentID)
		},
	}
}

func newOptionCollection(db *gorm.DB, questionID uint) ordering.Collection {
	return &orderedCollection{
		db:    db,
		model: &models.QuestionOption{},
		scope: func(q *gorm.DB) *gorm.DB {
			return q.Where("question_id = ?", questionID)
		},
	}
}

func (c *orderedCollection) query(ctx context.Context) *gorm.DB {
	return c.scope(c.db.WithContext(ctx).Model(c.model))
}

func (c *orderedCollection) MaxOrder(ctx context.Context) (int, error) {
	var max int
	err := c.query(ctx).
		Select("COALESCE(MAX(\"order\"), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max order: %w", err)
	}
	return max, nil
}

func (c *orderedCollection) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := c.query(ctx).
		Order("\"order\" ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ordered ids: %w", err)
	}
	return ids, nil
}

func (c *orderedCollection) OrderOf(ctx context.Context, id uint) (int, error) {
	var row struct {
		Order int
	}
	err := c.query(ctx).
		Select("\"order\"").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ordering.ErrNotInCollection
		}
		return 0, fmt.Errorf("failed to get order of row %d: %w", id, err)
	}
	return row.Order, nil
}

func (c *orderedCollection) ShiftRange(ctx context.Context, lo, hi, delta int) error {
	if lo > hi {
		return nil
	}
	err := c.query(ctx).
		Where("\"order\" BETWEEN ? AND ?", lo, hi).
		UpdateColumn("order", gorm.Expr("\"order\" + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("failed to shift orders [%d,%d] by %d: %w", lo, hi, delta, err)
	}
	return nil
}

func (c *orderedCollection) ShiftFrom(ctx context.Context, lo, delta int) error {
	err := c.query(ctx).
		Where("\"order\" >= ?", lo).
		UpdateColumn("order", gorm.Expr("\"order\" + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("failed to shift orders from %d by %d: %w", lo, delta, err)
	}
	return nil
}

func (c *orderedCollection) SetOrder(ctx context.Context, id uint, order int) error {
	result := c.query(ctx).
		Where("id = ?", id).
		UpdateColumn("order", order)
	if result.Error != nil {
		return fmt.Errorf("failed to set order of row %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ordering.ErrNotInCollection
	}
	return nil
}

// AssignOrders rewrites the whole scope in two passes: first every row is
// lifted above the target range, then each row lands on index+1. The
// intermediate orders never collide with the finals, so a reader inside
// the transaction never sees two rows on one slot.
func (c *orderedCollection) AssignOrders(ctx context.Context, orderedIDs []uint) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	if err := c.ShiftFrom(ctx, 1, len(orderedIDs)); err != nil {
		return fmt.Errorf("failed to lift orders before assignment: %w", err)
	}

	for i, id := range orderedIDs {
		if err := c.SetOrder(ctx, id, i+1); err != nil {
			return fmt.Errorf("failed to assign order %d to row %d: %w", i+1, id, err)
		}
	}
	return nil
}

// invalidatingCollection drops the owning version's tree cache after a
// whole-scope rewrite. Single-row engine operations are always paired with
// a repository write that invalidates on its own; bulk reorder mutates
// orders through the collection alone, so the hook lives here.
type invalidatingCollection struct {
	ordering.Collection
	invalidate func(context.Context)
}

func (c *invalidatingCollection) AssignOrders(ctx context.Context, orderedIDs []uint) error {
	if err := c.Collection.AssignOrders(ctx, orderedIDs); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}
