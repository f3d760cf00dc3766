package ordering

import (
	"context"
	"fmt"
	"sort"
)

// ReorderItem pairs a row with its requested order. Requested orders may
// carry duplicates or gaps; Reorder normalizes them to 1..N.
type ReorderItem struct {
	ID    uint `json:"id" validate:"required"`
	Order int  `json:"order" validate:"required,min=1"`
}

// ReorderRequest is a tagged payload: exactly one of Items or IDs must be
// set. IDs assigns order = position+1; Items stable-sorts by requested
// order (ties keep payload position) and then assigns 1..N.
type ReorderRequest struct {
	Items []ReorderItem `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	IDs   []uint        `json:"ids,omitempty" validate:"omitempty,min=1"`
}

// Resolve reduces the request to the final ID sequence, or
// ErrInvalidPayload when the tagged union is malformed.
func (r ReorderRequest) Resolve() ([]uint, error) {
	hasItems := len(r.Items) > 0
	hasIDs := len(r.IDs) > 0
	if hasItems == hasIDs {
		return nil, ErrInvalidPayload
	}

	if hasIDs {
		return r.IDs, nil
	}

	items := make([]ReorderItem, len(r.Items))
	copy(items, r.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})

	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids, nil
}

// Reorder rewrites a whole scope from a bulk payload. The payload must
// reference every row in scope exactly once; anything else is
// ErrScopeMismatch.
func Reorder(ctx context.Context, c Collection, req ReorderRequest) error {
	ids, err := req.Resolve()
	if err != nil {
		return err
	}

	existing, err := c.IDs(ctx)
	if err != nil {
		return fmt.Errorf("reorder: list scope: %w", err)
	}

	if err := matchScope(ids, existing); err != nil {
		return err
	}

	if err := c.AssignOrders(ctx, ids); err != nil {
		return fmt.Errorf("reorder: assign orders: %w", err)
	}
	return nil
}

// matchScope checks that requested is a permutation of existing.
func matchScope(requested, existing []uint) error {
	if len(requested) != len(existing) {
		return ErrScopeMismatch
	}
	inScope := make(map[uint]bool, len(existing))
	for _, id := range existing {
		inScope[id] = true
	}
	seen := make(map[uint]bool, len(requested))
	for _, id := range requested {
		if !inScope[id] || seen[id] {
			return ErrScopeMismatch
		}
		seen[id] = true
	}
	return nil
}
