// Package ordering maintains the dense 1..N order invariant of a scoped
// row collection: after every committed mutation the orders within one
// scope are exactly 1..N with no gaps and no duplicates. The engine is
// storage-agnostic; callers bind a Collection to an open transaction and
// one scope, and every operation re-establishes density before the
// transaction commits.
package ordering

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPayload means a bulk reorder payload carried neither or
	// both of its two forms, or was empty.
	ErrInvalidPayload = errors.New("reorder payload must contain exactly one of items or ids")

	// ErrScopeMismatch means a bulk payload referenced rows outside the
	// scope, or failed to cover the scope completely.
	ErrScopeMismatch = errors.New("reorder payload does not match the rows in scope")

	// ErrNotInCollection means the row a single-row operation targets is
	// not part of the bound scope.
	ErrNotInCollection = errors.New("row not found in collection")
)

// Collection is one ordered scope bound to an open transaction. All order
// writes must happen through the same transaction so no reader observes
// the park-then-shift choreography mid-flight.
type Collection interface {
	// MaxOrder returns the highest order in scope, 0 when empty.
	MaxOrder(ctx context.Context) (int, error)

	// IDs returns the scope's row IDs ascending by order.
	IDs(ctx context.Context) ([]uint, error)

	// OrderOf returns the current order of one row, or ErrNotInCollection.
	OrderOf(ctx context.Context, id uint) (int, error)

	// ShiftRange adds delta to every order in [lo, hi].
	ShiftRange(ctx context.Context, lo, hi, delta int) error

	// ShiftFrom adds delta to every order >= lo.
	ShiftFrom(ctx context.Context, lo, delta int) error

	// SetOrder writes one row's order directly. Used to park a moving row
	// above MaxOrder and to land it on its final slot.
	SetOrder(ctx context.Context, id uint, order int) error

	// AssignOrders rewrites the whole scope to order = index+1 over
	// orderedIDs. Implementations must keep two rows from sharing a slot
	// while the rewrite is in flight.
	AssignOrders(ctx context.Context, orderedIDs []uint) error
}
