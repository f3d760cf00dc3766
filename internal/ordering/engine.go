package ordering

import (
	"context"
	"fmt"
)

// InsertAt opens a slot for a new row and returns the order the caller
// must insert it at. A nil requested order appends. A requested order is
// clamped to [1, MaxOrder+1], so an out-of-range request appends instead
// of leaving a gap.
func InsertAt(ctx context.Context, c Collection, requested *int) (int, error) {
	max, err := c.MaxOrder(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert: max order: %w", err)
	}

	if requested == nil {
		return max + 1, nil
	}

	target := clamp(*requested, 1, max+1)
	if target == max+1 {
		return target, nil
	}

	if err := c.ShiftFrom(ctx, target, +1); err != nil {
		return 0, fmt.Errorf("insert: shift from %d: %w", target, err)
	}
	return target, nil
}

// MoveTo moves one existing row to a new order, shifting the rows between
// its old and new slots by one. The requested order is clamped to
// [1, MaxOrder]; moving a row onto its current slot is a no-op.
//
// The row is parked at MaxOrder+1 before the range shift so no two rows
// ever share a slot mid-move.
func MoveTo(ctx context.Context, c Collection, id uint, requested int) error {
	current, err := c.OrderOf(ctx, id)
	if err != nil {
		return err
	}

	max, err := c.MaxOrder(ctx)
	if err != nil {
		return fmt.Errorf("move: max order: %w", err)
	}

	target := clamp(requested, 1, max)
	if target == current {
		return nil
	}

	if err := c.SetOrder(ctx, id, max+1); err != nil {
		return fmt.Errorf("move: park row %d: %w", id, err)
	}

	if target < current {
		// Moving earlier: everything in [target, current-1] slides down.
		err = c.ShiftRange(ctx, target, current-1, +1)
	} else {
		// Moving later: everything in [current+1, target] slides up.
		err = c.ShiftRange(ctx, current+1, target, -1)
	}
	if err != nil {
		return fmt.Errorf("move: shift range: %w", err)
	}

	if err := c.SetOrder(ctx, id, target); err != nil {
		return fmt.Errorf("move: land row %d at %d: %w", id, target, err)
	}
	return nil
}

// Compact closes the gap a deleted row left behind. Call it after the row
// at removedOrder has been deleted, inside the same transaction.
func Compact(ctx context.Context, c Collection, removedOrder int) error {
	if err := c.ShiftFrom(ctx, removedOrder+1, -1); err != nil {
		return fmt.Errorf("compact after %d: %w", removedOrder, err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
