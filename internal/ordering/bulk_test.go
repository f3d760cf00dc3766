package ordering

import (
	"context"
	"errors"
	"testing"
)

func TestReorder_ByIDList(t *testing.T) {
	ctx := context.Background()
	c := newFakeCollection(1, 2, 3, 4)

	err := Reorder(ctx, c, ReorderRequest{IDs: []uint{3, 1, 4, 2}})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	assertSequence(t, c, []uint{3, 1, 4, 2})
}

func TestReorder_ByMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("Plain_Mapping", func(t *testing.T) {
		c := newFakeCollection(1, 2, 3)
		err := Reorder(ctx, c, ReorderRequest{Items: []ReorderItem{
			{ID: 1, Order: 3},
			{ID: 2, Order: 1},
			{ID: 3, Order: 2},
		}})
		if err != nil {
			t.Fatalf("reorder failed: %v", err)
		}
		assertSequence(t, c, []uint{2, 3, 1})
	})

	t.Run("Duplicate_Orders_Keep_Payload_Position", func(t *testing.T) {
		c := newFakeCollection(1, 2, 3, 4)
		err := Reorder(ctx, c, ReorderRequest{Items: []ReorderItem{
			{ID: 4, Order: 1},
			{ID: 2, Order: 1},
			{ID: 1, Order: 2},
			{ID: 3, Order: 2},
		}})
		if err != nil {
			t.Fatalf("reorder failed: %v", err)
		}
		// Stable sort: ties resolve in payload order, then 1..N.
		assertSequence(t, c, []uint{4, 2, 1, 3})
	})

	t.Run("Gapped_Orders_Normalize_To_Dense", func(t *testing.T) {
		c := newFakeCollection(1, 2, 3)
		err := Reorder(ctx, c, ReorderRequest{Items: []ReorderItem{
			{ID: 1, Order: 100},
			{ID: 2, Order: 5},
			{ID: 3, Order: 40},
		}})
		if err != nil {
			t.Fatalf("reorder failed: %v", err)
		}
		assertSequence(t, c, []uint{2, 3, 1})
	})
}

func TestReorder_PayloadValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("Neither_Form", func(t *testing.T) {
		c := newFakeCollection(1, 2)
		err := Reorder(ctx, c, ReorderRequest{})
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("Both_Forms", func(t *testing.T) {
		c := newFakeCollection(1, 2)
		err := Reorder(ctx, c, ReorderRequest{
			IDs:   []uint{1, 2},
			Items: []ReorderItem{{ID: 1, Order: 1}},
		})
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("Foreign_Row", func(t *testing.T) {
		c := newFakeCollection(1, 2)
		err := Reorder(ctx, c, ReorderRequest{IDs: []uint{1, 99}})
		if !errors.Is(err, ErrScopeMismatch) {
			t.Errorf("expected ErrScopeMismatch, got %v", err)
		}
	})

	t.Run("Partial_Coverage", func(t *testing.T) {
		c := newFakeCollection(1, 2, 3)
		err := Reorder(ctx, c, ReorderRequest{IDs: []uint{1, 2}})
		if !errors.Is(err, ErrScopeMismatch) {
			t.Errorf("expected ErrScopeMismatch, got %v", err)
		}
	})

	t.Run("Duplicate_Row", func(t *testing.T) {
		c := newFakeCollection(1, 2)
		err := Reorder(ctx, c, ReorderRequest{IDs: []uint{1, 1}})
		if !errors.Is(err, ErrScopeMismatch) {
			t.Errorf("expected ErrScopeMismatch, got %v", err)
		}
	})

	t.Run("Rejected_Payload_Leaves_Orders_Untouched", func(t *testing.T) {
		c := newFakeCollection(1, 2, 3)
		_ = Reorder(ctx, c, ReorderRequest{IDs: []uint{3, 1}})
		assertSequence(t, c, []uint{1, 2, 3})
	})
}
