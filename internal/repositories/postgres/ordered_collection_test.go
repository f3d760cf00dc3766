package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/evalhub/survey-builder-service/internal/ordering"
)

type stubCollection struct {
	ordering.Collection
	assignErr error
	assigned  [][]uint
}

func (s *stubCollection) AssignOrders(ctx context.Context, orderedIDs []uint) error {
	if s.assignErr != nil {
		return s.assignErr
	}
	s.assigned = append(s.assigned, orderedIDs)
	return nil
}

func TestInvalidatingCollectionDropsCacheAfterAssign(t *testing.T) {
	inner := &stubCollection{}
	invalidated := 0
	coll := &invalidatingCollection{
		Collection: inner,
		invalidate: func(context.Context) { invalidated++ },
	}

	if err := coll.AssignOrders(context.Background(), []uint{3, 1, 2}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if invalidated != 1 {
		t.Errorf("invalidate called %d times, want 1", invalidated)
	}
	if len(inner.assigned) != 1 || len(inner.assigned[0]) != 3 {
		t.Errorf("inner collection got %v, want one call with 3 ids", inner.assigned)
	}
}

func TestInvalidatingCollectionKeepsCacheOnFailure(t *testing.T) {
	wantErr := errors.New("assignment failed")
	coll := &invalidatingCollection{
		Collection: &stubCollection{assignErr: wantErr},
		invalidate: func(context.Context) { t.Error("invalidate called after failed assign") },
	}

	if err := coll.AssignOrders(context.Background(), []uint{1, 2}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the inner error", err)
	}
}

type stubPool struct{}

func (stubPool) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, nil
}
func (stubPool) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (stubPool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (stubPool) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

type stubTxPool struct{ stubPool }

func (stubTxPool) Commit() error   { return nil }
func (stubTxPool) Rollback() error { return nil }

func TestIsTxHandle(t *testing.T) {
	if isTxHandle(nil) {
		t.Error("nil db reported as transaction")
	}

	pooled := &gorm.DB{Statement: &gorm.Statement{ConnPool: stubPool{}}}
	if isTxHandle(pooled) {
		t.Error("pooled connection reported as transaction")
	}

	tx := &gorm.DB{Statement: &gorm.Statement{ConnPool: stubTxPool{}}}
	if !isTxHandle(tx) {
		t.Error("transaction handle not detected")
	}
}
