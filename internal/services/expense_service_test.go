package services

import (
	"context"
	"path/filepath"
	"testing"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/storage"
)

type fakePublisher struct {
	syncs   []int64
	deletes []amqp.ExpenseDeleteMessage
	closed  bool
}

func (f *fakePublisher) PublishExpenseSync(_ context.Context, id int64) error {
	f.syncs = append(f.syncs, id)
	return nil
}

func (f *fakePublisher) PublishExpenseDelete(_ context.Context, msg amqp.ExpenseDeleteMessage) error {
	f.deletes = append(f.deletes, msg)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newTestService(t *testing.T) (*ExpenseService, *storage.SQLiteRepository, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "conti_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	pub := &fakePublisher{}
	svc := NewExpenseService(repo, pub)
	t.Cleanup(func() { svc.Close() })
	return svc, repo, pub
}

func TestCreateExpensePublishesSync(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Date:    core.NewDate(2025, 7, 1),
		PaidBy:  "Alice",
		Amount:  core.Money{Cents: 2500},
		Comment: "groceries",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if id == 0 {
		t.Fatal("CreateExpense() returned zero ID")
	}

	if len(pub.syncs) != 1 || pub.syncs[0] != id {
		t.Errorf("published syncs = %v, want [%d]", pub.syncs, id)
	}

	got, err := repo.GetExpense(ctx, id)
	if err != nil {
		t.Fatalf("GetExpense() error = %v", err)
	}
	if got.PaidBy != "Alice" || got.Amount.Cents != 2500 {
		t.Errorf("stored = %+v", got)
	}
}

func TestUpdateExpensePublishesSync(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Date:   core.NewDate(2025, 7, 1),
		PaidBy: "Bob",
		Amount: core.Money{Cents: 100},
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if err := svc.UpdateExpense(ctx, core.Expense{
		ID:     id,
		Date:   core.NewDate(2025, 7, 2),
		PaidBy: "Bob",
		Amount: core.Money{Cents: 150},
	}); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}

	if len(pub.syncs) != 2 {
		t.Errorf("published syncs = %v, want two entries for %d", pub.syncs, id)
	}
}

func TestDeleteExpensePublishesSnapshot(t *testing.T) {
	svc, repo, pub := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Date:    core.NewDate(2025, 7, 3),
		PaidBy:  "Chuck",
		Amount:  core.Money{Cents: 999},
		Comment: "beers 🍻",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if err := svc.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}

	if len(pub.deletes) != 1 {
		t.Fatalf("published deletes = %d, want 1", len(pub.deletes))
	}
	msg := pub.deletes[0]
	if msg.ID != id || msg.PurchasedBy != "Chuck" || msg.PriceCents != 999 || msg.PurchasedDate != "2025-07-03" || msg.Comment != "beers 🍻" {
		t.Errorf("delete snapshot = %+v", msg)
	}

	if _, err := repo.GetExpense(ctx, id); err == nil {
		t.Error("row should be gone after delete")
	}
}

func TestDeleteExpenseMissingIsNoOp(t *testing.T) {
	svc, _, pub := newTestService(t)

	if err := svc.DeleteExpense(context.Background(), 424242); err != nil {
		t.Fatalf("DeleteExpense() of missing ID should be a no-op, got %v", err)
	}
	if len(pub.deletes) != 0 {
		t.Errorf("no delete message expected, got %v", pub.deletes)
	}
}

func TestServiceWithoutPublisher(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "conti_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := NewExpenseService(repo, nil)
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Date:   core.NewDate(2025, 1, 1),
		PaidBy: "Alice",
		Amount: core.Money{Cents: 10},
	})
	if err != nil {
		t.Fatalf("CreateExpense() without publisher error = %v", err)
	}
	if err := svc.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("DeleteExpense() without publisher error = %v", err)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "conti_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	pub := &fakePublisher{}
	svc := NewExpenseService(repo, pub)

	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !pub.closed {
		t.Error("publisher not closed")
	}
}
