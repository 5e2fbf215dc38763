package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"conti/internal/core"
	"conti/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "conti_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateThenListIncludesExpenseOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := core.Expense{
		Date:    core.NewDate(2025, 6, 15),
		PaidBy:  "Alice",
		Amount:  core.Money{Cents: 1234},
		Comment: "pizza 🍕",
	}
	id, err := repo.CreateExpense(ctx, e)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	list, err := repo.ListExpenses(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := 0
	for _, got := range list {
		if got.ID != id {
			continue
		}
		found++
		if got.Date.ISO() != "2025-06-15" || got.PaidBy != "Alice" ||
			got.Amount.Cents != 1234 || got.Comment != "pizza 🍕" {
			t.Fatalf("fields changed in round trip: %+v", got)
		}
	}
	if found != 1 {
		t.Fatalf("expense appeared %d times, want exactly once", found)
	}
}

func TestUpdateChangesOnlyThatRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id1, _ := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 6, 1), PaidBy: "Alice", Amount: core.Money{Cents: 100}})
	id2, _ := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 6, 2), PaidBy: "Bob", Amount: core.Money{Cents: 200}})

	err := repo.UpdateExpense(ctx, core.Expense{
		ID:      id1,
		Date:    core.NewDate(2025, 6, 3),
		PaidBy:  "Alice",
		Amount:  core.Money{Cents: 150},
		Comment: "corrected",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got1, err := repo.GetExpense(ctx, id1)
	if err != nil {
		t.Fatalf("get updated: %v", err)
	}
	if got1.Amount.Cents != 150 || got1.Date.ISO() != "2025-06-03" || got1.Comment != "corrected" {
		t.Fatalf("row not updated: %+v", got1)
	}

	got2, err := repo.GetExpense(ctx, id2)
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if got2.Amount.Cents != 200 || got2.PaidBy != "Bob" || got2.Date.ISO() != "2025-06-02" {
		t.Fatalf("other row was touched: %+v", got2)
	}
}

func TestUpdateMissingRowReturnsNotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdateExpense(context.Background(), core.Expense{
		ID: 9999, Date: core.NewDate(2025, 1, 1), PaidBy: "Ghost", Amount: core.Money{Cents: 1},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, _ := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 6, 1), PaidBy: "Alice", Amount: core.Money{Cents: 100}})

	if err := repo.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	// Second delete of the same row is a no-op, not an error
	if err := repo.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	if _, err := repo.GetExpense(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	list, err := repo.ListExpenses(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d rows", len(list))
	}
}

func TestListDateFilterIsInclusive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2025, 5, 31),
		core.NewDate(2025, 6, 1),
		core.NewDate(2025, 6, 15),
		core.NewDate(2025, 6, 30),
		core.NewDate(2025, 7, 1),
	}
	for _, d := range dates {
		if _, err := repo.CreateExpense(ctx, core.Expense{Date: d, PaidBy: "Alice", Amount: core.Money{Cents: 100}}); err != nil {
			t.Fatalf("create %s: %v", d.ISO(), err)
		}
	}

	list, err := repo.ListExpenses(ctx, ledger.Filter{
		From: core.NewDate(2025, 6, 1),
		To:   core.NewDate(2025, 6, 30),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 rows in June, got %d", len(list))
	}
	for _, e := range list {
		if e.Date.ISO() < "2025-06-01" || e.Date.ISO() > "2025-06-30" {
			t.Fatalf("row outside bounds: %s", e.Date.ISO())
		}
	}

	// Ordered newest first
	for i := 1; i < len(list); i++ {
		if list[i-1].Date.ISO() < list[i].Date.ISO() {
			t.Fatalf("not ordered by date desc: %s before %s", list[i-1].Date.ISO(), list[i].Date.ISO())
		}
	}
}

func TestListPayerFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, p := range []string{"Alice", "Bob", "Chuck", "Alice"} {
		if _, err := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 6, 1), PaidBy: p, Amount: core.Money{Cents: 100}}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := repo.ListExpenses(ctx, ledger.Filter{PaidBy: []string{"Alice", "Chuck"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(list))
	}
	for _, e := range list {
		if e.PaidBy == "Bob" {
			t.Fatalf("Bob should have been filtered out")
		}
	}
}

func TestListPurchasersDistinctSorted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, p := range []string{"Chuck", "Alice", "Bob", "Alice"} {
		if _, err := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 6, 1), PaidBy: p, Amount: core.Money{Cents: 100}}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	names, err := repo.ListPurchasers(ctx)
	if err != nil {
		t.Fatalf("list purchasers: %v", err)
	}
	want := []string{"Alice", "Bob", "Chuck"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestSumByPayerMatchesRawRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []core.Expense{
		{Date: core.NewDate(2025, 6, 1), PaidBy: "Alice", Amount: core.Money{Cents: 100}},
		{Date: core.NewDate(2025, 6, 2), PaidBy: "Alice", Amount: core.Money{Cents: 250}},
		{Date: core.NewDate(2025, 6, 2), PaidBy: "Bob", Amount: core.Money{Cents: 75}},
		{Date: core.NewDate(2025, 7, 1), PaidBy: "Alice", Amount: core.Money{Cents: 999}}, // outside range
	}
	for _, e := range rows {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	totals, err := repo.SumByPayer(ctx, core.NewDate(2025, 6, 1), core.NewDate(2025, 6, 30))
	if err != nil {
		t.Fatalf("sum by payer: %v", err)
	}
	got := map[string]int64{}
	for _, pa := range totals {
		got[pa.Name] = pa.Amount.Cents
	}
	if got["Alice"] != 350 || got["Bob"] != 75 {
		t.Fatalf("totals = %v", got)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, _ := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 6, 1), PaidBy: "Alice", Amount: core.Money{Cents: 100}})

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("expected one pending row, got %+v", pending)
	}

	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.GetPendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("pending after sync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
}

func TestRecurringLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateRecurring(ctx, core.RecurringExpense{
		StartDate: core.NewDate(2025, 1, 1),
		Every:     core.Monthly,
		PaidBy:    "Bob",
		Amount:    core.Money{Cents: 85000},
		Comment:   "rent",
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	active, err := repo.ListActiveRecurring(ctx, core.NewDate(2025, 6, 1))
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != id || active[0].Every != core.Monthly {
		t.Fatalf("unexpected active templates: %+v", active)
	}

	if err := repo.MarkRecurringExecuted(ctx, id, core.NewDate(2025, 6, 1)); err != nil {
		t.Fatalf("mark executed: %v", err)
	}
	active, _ = repo.ListActiveRecurring(ctx, core.NewDate(2025, 6, 2))
	if active[0].LastExecution.ISO() != "2025-06-01" {
		t.Fatalf("last execution = %s", active[0].LastExecution.ISO())
	}

	if err := repo.DeleteRecurring(ctx, id); err != nil {
		t.Fatalf("delete recurring: %v", err)
	}
	active, _ = repo.ListActiveRecurring(ctx, core.NewDate(2025, 6, 2))
	if len(active) != 0 {
		t.Fatalf("expected no active templates after delete")
	}
}
