// Package adapters glues the storage and service layers to the ledger ports
// consumed by the HTTP handlers.
package adapters

import (
	"context"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/services"
	"conti/internal/storage"
)

// SQLiteAdapter serves the ledger ports from the SQLite repository. Writes go
// through the ExpenseService so every mutation also queues a backup mirror;
// reads hit the repository directly.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.ExpenseService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.ExpenseService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	return a.service.CreateExpense(ctx, e)
}

func (a *SQLiteAdapter) UpdateExpense(ctx context.Context, e core.Expense) error {
	return a.service.UpdateExpense(ctx, e)
}

func (a *SQLiteAdapter) DeleteExpense(ctx context.Context, id int64) error {
	return a.service.DeleteExpense(ctx, id)
}

func (a *SQLiteAdapter) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return a.storage.GetExpense(ctx, id)
}

func (a *SQLiteAdapter) ListExpenses(ctx context.Context, f ledger.Filter) ([]core.Expense, error) {
	return a.storage.ListExpenses(ctx, f)
}

func (a *SQLiteAdapter) ListPurchasers(ctx context.Context) ([]string, error) {
	return a.storage.ListPurchasers(ctx)
}

func (a *SQLiteAdapter) SumByPayer(ctx context.Context, from, to core.Date) ([]core.PayerAmount, error) {
	return a.storage.SumByPayer(ctx, from, to)
}

func (a *SQLiteAdapter) CreateRecurring(ctx context.Context, re core.RecurringExpense) (int64, error) {
	return a.storage.CreateRecurring(ctx, re)
}

func (a *SQLiteAdapter) ListRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	return a.storage.ListRecurring(ctx)
}

func (a *SQLiteAdapter) DeleteRecurring(ctx context.Context, id int64) error {
	return a.storage.DeleteRecurring(ctx, id)
}
