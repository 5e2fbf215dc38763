// Package ledger defines the storage-side ports the HTTP layer depends on.
package ledger

import (
	"context"

	"conti/internal/core"
)

// Filter narrows expense listings. Zero-value dates mean unbounded; both
// bounds are inclusive. An empty PaidBy list means all payers.
type Filter struct {
	From   core.Date
	To     core.Date
	PaidBy []string
}

// Ports for outbound adapters.
type (
	ExpenseCreator interface {
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	}

	ExpenseGetter interface {
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
	}

	ExpenseUpdater interface {
		UpdateExpense(ctx context.Context, e core.Expense) error
	}

	// ExpenseDeleter removes an expense. Deleting an ID that no longer
	// exists is a no-op, not an error.
	ExpenseDeleter interface {
		DeleteExpense(ctx context.Context, id int64) error
	}

	ExpenseLister interface {
		ListExpenses(ctx context.Context, f Filter) ([]core.Expense, error)
	}

	// PurchaserLister returns the distinct payer names, sorted.
	PurchaserLister interface {
		ListPurchasers(ctx context.Context) ([]string, error)
	}

	RecurringStore interface {
		CreateRecurring(ctx context.Context, re core.RecurringExpense) (int64, error)
		ListRecurring(ctx context.Context) ([]core.RecurringExpense, error)
		DeleteRecurring(ctx context.Context, id int64) error
	}
)
