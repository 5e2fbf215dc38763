package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/core"
	"conti/internal/storage"
)

// RecurringProcessor materializes due recurring templates into ordinary
// expense rows.
type RecurringProcessor struct {
	storage        *storage.SQLiteRepository
	expenseService *ExpenseService
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, expenseService *ExpenseService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:        storage,
		expenseService: expenseService,
	}
}

// ProcessDueExpenses walks the active templates and creates an expense for
// each one whose schedule says it should fire. Returns how many fired.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.expenseService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.NewDate(now.Year(), int(now.Month()), now.Day())

	templates, err := p.storage.ListActiveRecurring(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list active recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"total_active", len(templates),
		"processing_date", today.ISO())

	processed := 0
	for _, re := range templates {
		checker, err := GetDuenessChecker(re.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with bad frequency",
				"recurring_id", re.ID, "error", err)
			continue
		}

		var lastExecution time.Time
		if !re.LastExecution.IsZero() {
			lastExecution = re.LastExecution.Time
		}
		if !checker.IsDue(lastExecution, now, re.StartDate) {
			continue
		}

		expense := core.Expense{
			Date:    today,
			PaidBy:  re.PaidBy,
			Amount:  re.Amount,
			Comment: re.Comment,
		}
		if _, err := p.expenseService.CreateExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"recurring_id", re.ID,
				"paid_by", re.PaidBy,
				"error", err)
			continue
		}

		if err := p.storage.MarkRecurringExecuted(ctx, re.ID, today); err != nil {
			// The expense exists; a stale marker means one duplicate on
			// the next run at worst.
			slog.ErrorContext(ctx, "Failed to update last execution date",
				"recurring_id", re.ID, "error", err)
		}

		processed++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurring_id", re.ID,
			"paid_by", re.PaidBy,
			"price_cents", re.Amount.Cents,
			"frequency", re.Every)
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"processed", processed,
		"total_checked", len(templates))
	return processed, nil
}
