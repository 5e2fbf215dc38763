// Package worker mirrors ledger rows to the backup spreadsheet, driven by
// queue messages with a periodic catch-up sweep for anything the queue missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/sheets"
	"conti/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.BackupWriter
	deleter   sheets.BackupDeleter
	batchSize int
	log       *slog.Logger
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer sheets.BackupWriter, deleter sheets.BackupDeleter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
		log:       applog.ForComponent("worker"),
	}
}

// HandleSyncMessage mirrors a single expense after a create or update. The
// message carries only the ID; the row is re-read from SQLite so the freshest
// version wins even when deliveries arrive out of order.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	expense, err := w.storage.GetExpense(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between publish and delivery. The delete message
			// will clean up the sheet.
			w.log.WarnContext(ctx, "Expense vanished before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get expense from storage: %w", err)
	}

	return w.mirrorExpense(ctx, expense.ID, expense)
}

// HandleDeleteMessage removes the mirrored row for a deleted expense. The row
// is already gone from SQLite, so the message snapshot is all we have.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.ExpenseDeleteMessage) error {
	if w.deleter == nil {
		w.log.WarnContext(ctx, "No backup deleter configured, skipping sheet deletion", "id", msg.ID)
		return nil
	}

	if err := w.deleter.DeleteExpense(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete expense from backup sheet: %w", err)
	}

	w.log.InfoContext(ctx, "Removed expense from backup sheet",
		"id", msg.ID,
		"purchased_by", msg.PurchasedBy,
		"price_cents", msg.PriceCents)
	return nil
}

// ProcessPendingExpenses mirrors rows whose synced_at is still unset. This is
// the catch-up path for lost queue messages.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.log.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, expense := range pending {
		if err := w.mirrorExpense(ctx, expense.ID, expense); err != nil {
			w.log.ErrorContext(ctx, "Failed to mirror pending expense",
				"id", expense.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup, with a
// larger batch, to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		w.log.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	w.log.InfoContext(ctx, "Found pending expenses on startup", "count", len(pending))

	synced := 0
	failed := 0
	for _, expense := range pending {
		if err := w.mirrorExpense(ctx, expense.ID, expense); err != nil {
			w.log.ErrorContext(ctx, "Failed to mirror expense during startup",
				"id", expense.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	w.log.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

// mirrorExpense appends the row to the sheet and records the outcome on the
// SQLite row. A failed append bumps sync_error so the row eventually stops
// being retried.
func (w *SyncWorker) mirrorExpense(ctx context.Context, id int64, expense core.Expense) error {
	ref, err := w.writer.AppendExpense(ctx, expense)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			w.log.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to backup sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The append worked; losing the marker only means one redundant
		// mirror later.
		w.log.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	w.log.InfoContext(ctx, "Mirrored expense to backup sheet",
		"id", id,
		"sheets_ref", ref,
		"paid_by", expense.PaidBy,
		"price_cents", expense.Amount.Cents)
	return nil
}
