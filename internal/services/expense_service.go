package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/storage"
)

// SyncPublisher publishes backup-mirror messages. Satisfied by *amqp.Client.
type SyncPublisher interface {
	PublishExpenseSync(ctx context.Context, id int64) error
	PublishExpenseDelete(ctx context.Context, msg amqp.ExpenseDeleteMessage) error
	Close() error
}

// ExpenseService orchestrates expense writes across SQLite and the sync
// queue. SQLite is the system of record; queue publishes are best effort and
// the pending-sync sweep covers losses.
type ExpenseService struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
}

func NewExpenseService(storage *storage.SQLiteRepository, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateExpense saves an expense and asks the worker to mirror it.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Expense is saved locally; the sweep picks it up later.
	}

	return id, nil
}

// UpdateExpense rewrites an expense and queues a fresh mirror of the row.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	if err := s.publishSync(ctx, e.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", e.ID, "error", err)
	}

	return nil
}

// DeleteExpense removes an expense and queues removal of its mirrored row.
// The queue message carries a snapshot because the row is gone by the time
// the worker sees it. Deleting a missing ID is a no-op.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	snapshot, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.InfoContext(ctx, "Delete of missing expense, nothing to do", "id", id)
			return nil
		}
		return fmt.Errorf("load expense before delete: %w", err)
	}

	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	msg := amqp.ExpenseDeleteMessage{
		ID:            snapshot.ID,
		PurchasedDate: snapshot.Date.ISO(),
		PurchasedBy:   snapshot.PaidBy,
		PriceCents:    snapshot.Amount.Cents,
		Comment:       snapshot.Comment,
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping delete message", "id", id)
		return nil
	}
	if err := s.publisher.PublishExpenseDelete(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Local delete already happened; the sheet keeps a stale row
		// until someone re-mirrors.
	}

	return nil
}

func (s *ExpenseService) publishSync(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishExpenseSync(ctx, id)
}

// Close closes both storage and the publisher connection.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}
