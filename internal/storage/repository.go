package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"conti/internal/core"
	"conti/internal/ledger"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense implements ledger.ExpenseCreator.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		PurchasedDate: e.Date.ISO(),
		PurchasedBy:   e.PaidBy,
		PriceCents:    e.Amount.Cents,
		Comment:       nullComment(e.Comment),
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"purchased_by", row.PurchasedBy,
		"price_cents", row.PriceCents,
		"purchased_date", row.PurchasedDate)

	return row.ID, nil
}

// GetExpense implements ledger.ExpenseGetter.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return toCoreExpense(row)
}

// UpdateExpense implements ledger.ExpenseUpdater. Updating a missing row is
// reported as ErrNotFound so the handler can answer 404.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	affected, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:            e.ID,
		PurchasedDate: e.Date.ISO(),
		PurchasedBy:   e.PaidBy,
		PriceCents:    e.Amount.Cents,
		Comment:       nullComment(e.Comment),
	})
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %d: %w", e.ID, ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID, "price_cents", e.Amount.Cents)
	return nil
}

// DeleteExpense implements ledger.ExpenseDeleter. A second delete of the same
// ID affects zero rows and succeeds.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	affected, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		slog.InfoContext(ctx, "Delete of missing expense ignored", "id", id)
	}
	return nil
}

// ListExpenses implements ledger.ExpenseLister.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ledger.Filter) ([]core.Expense, error) {
	params := ListExpensesParams{PaidBy: f.PaidBy}
	if !f.From.IsZero() {
		params.FromDate = f.From.ISO()
	}
	if !f.To.IsZero() {
		params.ToDate = f.To.ISO()
	}

	rows, err := r.queries.ListExpenses(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCoreExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ListPurchasers implements ledger.PurchaserLister.
func (r *SQLiteRepository) ListPurchasers(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListPurchasers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list purchasers: %w", err)
	}
	return names, nil
}

// SumByPayer returns the per-payer totals over an inclusive date range
// straight from SQL, independently of the pivot path.
func (r *SQLiteRepository) SumByPayer(ctx context.Context, from, to core.Date) ([]core.PayerAmount, error) {
	var fromDate, toDate string
	if !from.IsZero() {
		fromDate = from.ISO()
	}
	if !to.IsZero() {
		toDate = to.ISO()
	}
	rows, err := r.queries.SumByPayer(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("sum by payer: %w", err)
	}
	out := make([]core.PayerAmount, len(rows))
	for i, row := range rows {
		out[i] = core.PayerAmount{Name: row.PurchasedBy, Amount: core.Money{Cents: row.TotalCents}}
	}
	return out, nil
}

// GetPendingSyncExpenses returns expenses not yet mirrored to the backup sheet.
func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCoreExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// MarkSynced marks an expense as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkExpenseSynced(ctx, id); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError bumps the sync error counter for an expense.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkExpenseSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// CreateRecurring implements ledger.RecurringStore.
func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringExpense) (int64, error) {
	params := CreateRecurringParams{
		StartDate:  re.StartDate.ISO(),
		Every:      string(re.Every),
		PaidBy:     re.PaidBy,
		PriceCents: re.Amount.Cents,
		Comment:    nullComment(re.Comment),
	}
	if !re.EndDate.IsZero() {
		params.EndDate = sql.NullString{String: re.EndDate.ISO(), Valid: true}
	}
	id, err := r.queries.CreateRecurring(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("create recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense saved",
		"id", id, "every", re.Every, "price_cents", re.Amount.Cents)
	return id, nil
}

// ListRecurring implements ledger.RecurringStore.
func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.queries.ListAllRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return toCoreRecurring(rows)
}

// ListActiveRecurring returns templates whose window covers the given date.
func (r *SQLiteRepository) ListActiveRecurring(ctx context.Context, on core.Date) ([]core.RecurringExpense, error) {
	rows, err := r.queries.ListActiveRecurring(ctx, on.ISO())
	if err != nil {
		return nil, fmt.Errorf("list active recurring expenses: %w", err)
	}
	return toCoreRecurring(rows)
}

// DeleteRecurring implements ledger.RecurringStore by deactivating the
// template; already-materialized expenses are untouched.
func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id int64) error {
	if err := r.queries.DeactivateRecurring(ctx, id); err != nil {
		return fmt.Errorf("deactivate recurring expense: %w", err)
	}
	return nil
}

// MarkRecurringExecuted records that a template produced an expense on a date.
func (r *SQLiteRepository) MarkRecurringExecuted(ctx context.Context, id int64, on core.Date) error {
	if err := r.queries.UpdateRecurringLastExecution(ctx, id, on.ISO()); err != nil {
		return fmt.Errorf("update recurring last execution: %w", err)
	}
	return nil
}

func nullComment(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toCoreExpense(row Expense) (core.Expense, error) {
	d, err := core.ParseDate(row.PurchasedDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", row.ID, row.PurchasedDate, err)
	}
	return core.Expense{
		ID:      row.ID,
		Date:    d,
		PaidBy:  row.PurchasedBy,
		Amount:  core.Money{Cents: row.PriceCents},
		Comment: row.Comment.String,
	}, nil
}

func toCoreRecurring(rows []RecurringExpense) ([]core.RecurringExpense, error) {
	out := make([]core.RecurringExpense, 0, len(rows))
	for _, row := range rows {
		start, err := core.ParseDate(row.StartDate)
		if err != nil {
			return nil, fmt.Errorf("recurring %d has malformed start date %q: %w", row.ID, row.StartDate, err)
		}
		re := core.RecurringExpense{
			ID:        row.ID,
			StartDate: start,
			Every:     core.RepetitionTypes(row.Every),
			PaidBy:    row.PaidBy,
			Amount:    core.Money{Cents: row.PriceCents},
			Comment:   row.Comment.String,
		}
		if row.EndDate.Valid {
			if re.EndDate, err = core.ParseDate(row.EndDate.String); err != nil {
				return nil, fmt.Errorf("recurring %d has malformed end date %q: %w", row.ID, row.EndDate.String, err)
			}
		}
		if row.LastExecutionDate.Valid {
			if re.LastExecution, err = core.ParseDate(row.LastExecutionDate.String); err != nil {
				return nil, fmt.Errorf("recurring %d has malformed last execution date %q: %w", row.ID, row.LastExecutionDate.String, err)
			}
		}
		out = append(out, re)
	}
	return out, nil
}
