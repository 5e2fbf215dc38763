package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries wraps parameterized SQL statements against the conti schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Expense mirrors one row of the expenses table.
type Expense struct {
	ID            int64
	PurchasedDate string // YYYY-MM-DD
	PurchasedBy   string
	PriceCents    int64
	Comment       sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SyncedAt      sql.NullTime
	SyncError     int64
}

// RecurringExpense mirrors one row of the recurring_expenses table.
type RecurringExpense struct {
	ID                int64
	StartDate         string
	EndDate           sql.NullString
	Every             string
	PaidBy            string
	PriceCents        int64
	Comment           sql.NullString
	LastExecutionDate sql.NullString
	Active            int64
}

const createExpense = `
INSERT INTO expenses (purchased_date, purchased_by, price_cents, comment, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, purchased_date, purchased_by, price_cents, comment, created_at, updated_at, synced_at, sync_error
`

type CreateExpenseParams struct {
	PurchasedDate string
	PurchasedBy   string
	PriceCents    int64
	Comment       sql.NullString
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	now := time.Now().UTC()
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.PurchasedDate, arg.PurchasedBy, arg.PriceCents, arg.Comment, now, now)
	var e Expense
	err := row.Scan(&e.ID, &e.PurchasedDate, &e.PurchasedBy, &e.PriceCents, &e.Comment,
		&e.CreatedAt, &e.UpdatedAt, &e.SyncedAt, &e.SyncError)
	return e, err
}

const getExpense = `
SELECT id, purchased_date, purchased_by, price_cents, comment, created_at, updated_at, synced_at, sync_error
FROM expenses
WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var e Expense
	err := row.Scan(&e.ID, &e.PurchasedDate, &e.PurchasedBy, &e.PriceCents, &e.Comment,
		&e.CreatedAt, &e.UpdatedAt, &e.SyncedAt, &e.SyncError)
	return e, err
}

const updateExpense = `
UPDATE expenses
SET purchased_date = ?, purchased_by = ?, price_cents = ?, comment = ?, updated_at = ?, synced_at = NULL, sync_error = 0
WHERE id = ?
`

type UpdateExpenseParams struct {
	ID            int64
	PurchasedDate string
	PurchasedBy   string
	PriceCents    int64
	Comment       sql.NullString
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.PurchasedDate, arg.PurchasedBy, arg.PriceCents, arg.Comment, time.Now().UTC(), arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `
DELETE FROM expenses WHERE id = ?
`

// DeleteExpense returns the number of rows removed; deleting a missing row
// yields zero without error.
func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listExpensesBase = `
SELECT id, purchased_date, purchased_by, price_cents, comment, created_at, updated_at, synced_at, sync_error
FROM expenses
`

type ListExpensesParams struct {
	FromDate string   // YYYY-MM-DD inclusive, empty means unbounded
	ToDate   string   // YYYY-MM-DD inclusive, empty means unbounded
	PaidBy   []string // empty means all payers
}

// ListExpenses returns rows matching the filter ordered by purchase date
// descending, newest insert first within a day.
func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	var (
		conds []string
		args  []interface{}
	)
	if arg.FromDate != "" {
		conds = append(conds, "purchased_date >= ?")
		args = append(args, arg.FromDate)
	}
	if arg.ToDate != "" {
		conds = append(conds, "purchased_date <= ?")
		args = append(args, arg.ToDate)
	}
	if len(arg.PaidBy) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(arg.PaidBy)), ",")
		conds = append(conds, "purchased_by IN ("+placeholders+")")
		for _, p := range arg.PaidBy {
			args = append(args, p)
		}
	}

	query := listExpensesBase
	if len(conds) > 0 {
		query += "WHERE " + strings.Join(conds, " AND ") + "\n"
	}
	query += "ORDER BY purchased_date DESC, id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.PurchasedDate, &e.PurchasedBy, &e.PriceCents, &e.Comment,
			&e.CreatedAt, &e.UpdatedAt, &e.SyncedAt, &e.SyncError); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const listPurchasers = `
SELECT DISTINCT purchased_by FROM expenses ORDER BY purchased_by
`

func (q *Queries) ListPurchasers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPurchasers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

const sumByPayer = `
SELECT purchased_by, COALESCE(SUM(price_cents), 0) AS total_cents
FROM expenses
WHERE (? = '' OR purchased_date >= ?)
  AND (? = '' OR purchased_date <= ?)
GROUP BY purchased_by
ORDER BY purchased_by
`

type SumByPayerRow struct {
	PurchasedBy string
	TotalCents  int64
}

func (q *Queries) SumByPayer(ctx context.Context, fromDate, toDate string) ([]SumByPayerRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByPayer, fromDate, fromDate, toDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SumByPayerRow
	for rows.Next() {
		var r SumByPayerRow
		if err := rows.Scan(&r.PurchasedBy, &r.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getPendingSyncExpenses = `
SELECT id, purchased_date, purchased_by, price_cents, comment, created_at, updated_at, synced_at, sync_error
FROM expenses
WHERE synced_at IS NULL AND sync_error < 3
ORDER BY id
LIMIT ?
`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncExpenses, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.PurchasedDate, &e.PurchasedBy, &e.PriceCents, &e.Comment,
			&e.CreatedAt, &e.UpdatedAt, &e.SyncedAt, &e.SyncError); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const markExpenseSynced = `
UPDATE expenses SET synced_at = ?, sync_error = 0 WHERE id = ?
`

func (q *Queries) MarkExpenseSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markExpenseSynced, time.Now().UTC(), id)
	return err
}

const markExpenseSyncError = `
UPDATE expenses SET sync_error = sync_error + 1 WHERE id = ?
`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markExpenseSyncError, id)
	return err
}

const createRecurring = `
INSERT INTO recurring_expenses (start_date, end_date, every, paid_by, price_cents, comment, active)
VALUES (?, ?, ?, ?, ?, ?, 1)
RETURNING id
`

type CreateRecurringParams struct {
	StartDate  string
	EndDate    sql.NullString
	Every      string
	PaidBy     string
	PriceCents int64
	Comment    sql.NullString
}

func (q *Queries) CreateRecurring(ctx context.Context, arg CreateRecurringParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createRecurring,
		arg.StartDate, arg.EndDate, arg.Every, arg.PaidBy, arg.PriceCents, arg.Comment).Scan(&id)
	return id, err
}

const getRecurring = `
SELECT id, start_date, end_date, every, paid_by, price_cents, comment, last_execution_date, active
FROM recurring_expenses
WHERE id = ?
`

func (q *Queries) GetRecurring(ctx context.Context, id int64) (RecurringExpense, error) {
	row := q.db.QueryRowContext(ctx, getRecurring, id)
	var re RecurringExpense
	err := row.Scan(&re.ID, &re.StartDate, &re.EndDate, &re.Every, &re.PaidBy,
		&re.PriceCents, &re.Comment, &re.LastExecutionDate, &re.Active)
	return re, err
}

const listActiveRecurring = `
SELECT id, start_date, end_date, every, paid_by, price_cents, comment, last_execution_date, active
FROM recurring_expenses
WHERE active = 1
  AND start_date <= ?
  AND (end_date IS NULL OR end_date >= ?)
ORDER BY id
`

// ListActiveRecurring returns templates whose [start, end] window covers the
// given date.
func (q *Queries) ListActiveRecurring(ctx context.Context, onDate string) ([]RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRecurring, onDate, onDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecurringExpense
	for rows.Next() {
		var re RecurringExpense
		if err := rows.Scan(&re.ID, &re.StartDate, &re.EndDate, &re.Every, &re.PaidBy,
			&re.PriceCents, &re.Comment, &re.LastExecutionDate, &re.Active); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

const listAllRecurring = `
SELECT id, start_date, end_date, every, paid_by, price_cents, comment, last_execution_date, active
FROM recurring_expenses
WHERE active = 1
ORDER BY id
`

func (q *Queries) ListAllRecurring(ctx context.Context) ([]RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, listAllRecurring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecurringExpense
	for rows.Next() {
		var re RecurringExpense
		if err := rows.Scan(&re.ID, &re.StartDate, &re.EndDate, &re.Every, &re.PaidBy,
			&re.PriceCents, &re.Comment, &re.LastExecutionDate, &re.Active); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

const deactivateRecurring = `
UPDATE recurring_expenses SET active = 0 WHERE id = ?
`

func (q *Queries) DeactivateRecurring(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deactivateRecurring, id)
	return err
}

const updateRecurringLastExecution = `
UPDATE recurring_expenses SET last_execution_date = ? WHERE id = ?
`

func (q *Queries) UpdateRecurringLastExecution(ctx context.Context, id int64, onDate string) error {
	_, err := q.db.ExecContext(ctx, updateRecurringLastExecution, onDate, id)
	return err
}
