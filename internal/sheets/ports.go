package sheets

import (
	"context"

	"conti/internal/core"
)

// Ports for the spreadsheet backup mirror. The sheet is an export target,
// never a system of record; SQLite stays authoritative.
type (
	// BackupWriter mirrors an expense row into the backup sheet. The
	// returned reference identifies where the row landed (sheet range or a
	// synthetic ID for fakes).
	BackupWriter interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// BackupDeleter removes the mirrored row for an expense ID. Deleting a
	// row that was never mirrored is a no-op.
	BackupDeleter interface {
		DeleteExpense(ctx context.Context, id int64) error
	}
)
