// Package backend assembles a ledger store from configuration. The handlers
// only see the Backend interface and never know which wiring is behind it.
package backend

import (
	"context"

	"conti/internal/core"
	"conti/internal/ledger"
)

// Backend bundles everything the web layer needs from a data store.
type Backend interface {
	ledger.ExpenseCreator
	ledger.ExpenseGetter
	ledger.ExpenseUpdater
	ledger.ExpenseDeleter
	ledger.ExpenseLister
	ledger.PurchaserLister
	ledger.RecurringStore

	SumByPayer(ctx context.Context, from, to core.Date) ([]core.PayerAmount, error)
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// BackendResult pairs the backend instance with its cleanup.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what backend creation needs.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Demo specific
	SeedRows int
}

// BackendType selects the wiring behind the Backend interface.
type BackendType string

const (
	// SQLiteBackend persists to a SQLite file and mirrors writes through AMQP.
	SQLiteBackend BackendType = "sqlite"
	// DemoBackend runs on a throwaway seeded database, no AMQP.
	DemoBackend BackendType = "demo"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, DemoBackend:
		return true
	default:
		return false
	}
}
