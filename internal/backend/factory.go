package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"conti/internal/adapters"
	"conti/internal/amqp"
	"conti/internal/seed"
	"conti/internal/services"
	"conti/internal/storage"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case DemoBackend:
		return f.createDemoBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it writes still land in SQLite and the
	// pending-sync sweep catches up once a worker appears.
	var publisher services.SyncPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = amqpClient
		}
	}

	expenseService := services.NewExpenseService(sqliteRepo, publisher)
	adapter := adapters.NewSQLiteAdapter(sqliteRepo, expenseService)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: expenseService.Close,
	}, nil
}

// createDemoBackend builds a throwaway seeded database so the app can be
// tried without any infrastructure.
func (f *DefaultFactory) createDemoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dir, err := os.MkdirTemp("", "conti-demo-*")
	if err != nil {
		return nil, fmt.Errorf("create demo directory: %w", err)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(filepath.Join(dir, "demo.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("initialize demo repository: %w", err)
	}

	opts := seed.DefaultOptions()
	if config.SeedRows > 0 {
		opts.Rows = config.SeedRows
	}
	if _, err := seed.Run(ctx, sqliteRepo, opts); err != nil {
		sqliteRepo.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("seed demo data: %w", err)
	}

	expenseService := services.NewExpenseService(sqliteRepo, nil)
	adapter := adapters.NewSQLiteAdapter(sqliteRepo, expenseService)

	f.logger.Info("Initialized demo backend", "rows", opts.Rows, "dir", dir)

	return &BackendResult{
		Backend: adapter,
		Cleanup: func() error {
			err := expenseService.Close()
			os.RemoveAll(dir)
			return err
		},
	}, nil
}
