package main

import (
	"time"

	"conti/internal/amqp"
	"conti/internal/cli"
	"conti/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting recurring-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// AMQP is optional; materialized expenses still land in SQLite and the
	// pending-sync sweep mirrors them later.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("AMQP client initialized")
		}
	}

	expenseService := services.NewExpenseService(sqliteRepo, publisher)
	defer expenseService.Close()

	processor := services.NewRecurringProcessor(sqliteRepo, expenseService)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Recurring expense processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Run once on startup so a restart never delays due templates.
	if count, err := processor.ProcessDueExpenses(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "expenses_created", count)
	}

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Recurring-worker shutdown complete")
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDueExpenses(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", "error", err)
			} else {
				logger.Info("Periodic processing complete",
					"expenses_created", count,
					"next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
			}
		}
	}
}
