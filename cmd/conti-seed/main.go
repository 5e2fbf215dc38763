// Command conti-seed fills a SQLite database with plausible demo expenses.
package main

import (
	"context"
	"flag"
	"os"

	"conti/internal/cli"
	"conti/internal/seed"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	rows := flag.Int("rows", 0, "number of expenses to generate (default 200)")
	flag.Parse()

	cfg := cli.LoadAndValidateConfig(logger)
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	opts := seed.DefaultOptions()
	if *rows > 0 {
		opts.Rows = *rows
	}

	count, err := seed.Run(context.Background(), sqliteRepo, opts)
	if err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Seeding complete", "rows", count, "db_path", cfg.SQLiteDBPath)
}
