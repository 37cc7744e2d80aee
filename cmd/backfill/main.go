// Command backfill re-derives session ids and creation types for every stored creation.
package main

import (
	"context"
	"flag"
	"os"

	"genstudio-be/internal/config"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/backfill"
	"genstudio-be/pkg/database"
	"genstudio-be/pkg/reconcile"

	"github.com/fatih/color"
)

func main() {
	logPath := flag.String("log", "logs/backfill.log", "log file path")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	color.Cyan("🚀 Starting session/type backfill\n")

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.Verbose)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	sysLogger := logger.NewFileLogger(*logPath)
	defer sysLogger.Sync()

	runner := backfill.NewRunner(
		unitofwork.NewRepositoryFactory(db),
		reconcile.NewClassifier(reconcile.DefaultRules),
		sysLogger,
	)

	report, err := runner.Run(context.Background())
	if err != nil {
		color.Red("Backfill failed, nothing was changed: %v", err)
		os.Exit(1)
	}

	color.Green("✅ Processed %d creations in %s", report.TotalProcessed, report.Duration)
	color.Yellow("   Sessions with an extraction: %d", report.ExtractionSessions)
	color.Yellow("   Upgraded to digital_human:   %d", report.UpgradedToDigitalHuman)
}
