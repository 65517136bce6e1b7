// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carmarket_backend/internal/app"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/platform/database"
	"carmarket_backend/internal/platform/logger"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	dryRun := migrateCmd.Bool("dry-run", false, "Connect and list the models without migrating")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrateCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("FATAL: Failed to parse migrate flags: %v", err)
		}
		runMigrate(*dryRun)
		return
	}

	startServer()
}

func runMigrate(dryRun bool) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for migrate: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for migrate: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for migrate", zap.Error(err))
	}
	defer database.CloseGORMDB(db)

	models := app.Models()
	if dryRun {
		appLogger.Info("Dry run: database reachable, skipping migration", zap.Int("models", len(models)))
		return
	}
	if err := database.Migrate(db, appLogger, models...); err != nil {
		appLogger.Fatal("Migration failed", zap.Error(err))
	}
	appLogger.Info("Migration completed successfully.")
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	timeout := cfg.ServerTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}
