// File: cmd/server/providers.go
package main

import (
	"log"

	"carmarket_backend/internal/app"
	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/platform/database"
	"carmarket_backend/internal/platform/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideLogger builds the application logger and flushes it on cleanup.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zl, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return zl, func() {
		if err := zl.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// provideDatabase connects to postgres and, when DB_AUTO_MIGRATE is set, migrates the schema.
func provideDatabase(cfg *config.Config, zl *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { database.CloseGORMDB(db) }

	if cfg.DBAutoMigrate {
		if err := database.Migrate(db, zl, app.Models()...); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return db, cleanup, nil
}

func provideNotificationSink(s notification.Service) notification.Sink {
	return s
}

func provideAuditSink(s audit.Service) audit.Sink {
	return s
}
