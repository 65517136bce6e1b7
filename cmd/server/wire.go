// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"carmarket_backend/internal/app"
	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/jobs"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/middleware"
	"carmarket_backend/internal/moderation"
	"carmarket_backend/internal/notification"
	platformredis "carmarket_backend/internal/platform/redis"
	"carmarket_backend/internal/policy"
	"carmarket_backend/internal/sale"
	"carmarket_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform
		provideLogger,
		provideDatabase,
		platformredis.NewClient,
		middleware.NewTokenService,
		policy.NewRoleAuthorizer,

		// Repositories
		user.NewGORMRepository,
		listing.NewGORMRepository,
		listing.NewGORMPendingChangeRepository,
		media.NewGORMRepository,
		sale.NewGORMRepository,
		notification.NewGORMRepository,
		audit.NewGORMRepository,

		// Side-effect sinks
		notification.NewRedisPublisher,
		notification.NewService,
		provideNotificationSink,
		audit.NewService,
		provideAuditSink,

		// Domain services
		listing.NewService,
		moderation.NewService,
		sale.NewService,

		// Handlers and jobs
		listing.NewHandler,
		moderation.NewHandler,
		sale.NewHandler,
		notification.NewHandler,
		jobs.NewListingExpiryJob,

		app.NewServer,
	)
	return nil, nil, nil
}
