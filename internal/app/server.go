// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/jobs"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/middleware"
	"carmarket_backend/internal/moderation"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/sale"
	"carmarket_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// Models lists every persisted type, in an order AutoMigrate can create them.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&listing.Listing{},
		&listing.CarDetail{},
		&media.CarImage{},
		&media.CarVideo{},
		&listing.PendingChange{},
		&sale.Transaction{},
		&notification.Notification{},
		&audit.ActivityLog{},
	}
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	redis      *goredis.Client

	listingExpiryJob *jobs.ListingExpiryJob
}

// NewServer creates a new instance of our application server. redisClient may be nil.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *goredis.Client,
	tokenService middleware.TokenService,
	listingHandler *listing.Handler,
	moderationHandler *moderation.Handler,
	saleHandler *sale.Handler,
	notificationHandler *notification.Handler,
	listingExpiryJob *jobs.ListingExpiryJob,
) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := gin.New()

	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(tokenService, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	s := &Server{
		router:           router,
		cfg:              cfg,
		logger:           logger,
		db:               db,
		redis:            redisClient,
		listingExpiryJob: listingExpiryJob,
	}

	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	listingHandler.RegisterRoutes(v1, authMW)
	saleHandler.RegisterRoutes(v1, authMW, adminRoleMW)
	moderationHandler.RegisterRoutes(v1, authMW, adminRoleMW)
	notificationHandler.RegisterRoutes(v1.Group("/notifications", authMW))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{"database": "UP"}
	healthy := true

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Warn("Health check: database unreachable", zap.Error(err))
		checks["database"] = "DOWN"
		healthy = false
	}

	if s.redis != nil {
		checks["redis"] = "UP"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn("Health check: redis unreachable", zap.Error(err))
			checks["redis"] = "DOWN"
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP", "checks": checks})
}

func (s *Server) Start() error {
	if s.listingExpiryJob != nil {
		if err := s.listingExpiryJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start listing expiry job", zap.Error(err))
		}
	} else {
		s.logger.Info("Listing expiry job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("ginMode", gin.Mode()),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.listingExpiryJob != nil {
		s.listingExpiryJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
