// File: internal/audit/service.go
package audit

import (
	"context"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink records what actors did to listings.
type Sink interface {
	LogAction(ctx context.Context, entry Entry) error
}

// Service is the audit sink plus the admin read side.
type Service interface {
	Sink
	ListForListing(ctx context.Context, listingID uuid.UUID, page, pageSize int) ([]ActivityLog, *common.Pagination, error)
}

type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &ServiceImplementation{repo: repo, logger: logger}
}

func (s *ServiceImplementation) LogAction(ctx context.Context, entry Entry) error {
	level := entry.Level
	if level == "" {
		level = LevelInfo
	}
	category := entry.Category
	if category == "" {
		category = CategoryListing
	}

	row := &ActivityLog{
		Level:        level,
		Category:     category,
		Action:       entry.Action,
		Message:      entry.Message,
		TargetUserID: entry.TargetUserID,
		Metadata:     entry.Metadata,
	}
	if entry.ActorID != uuid.Nil {
		actor := entry.ActorID
		row.UserID = &actor
	}
	if entry.ListingID != uuid.Nil {
		listing := entry.ListingID
		row.ListingID = &listing
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return err
	}
	s.logger.Debug("Activity logged",
		zap.String("action", string(row.Action)),
		zap.String("category", string(row.Category)),
		zap.String("listingID", entry.ListingID.String()),
	)
	return nil
}

func (s *ServiceImplementation) ListForListing(ctx context.Context, listingID uuid.UUID, page, pageSize int) ([]ActivityLog, *common.Pagination, error) {
	logs, pagination, err := s.repo.ListByListing(ctx, listingID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list activity logs", zap.String("listingID", listingID.String()), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve activity logs.")
	}
	return logs, pagination, nil
}

// Record hands entry to sink and logs a failure instead of returning it.
func Record(ctx context.Context, sink Sink, logger *zap.Logger, entry Entry) {
	if sink == nil {
		return
	}
	if err := sink.LogAction(ctx, entry); err != nil {
		logger.Warn("Audit logging failed",
			zap.String("action", string(entry.Action)),
			zap.String("listingID", entry.ListingID.String()),
			zap.Error(err),
		)
	}
}
