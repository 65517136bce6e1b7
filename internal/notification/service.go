package notification

import (
	"context"
	"time"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink accepts notifications from domain services.
type Sink interface {
	Notify(ctx context.Context, msg Message) (*Notification, error)
}

// Service is the notification store plus the read-side operations exposed over HTTP.
type Service interface {
	Sink
	GetNotificationsForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ServiceImplementation struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher Publisher, logger *zap.Logger) Service {
	return &ServiceImplementation{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// Notify stores the notification and then publishes it. Publishing is best-effort.
func (s *ServiceImplementation) Notify(ctx context.Context, msg Message) (*Notification, error) {
	n := &Notification{
		UserID:           msg.UserID,
		Type:             msg.Type,
		Title:            msg.Title,
		Message:          msg.Body,
		RelatedListingID: msg.RelatedListingID,
		Metadata:         msg.Metadata,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification",
			zap.String("userID", msg.UserID.String()),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("Failed to publish notification", zap.String("notificationID", n.ID.String()), zap.Error(err))
		}
	}
	return n, nil
}

func (s *ServiceImplementation) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error) {
	page, pageSize = common.NormalizePage(page, pageSize)
	notifications, pagination, err := s.repo.ListForUser(ctx, userID, filter, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to get notifications", zap.String("userID", userID.String()), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return notifications, pagination, nil
}

func (s *ServiceImplementation) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.String("userID", userID.String()), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not count notifications.")
	}
	return n, nil
}

func (s *ServiceImplementation) MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID, s.now().UTC()); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to mark notification as read", zap.String("notificationID", notificationID.String()), zap.Error(err))
		return common.ErrInternalServer.WithDetails("Could not mark notification as read.")
	}
	return nil
}

func (s *ServiceImplementation) MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID, s.now().UTC())
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.String("userID", userID.String()), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not mark notifications as read.")
	}
	return count, nil
}

// Deliver hands msg to sink and logs a failure instead of returning it.
// Domain services call this after their transaction commits.
func Deliver(ctx context.Context, sink Sink, logger *zap.Logger, msg Message) {
	if sink == nil {
		return
	}
	if _, err := sink.Notify(ctx, msg); err != nil {
		logger.Warn("Notification delivery failed",
			zap.String("userID", msg.UserID.String()),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
	}
}
