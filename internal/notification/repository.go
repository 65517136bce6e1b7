// File: internal/notification/repository.go
package notification

import (
	"context"
	"fmt"
	"time"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows an inbox listing.
type ListFilter struct {
	UnreadOnly bool
	ListingID  *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, notification *Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *gormRepository) inbox(ctx context.Context, userID uuid.UUID, filter ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	if filter.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if filter.ListingID != nil {
		q = q.Where("related_listing_id = ?", *filter.ListingID)
	}
	return q
}

// ListForUser returns a page of the user's notifications, newest first.
func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter, page, pageSize int) ([]Notification, *common.Pagination, error) {
	var total int64
	if err := r.inbox(ctx, userID, filter).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count notifications for user %s: %w", userID, err)
	}

	var notifications []Notification
	err := r.inbox(ctx, userID, filter).
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&notifications).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list notifications for user %s: %w", userID, err)
	}
	return notifications, common.NewPagination(total, page, pageSize), nil
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.inbox(ctx, userID, ListFilter{UnreadOnly: true}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for user %s: %w", userID, err)
	}
	return n, nil
}

// MarkAsRead is idempotent for the owner. Another user's notification reads as not found.
func (r *gormRepository) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("COALESCE(read_at, ?)", at)})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %s as read: %w", notificationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Notification not found or not owned by user.")
	}
	return nil
}

// MarkAllAsRead returns how many notifications changed from unread to read.
func (r *gormRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}
