// File: internal/audit/repository.go
package audit

import (
	"context"
	"fmt"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, entry *ActivityLog) error
	ListByListing(ctx context.Context, listingID uuid.UUID, page, pageSize int) ([]ActivityLog, *common.Pagination, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, entry *ActivityLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	return nil
}

// ListByListing returns the listing's audit trail, newest first.
func (r *gormRepository) ListByListing(ctx context.Context, listingID uuid.UUID, page, pageSize int) ([]ActivityLog, *common.Pagination, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ActivityLog{}).Where("listing_id = ?", listingID).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count activity logs for listing %s: %w", listingID, err)
	}

	var logs []ActivityLog
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&logs).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list activity logs for listing %s: %w", listingID, err)
	}
	return logs, common.NewPagination(total, page, pageSize), nil
}
