// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for listing data operations.
type Repository interface {
	// Create inserts the listing and its car detail. Media rows are written by the media ledger.
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id uuid.UUID, preloadDetail bool) (*Listing, error)
	// LockForUpdate holds a row lock on the listing until the surrounding transaction ends.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]interface{}) error
	UpdateCarDetailColumns(ctx context.Context, carDetailID uuid.UUID, cols map[string]interface{}) error
	// ApplyTransition writes status columns only if the listing is still in from.
	ApplyTransition(ctx context.Context, id uuid.UUID, from Status, cols map[string]interface{}) error
	// Reopen moves the listing to pending if its committed status is one of from.
	// It reports false when nothing matched.
	Reopen(ctx context.Context, id uuid.UUID, from []Status, cols map[string]interface{}) (bool, error)
	// MarkSold moves an approved, unsold listing to sold. It reports false when another
	// caller got there first or the listing is no longer approved.
	MarkSold(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, counter Counter) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, page, pageSize int) ([]Listing, *common.Pagination, error)
	ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]Listing, *common.Pagination, error)
	FindExpired(ctx context.Context, now time.Time) ([]Listing, error)
	WithTx(tx *gorm.DB) Repository
}

// Counter names an engagement counter column.
type Counter string

const (
	CounterViews     Counter = "view_count"
	CounterInquiries Counter = "inquiry_count"
	CounterFavorites Counter = "favorite_count"
)

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

// preloader loads the car detail with both media collections in display order.
func (r *gormRepository) preloader(query *gorm.DB) *gorm.DB {
	return query.Preload("CarDetail").
		Preload("CarDetail.Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("CarDetail.Videos", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") })
}

func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(listing).Error; err != nil {
			return fmt.Errorf("failed to create listing: %w", err)
		}
		if listing.CarDetail != nil {
			listing.CarDetail.ListingID = listing.ID
			if err := tx.Omit(clause.Associations).Create(listing.CarDetail).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return common.ErrConflict.WithDetails("Listing already has car details.")
				}
				return fmt.Errorf("failed to create car details: %w", err)
			}
		}
		return nil
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID, preloadDetail bool) (*Listing, error) {
	var listing Listing
	query := r.db.WithContext(ctx)
	if preloadDetail {
		query = r.preloader(query)
	}
	err := query.Where("id = ?", id).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Listing not found.")
		}
		return nil, fmt.Errorf("failed to find listing %s: %w", id, err)
	}
	return &listing, nil
}

// LockForUpdate issues SELECT ... FOR UPDATE. The sqlite dialect drops the locking clause.
func (r *gormRepository) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&locked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound.WithDetails("Listing not found.")
		}
		return fmt.Errorf("failed to lock listing %s: %w", id, err)
	}
	return nil
}

func (r *gormRepository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]interface{}) error {
	if len(cols) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&Listing{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update listing %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Listing not found.")
	}
	return nil
}

func (r *gormRepository) UpdateCarDetailColumns(ctx context.Context, carDetailID uuid.UUID, cols map[string]interface{}) error {
	if len(cols) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&CarDetail{}).Where("id = ?", carDetailID).Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update car detail %s: %w", carDetailID, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Car detail not found.")
	}
	return nil
}

func (r *gormRepository) ApplyTransition(ctx context.Context, id uuid.UUID, from Status, cols map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&Listing{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update status of listing %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Listing status changed concurrently.")
	}
	return nil
}

func (r *gormRepository) Reopen(ctx context.Context, id uuid.UUID, from []Status, cols map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Listing{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(cols)
	if result.Error != nil {
		return false, fmt.Errorf("failed to reopen listing %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) MarkSold(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Listing{}).
		Where("id = ? AND sold_at IS NULL AND status = ?", id, StatusApproved).
		Updates(map[string]interface{}{
			"status":    StatusSold,
			"sold_at":   at,
			"is_active": false,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark listing %s as sold: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) IncrementCounter(ctx context.Context, id uuid.UUID, counter Counter) error {
	switch counter {
	case CounterViews, CounterInquiries, CounterFavorites:
	default:
		return fmt.Errorf("unknown listing counter %q", counter)
	}
	column := string(counter)
	result := r.db.WithContext(ctx).
		Model(&Listing{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment %s of listing %s: %w", column, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Listing not found.")
	}
	return nil
}

func (r *gormRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, page, pageSize int) ([]Listing, *common.Pagination, error) {
	return r.paginate(r.db.WithContext(ctx).Model(&Listing{}).Where("seller_id = ?", sellerID), "created_at DESC, id DESC", page, pageSize)
}

func (r *gormRepository) ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]Listing, *common.Pagination, error) {
	return r.paginate(r.db.WithContext(ctx).Model(&Listing{}).Where("status = ?", status), "created_at ASC, id ASC", page, pageSize)
}

func (r *gormRepository) paginate(query *gorm.DB, order string, page, pageSize int) ([]Listing, *common.Pagination, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count listings: %w", err)
	}

	var listings []Listing
	err := r.preloader(query.Session(&gorm.Session{})).
		Order(order).
		Offset(common.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&listings).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, common.NewPagination(total, page, pageSize), nil
}

func (r *gormRepository) FindExpired(ctx context.Context, now time.Time) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", StatusApproved, now).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find expired listings: %w", err)
	}
	return listings, nil
}
