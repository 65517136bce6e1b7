// File: internal/sale/repository.go
package sale

import (
	"context"
	"fmt"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for transaction data operations.
type Repository interface {
	// Create inserts a transaction. A duplicate transaction number surfaces as gorm.ErrDuplicatedKey.
	Create(ctx context.Context, txn *Transaction) error
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]Transaction, error)
	// ListAll returns a page of every transaction, newest first.
	ListAll(ctx context.Context, page, pageSize int) ([]Transaction, *common.Pagination, error)
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM transaction repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, txn *Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction %s: %w", txn.TransactionNumber, err)
	}
	return nil
}

func (r *gormRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]Transaction, error) {
	var txns []Transaction
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for listing %s: %w", listingID, err)
	}
	return txns, nil
}

func (r *gormRepository) ListAll(ctx context.Context, page, pageSize int) ([]Transaction, *common.Pagination, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Transaction{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txns []Transaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(common.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&txns).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, common.NewPagination(total, page, pageSize), nil
}
