// File: internal/listing/pending_change_repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PendingChangeRepository is the ledger of staged seller edits.
type PendingChangeRepository interface {
	Stage(ctx context.Context, req StageRequest) (*PendingChange, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PendingChange, error)
	// ListOutstanding returns the unhandled changes of a listing, oldest first.
	ListOutstanding(ctx context.Context, listingID uuid.UUID) ([]PendingChange, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]PendingChange, error)
	// MarkHandled settles a change. It fails with ErrConflict if the change was already handled.
	MarkHandled(ctx context.Context, id uuid.UUID, outcome Outcome, by uuid.UUID, at time.Time, note *string) error
	WithTx(tx *gorm.DB) PendingChangeRepository
}

type gormPendingChangeRepository struct {
	db *gorm.DB
}

// NewGORMPendingChangeRepository creates a new GORM pending change repository.
func NewGORMPendingChangeRepository(db *gorm.DB) PendingChangeRepository {
	return &gormPendingChangeRepository{db: db}
}

func (r *gormPendingChangeRepository) WithTx(tx *gorm.DB) PendingChangeRepository {
	return &gormPendingChangeRepository{db: tx}
}

func (r *gormPendingChangeRepository) Stage(ctx context.Context, req StageRequest) (*PendingChange, error) {
	pc := &PendingChange{
		ListingID:         req.ListingID,
		ChangedByUserID:   req.ProposerID,
		Changes:           datatypes.NewJSONType(req.Changes),
		OriginalValues:    datatypes.NewJSONType(req.Original),
		ImageChange:       req.ImageChange,
		VideoChange:       req.VideoChange,
		BaseImageRevision: req.BaseImageRevision,
		BaseVideoRevision: req.BaseVideoRevision,
		Outcome:           OutcomePending,
	}
	if err := r.db.WithContext(ctx).Create(pc).Error; err != nil {
		return nil, fmt.Errorf("failed to stage pending change for listing %s: %w", req.ListingID, err)
	}
	return pc, nil
}

func (r *gormPendingChangeRepository) FindByID(ctx context.Context, id uuid.UUID) (*PendingChange, error) {
	var pc PendingChange
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Pending change not found.")
		}
		return nil, fmt.Errorf("failed to find pending change %s: %w", id, err)
	}
	return &pc, nil
}

func (r *gormPendingChangeRepository) ListOutstanding(ctx context.Context, listingID uuid.UUID) ([]PendingChange, error) {
	var changes []PendingChange
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND outcome = ?", listingID, OutcomePending).
		Order("created_at ASC, id ASC").
		Find(&changes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding changes for listing %s: %w", listingID, err)
	}
	return changes, nil
}

func (r *gormPendingChangeRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]PendingChange, error) {
	var changes []PendingChange
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC, id ASC").
		Find(&changes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list changes for listing %s: %w", listingID, err)
	}
	return changes, nil
}

func (r *gormPendingChangeRepository) MarkHandled(ctx context.Context, id uuid.UUID, outcome Outcome, by uuid.UUID, at time.Time, note *string) error {
	if outcome != OutcomeApplied && outcome != OutcomeRejected {
		return common.ErrBadRequest.WithDetails(fmt.Sprintf("Unsupported outcome %q.", outcome))
	}
	result := r.db.WithContext(ctx).
		Model(&PendingChange{}).
		Where("id = ? AND outcome = ?", id, OutcomePending).
		Updates(map[string]interface{}{
			"outcome":            outcome,
			"handled_at":         at,
			"handled_by_user_id": by,
			"review_note":        note,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark pending change %s as %s: %w", id, outcome, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrConflict.WithDetails("Pending change was already handled.")
	}
	return nil
}
