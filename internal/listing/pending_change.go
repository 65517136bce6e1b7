// File: internal/listing/pending_change.go
package listing

import (
	"time"

	"carmarket_backend/internal/common"
	"carmarket_backend/internal/media"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Outcome is the review result of a pending change.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
)

// ChangeSet is the staged delta. Images and Videos are full replacement lists and are only
// present when the matching media change was substantive.
type ChangeSet struct {
	Listing   ListingFields      `json:"listing"`
	CarDetail CarDetailFields    `json:"carDetail"`
	Images    []media.ImageInput `json:"images,omitempty"`
	Videos    []media.VideoInput `json:"videos,omitempty"`
}

// OriginalValues is the listing as it was when the change was staged.
type OriginalValues struct {
	Listing   ListingFields      `json:"listing"`
	CarDetail CarDetailFields    `json:"carDetail"`
	Images    []media.ImageInput `json:"images"`
	Videos    []media.VideoInput `json:"videos"`
}

// PendingChange is a seller edit awaiting review. Once Outcome leaves pending the row is not
// modified again.
type PendingChange struct {
	common.BaseModel
	ListingID         uuid.UUID                          `gorm:"type:uuid;not null;index:idx_pending_changes_listing_outcome" json:"listing_id"`
	ChangedByUserID   uuid.UUID                          `gorm:"type:uuid;not null" json:"changed_by_user_id"`
	Changes           datatypes.JSONType[ChangeSet]      `json:"changes"`
	OriginalValues    datatypes.JSONType[OriginalValues] `json:"original_values"`
	ImageChange       media.ChangeKind                   `gorm:"type:varchar(20);not null" json:"image_change"`
	VideoChange       media.ChangeKind                   `gorm:"type:varchar(20);not null" json:"video_change"`
	BaseImageRevision int64                              `gorm:"not null" json:"base_image_revision"`
	BaseVideoRevision int64                              `gorm:"not null" json:"base_video_revision"`
	Outcome           Outcome                            `gorm:"type:varchar(20);not null;index:idx_pending_changes_listing_outcome" json:"outcome"`
	HandledAt         *time.Time                         `json:"handled_at,omitempty"`
	HandledByUserID   *uuid.UUID                         `gorm:"type:uuid" json:"handled_by_user_id,omitempty"`
	ReviewNote        *string                            `gorm:"type:text" json:"review_note,omitempty"`
}

// TableName specifies the table name for GORM.
func (PendingChange) TableName() string {
	return "listing_pending_changes"
}

// IsApplied reports whether the change has been merged into the listing.
func (p *PendingChange) IsApplied() bool {
	return p.Outcome == OutcomeApplied
}

// StageRequest carries everything needed to record a pending change.
type StageRequest struct {
	ListingID         uuid.UUID
	ProposerID        uuid.UUID
	Changes           ChangeSet
	Original          OriginalValues
	ImageChange       media.ChangeKind
	VideoChange       media.ChangeKind
	BaseImageRevision int64
	BaseVideoRevision int64
}
