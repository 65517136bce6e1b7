// File: internal/audit/model.go
package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Level is the severity of an activity log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Category groups entries for filtering in the admin UI.
type Category string

const (
	CategoryListing     Category = "listing"
	CategoryAdminAction Category = "admin_action"
	CategoryTransaction Category = "transaction"
)

// Action names what happened to a listing.
type Action string

const (
	ActionCreated        Action = "created"
	ActionEditSubmitted  Action = "edit_submitted"
	ActionImageReordered Action = "image_reordered"
	ActionVideoReordered Action = "video_reordered"
	ActionStatusChanged  Action = "status_changed"
	ActionApproved       Action = "approved"
	ActionRejected       Action = "rejected"
	ActionDeactivated    Action = "deactivated"
	ActionFeatureToggled Action = "feature_toggled"
	ActionSold           Action = "sold"
	ActionExpired        Action = "expired"
)

// ActivityLog is one persisted audit entry.
type ActivityLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Level        Level             `gorm:"type:varchar(20);not null" json:"level"`
	Category     Category          `gorm:"type:varchar(50);not null;index" json:"category"`
	Action       Action            `gorm:"type:varchar(50);not null" json:"action"`
	Message      string            `gorm:"type:text;not null" json:"message"`
	UserID       *uuid.UUID        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ListingID    *uuid.UUID        `gorm:"type:uuid;index" json:"listing_id,omitempty"`
	TargetUserID *uuid.UUID        `gorm:"type:uuid" json:"target_user_id,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Entry is what domain services hand to a Sink.
type Entry struct {
	ActorID      uuid.UUID
	ListingID    uuid.UUID
	TargetUserID *uuid.UUID
	Action       Action
	Level        Level
	Category     Category
	Message      string
	Metadata     map[string]interface{}
}
