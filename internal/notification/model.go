package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	ListingSubmitted   NotificationType = "listing_submitted"
	ListingUnderReview NotificationType = "listing_under_review"
	ListingApproved    NotificationType = "listing_approved"
	ListingRejected    NotificationType = "listing_rejected"
	ListingDeactivated NotificationType = "listing_deactivated"
	ListingSold        NotificationType = "listing_sold"
	PurchaseConfirmed  NotificationType = "purchase_confirmed"
)

// Notification represents a user notification.
type Notification struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index:idx_notification_user_status" json:"user_id"`
	Type             NotificationType  `gorm:"type:varchar(100);not null" json:"type"`
	Title            string            `gorm:"type:varchar(255);not null" json:"title"`
	Message          string            `gorm:"type:text;not null" json:"message"`
	RelatedListingID *uuid.UUID        `gorm:"type:uuid" json:"related_listing_id,omitempty"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
	IsRead           bool              `gorm:"not null;default:false;index:idx_notification_user_status" json:"is_read"`
	ReadAt           *time.Time        `json:"read_at,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;index:idx_notification_user_status" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		n.ID = id
	}
	return nil
}

// Message is what a caller hands to a Sink.
type Message struct {
	UserID           uuid.UUID
	Type             NotificationType
	Title            string
	Body             string
	RelatedListingID *uuid.UUID
	Metadata         map[string]interface{}
}
