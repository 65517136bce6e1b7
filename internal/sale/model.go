// File: internal/sale/model.go
package sale

import (
	"time"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
)

// TransactionStatus is the settlement state of a sale.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionRefunded  TransactionStatus = "refunded"
)

// PaymentMethod is how the buyer paid. Payment itself happens off-platform.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentFinancing    PaymentMethod = "financing"
	PaymentOther        PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentBankTransfer, PaymentCreditCard, PaymentFinancing, PaymentOther:
		return true
	}
	return false
}

// Transaction records a completed sale of a listing.
type Transaction struct {
	common.BaseModel
	TransactionNumber string            `gorm:"type:varchar(64);not null;uniqueIndex" json:"transaction_number"`
	Amount            float64           `gorm:"type:decimal(12,2);not null" json:"amount"`
	PlatformFee       float64           `gorm:"type:decimal(12,2);not null" json:"platform_fee"`
	TotalAmount       float64           `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status            TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	PaymentMethod     PaymentMethod     `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentReference  *string           `gorm:"type:varchar(255)" json:"payment_reference,omitempty"`
	Notes             *string           `gorm:"type:text" json:"notes,omitempty"`
	SellerID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"seller_id"`
	BuyerID           *uuid.UUID        `gorm:"type:uuid;index" json:"buyer_id,omitempty"`
	ListingID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"listing_id"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (Transaction) TableName() string {
	return "transactions"
}

// MarkAsSoldInput is the seller's record of an off-platform sale.
type MarkAsSoldInput struct {
	BuyerID          uuid.UUID     `json:"buyerId" binding:"required"`
	Amount           float64       `json:"amount" binding:"required,gt=0"`
	PaymentMethod    PaymentMethod `json:"paymentMethod" binding:"required,oneof=cash bank_transfer credit_card financing other"`
	PaymentReference *string       `json:"paymentReference,omitempty" binding:"omitempty,max=255"`
	Notes            *string       `json:"notes,omitempty"`
}
