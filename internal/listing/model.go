// File: internal/listing/model.go
package listing

import (
	"database/sql/driver"
	"time"

	"carmarket_backend/internal/common"
	"carmarket_backend/internal/media"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.StringArray
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type PriceType string

const (
	PriceTypeFixed      PriceType = "fixed"
	PriceTypeNegotiable PriceType = "negotiable"
	PriceTypeAuction    PriceType = "auction"
)

func (p PriceType) Valid() bool {
	switch p {
	case PriceTypeFixed, PriceTypeNegotiable, PriceTypeAuction:
		return true
	}
	return false
}

type BodyType string

const (
	BodySedan       BodyType = "sedan"
	BodyHatchback   BodyType = "hatchback"
	BodySUV         BodyType = "suv"
	BodyCoupe       BodyType = "coupe"
	BodyConvertible BodyType = "convertible"
	BodyWagon       BodyType = "wagon"
	BodyPickup      BodyType = "pickup"
	BodyVan         BodyType = "van"
	BodyMinivan     BodyType = "minivan"
)

func (b BodyType) Valid() bool {
	switch b {
	case BodySedan, BodyHatchback, BodySUV, BodyCoupe, BodyConvertible, BodyWagon, BodyPickup, BodyVan, BodyMinivan:
		return true
	}
	return false
}

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelElectric FuelType = "electric"
	FuelHybrid   FuelType = "hybrid"
	FuelLPG      FuelType = "lpg"
	FuelCNG      FuelType = "cng"
)

func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelElectric, FuelHybrid, FuelLPG, FuelCNG:
		return true
	}
	return false
}

type Transmission string

const (
	TransmissionManual        Transmission = "manual"
	TransmissionAutomatic     Transmission = "automatic"
	TransmissionCVT           Transmission = "cvt"
	TransmissionSemiAutomatic Transmission = "semi_automatic"
)

func (t Transmission) Valid() bool {
	switch t {
	case TransmissionManual, TransmissionAutomatic, TransmissionCVT, TransmissionSemiAutomatic:
		return true
	}
	return false
}

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionVeryGood  Condition = "very_good"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Features is a list of equipment tags. It is stored as a postgres text[] and as its
// array literal text elsewhere.
type Features []string

func (f Features) Value() (driver.Value, error) {
	return pq.StringArray(f).Value()
}

func (f *Features) Scan(src interface{}) error {
	return (*pq.StringArray)(f).Scan(src)
}

func (Features) GormDataType() string {
	return "text"
}

func (Features) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// --- Main Listing Model ---
type Listing struct {
	common.BaseModel
	SellerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Slug        string    `gorm:"type:varchar(255);index" json:"slug"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       float64   `gorm:"type:decimal(12,2);not null" json:"price"`
	PriceType   PriceType `gorm:"type:varchar(20);not null" json:"price_type"`
	Status      Status    `gorm:"type:varchar(20);not null;index" json:"status"`

	Location   *string  `gorm:"type:varchar(255)" json:"location,omitempty"`
	City       *string  `gorm:"type:varchar(100)" json:"city,omitempty"`
	State      *string  `gorm:"type:varchar(100)" json:"state,omitempty"`
	Country    *string  `gorm:"type:varchar(100)" json:"country,omitempty"`
	PostalCode *string  `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`

	ViewCount     int  `gorm:"not null;default:0" json:"view_count"`
	FavoriteCount int  `gorm:"not null;default:0" json:"favorite_count"`
	InquiryCount  int  `gorm:"not null;default:0" json:"inquiry_count"`
	IsActive      bool `gorm:"not null" json:"is_active"`
	IsFeatured    bool `gorm:"not null" json:"is_featured"`
	IsUrgent      bool `gorm:"not null" json:"is_urgent"`

	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	SoldAt          *time.Time `json:"sold_at,omitempty"`
	ExpiresAt       *time.Time `gorm:"index" json:"expires_at,omitempty"`

	CarDetail *CarDetail `gorm:"foreignKey:ListingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"car_detail,omitempty"`
}

// TableName specifies the table name for GORM.
func (Listing) TableName() string {
	return "listings"
}

// CarDetail holds the vehicle attributes of a listing and owns its ordered media.
// ImageRevision and VideoRevision count every write to the respective collection.
type CarDetail struct {
	common.BaseModel
	ListingID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"listing_id"`
	Make               string       `gorm:"type:varchar(100);not null" json:"make"`
	Model              string       `gorm:"type:varchar(100);not null" json:"model"`
	Year               int          `gorm:"not null" json:"year"`
	BodyType           BodyType     `gorm:"type:varchar(20);not null" json:"body_type"`
	FuelType           FuelType     `gorm:"type:varchar(20);not null" json:"fuel_type"`
	Transmission       Transmission `gorm:"type:varchar(20);not null" json:"transmission"`
	EngineSize         *float64     `json:"engine_size,omitempty"`
	EnginePower        *int         `json:"engine_power,omitempty"`
	Mileage            int          `gorm:"not null" json:"mileage"`
	Color              *string      `gorm:"type:varchar(50)" json:"color,omitempty"`
	NumberOfDoors      int          `gorm:"not null" json:"number_of_doors"`
	NumberOfSeats      int          `gorm:"not null" json:"number_of_seats"`
	Condition          Condition    `gorm:"type:varchar(20);not null" json:"condition"`
	VIN                *string      `gorm:"column:vin;type:varchar(50)" json:"vin,omitempty"`
	RegistrationNumber *string      `gorm:"type:varchar(50)" json:"registration_number,omitempty"`
	PreviousOwners     *int         `json:"previous_owners,omitempty"`
	HasAccidentHistory bool         `gorm:"not null" json:"has_accident_history"`
	HasServiceHistory  bool         `gorm:"not null" json:"has_service_history"`
	Description        *string      `gorm:"type:text" json:"description,omitempty"`
	Features           Features     `json:"features"`

	ImageRevision int64 `gorm:"not null;default:0" json:"image_revision"`
	VideoRevision int64 `gorm:"not null;default:0" json:"video_revision"`

	Images []media.CarImage `gorm:"foreignKey:CarDetailID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images"`
	Videos []media.CarVideo `gorm:"foreignKey:CarDetailID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"videos"`
}

// TableName specifies the table name for GORM.
func (CarDetail) TableName() string {
	return "car_details"
}

// Defaults applied when a new car detail leaves them unset.
const (
	DefaultNumberOfDoors = 4
	DefaultNumberOfSeats = 5
)

// --- Request DTOs ---

// CarDetailInput is the vehicle part of a new listing.
type CarDetailInput struct {
	Make               string       `json:"make" binding:"required,max=100"`
	Model              string       `json:"model" binding:"required,max=100"`
	Year               int          `json:"year" binding:"required,gte=1900,lte=2100"`
	BodyType           BodyType     `json:"bodyType" binding:"required,oneof=sedan hatchback suv coupe convertible wagon pickup van minivan"`
	FuelType           FuelType     `json:"fuelType" binding:"required,oneof=petrol diesel electric hybrid lpg cng"`
	Transmission       Transmission `json:"transmission" binding:"required,oneof=manual automatic cvt semi_automatic"`
	EngineSize         *float64     `json:"engineSize,omitempty" binding:"omitempty,gt=0"`
	EnginePower        *int         `json:"enginePower,omitempty" binding:"omitempty,gt=0"`
	Mileage            int          `json:"mileage" binding:"gte=0"`
	Color              *string      `json:"color,omitempty"`
	NumberOfDoors      int          `json:"numberOfDoors,omitempty" binding:"omitempty,gte=1,lte=8"`
	NumberOfSeats      int          `json:"numberOfSeats,omitempty" binding:"omitempty,gte=1,lte=20"`
	Condition          Condition    `json:"condition" binding:"required,oneof=excellent very_good good fair poor"`
	VIN                *string      `json:"vin,omitempty"`
	RegistrationNumber *string      `json:"registrationNumber,omitempty"`
	PreviousOwners     *int         `json:"previousOwners,omitempty" binding:"omitempty,gte=0"`
	HasAccidentHistory bool         `json:"hasAccidentHistory"`
	HasServiceHistory  bool         `json:"hasServiceHistory"`
	Description        *string      `json:"description,omitempty"`
	Features           []string     `json:"features,omitempty"`
}

// CreateListingInput is what a seller submits to publish a car.
type CreateListingInput struct {
	Title       string             `json:"title" binding:"required,min=3,max=200"`
	Description string             `json:"description" binding:"required"`
	Price       float64            `json:"price" binding:"required,gt=0"`
	PriceType   PriceType          `json:"priceType,omitempty" binding:"omitempty,oneof=fixed negotiable auction"`
	Location    *string            `json:"location,omitempty"`
	City        *string            `json:"city,omitempty"`
	State       *string            `json:"state,omitempty"`
	Country     *string            `json:"country,omitempty"`
	PostalCode  *string            `json:"postalCode,omitempty"`
	Latitude    *float64           `json:"latitude,omitempty" binding:"omitempty,latitude"`
	Longitude   *float64           `json:"longitude,omitempty" binding:"omitempty,longitude"`
	IsUrgent    bool               `json:"isUrgent"`
	CarDetail   CarDetailInput     `json:"carDetail" binding:"required"`
	Images      []media.ImageInput `json:"images,omitempty" binding:"omitempty,dive"`
	Videos      []media.VideoInput `json:"videos,omitempty" binding:"omitempty,dive"`
}

// EditListingInput proposes new values for a listing. Absent fields are left alone. A present
// media list is the full desired collection in display order.
type EditListingInput struct {
	ListingFields
	CarDetail *CarDetailFields   `json:"carDetail,omitempty"`
	Images    []media.ImageInput `json:"images,omitempty" binding:"omitempty,dive"`
	Videos    []media.VideoInput `json:"videos,omitempty" binding:"omitempty,dive"`
}

// UpdateStatusInput is a seller's withdraw or resubmit request.
type UpdateStatusInput struct {
	Status Status `json:"status" binding:"required"`
}

// EditResult reports what an edit did.
type EditResult struct {
	Listing               *Listing         `json:"listing"`
	PendingChange         *PendingChange   `json:"pendingChange,omitempty"`
	ImageChange           media.ChangeKind `json:"imageChange"`
	VideoChange           media.ChangeKind `json:"videoChange"`
	HasSubstantiveChanges bool             `json:"hasSubstantiveChanges"`
	StatusChanged         bool             `json:"statusChanged"`
}
