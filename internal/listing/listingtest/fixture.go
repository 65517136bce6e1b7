// File: internal/listing/listingtest/fixture.go

// Package listingtest holds fixtures shared by the listing, moderation and sale tests.
package listingtest

import (
	"context"
	"fmt"
	"sync"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/user"

	"github.com/google/uuid"
)

// Models lists every table a listing lifecycle test touches.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&listing.Listing{},
		&listing.CarDetail{},
		&media.CarImage{},
		&media.CarVideo{},
		&listing.PendingChange{},
	}
}

// Config returns the settings the services read.
func Config() *config.Config {
	return &config.Config{
		DefaultListingLifespanDays: 30,
		TransactionNumberPrefix:    "TXN",
	}
}

// Images builds image inputs whose URL is derived from the filename.
func Images(filenames ...string) []media.ImageInput {
	out := make([]media.ImageInput, 0, len(filenames))
	for _, name := range filenames {
		out = append(out, media.ImageInput{
			Filename:     name,
			OriginalName: "orig-" + name,
			URL:          "https://cdn.example.com/" + name,
			Type:         media.ImageTypeExterior,
			FileSize:     1024,
			MimeType:     "image/jpeg",
		})
	}
	return out
}

// Videos builds video inputs whose URL is derived from the filename.
func Videos(filenames ...string) []media.VideoInput {
	out := make([]media.VideoInput, 0, len(filenames))
	for _, name := range filenames {
		out = append(out, media.VideoInput{
			Filename: name,
			URL:      "https://cdn.example.com/" + name,
			FileSize: 4096,
			MimeType: "video/mp4",
		})
	}
	return out
}

// CreateInput is a valid listing with the given title and images.
func CreateInput(title string, images ...string) listing.CreateListingInput {
	return listing.CreateListingInput{
		Title:       title,
		Description: "Well kept, full service history.",
		Price:       15000,
		PriceType:   listing.PriceTypeNegotiable,
		CarDetail: listing.CarDetailInput{
			Make:         "Toyota",
			Model:        "Corolla",
			Year:         2018,
			BodyType:     listing.BodySedan,
			FuelType:     listing.FuelPetrol,
			Transmission: listing.TransmissionAutomatic,
			Mileage:      42000,
			Condition:    listing.ConditionGood,
			Features:     []string{"air_conditioning", "bluetooth"},
		},
		Images: Images(images...),
	}
}

// NewUser builds a user with a unique email.
func NewUser(role string) *user.User {
	id := uuid.New()
	return &user.User{
		BaseModel: common.BaseModel{ID: id},
		Email:     fmt.Sprintf("%s@example.com", id),
		Role:      role,
		IsActive:  true,
	}
}

// Notifier records every message handed to it.
type Notifier struct {
	mu       sync.Mutex
	Messages []notification.Message
	Err      error
}

func (n *Notifier) Notify(_ context.Context, msg notification.Message) (*notification.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return nil, n.Err
	}
	n.Messages = append(n.Messages, msg)
	return &notification.Notification{ID: uuid.New(), UserID: msg.UserID, Type: msg.Type, Title: msg.Title}, nil
}

// Types returns the recorded notification types in order.
func (n *Notifier) Types() []notification.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.NotificationType, 0, len(n.Messages))
	for _, m := range n.Messages {
		out = append(out, m.Type)
	}
	return out
}

// Auditor records every entry handed to it.
type Auditor struct {
	mu      sync.Mutex
	Entries []audit.Entry
}

func (a *Auditor) LogAction(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, entry)
	return nil
}

// Actions returns the recorded audit actions in order.
func (a *Auditor) Actions() []audit.Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Action, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Action)
	}
	return out
}
