// File: internal/user/model.go
package user

import (
	"strings"

	"carmarket_backend/internal/common"
)

// User is a marketplace account. Sellers and buyers are both users; authentication lives
// outside this service and only the identity and role are stored here.
type User struct {
	common.BaseModel
	Email     string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FirstName *string `gorm:"type:varchar(100)" json:"first_name,omitempty"`
	LastName  *string `gorm:"type:varchar(100)" json:"last_name,omitempty"`
	Role      string  `gorm:"type:varchar(50);not null;default:'user'" json:"role"`
	IsActive  bool    `gorm:"not null;default:true" json:"is_active"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return u.Email
	}
	return strings.Join(parts, " ")
}
