// File: internal/policy/authorizer.go

// Package policy decides whether an authenticated actor may perform an action on a listing.
package policy

import (
	"context"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionCreateListing      Action = "listing:create"
	ActionEditListing        Action = "listing:edit"
	ActionUpdateStatus       Action = "listing:update_status"
	ActionViewPendingChanges Action = "listing:view_pending_changes"
	ActionMarkSold           Action = "listing:mark_sold"
	ActionViewTransactions   Action = "listing:view_transactions"
	ActionModerate           Action = "listing:moderate"
)

// Actor is the already-authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == common.RoleAdmin
}

// Resource identifies the listing an action targets. OwnerID is uuid.Nil for actions
// that are not tied to an existing listing.
type Resource struct {
	ListingID uuid.UUID
	OwnerID   uuid.UUID
}

// Authorizer returns a yes/no decision. Services still enforce seller ownership themselves
// for seller-only operations.
type Authorizer interface {
	Can(ctx context.Context, actor Actor, action Action, resource Resource) bool
}

// RoleAuthorizer grants moderation to admins and listing operations to their owners.
// Admins may also read pending changes and sale history of any listing.
type RoleAuthorizer struct{}

// NewRoleAuthorizer returns the default role-based policy.
func NewRoleAuthorizer() Authorizer {
	return RoleAuthorizer{}
}

func (RoleAuthorizer) Can(_ context.Context, actor Actor, action Action, resource Resource) bool {
	if actor.ID == uuid.Nil {
		return false
	}
	isOwner := resource.OwnerID != uuid.Nil && resource.OwnerID == actor.ID

	switch action {
	case ActionCreateListing:
		return true
	case ActionModerate:
		return actor.IsAdmin()
	case ActionViewPendingChanges, ActionViewTransactions:
		return isOwner || actor.IsAdmin()
	case ActionEditListing, ActionUpdateStatus, ActionMarkSold:
		return isOwner
	default:
		return false
	}
}
