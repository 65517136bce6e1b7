package policy

import (
	"context"
	"testing"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoleAuthorizer(t *testing.T) {
	ctx := context.Background()
	authz := NewRoleAuthorizer()

	owner := Actor{ID: uuid.New(), Role: common.RoleUser}
	stranger := Actor{ID: uuid.New(), Role: common.RoleUser}
	admin := Actor{ID: uuid.New(), Role: common.RoleAdmin}
	anonymous := Actor{}
	res := Resource{ListingID: uuid.New(), OwnerID: owner.ID}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		want   bool
	}{
		{"owner edits", owner, ActionEditListing, true},
		{"stranger edits", stranger, ActionEditListing, false},
		{"admin cannot edit on behalf of seller", admin, ActionEditListing, false},
		{"owner marks sold", owner, ActionMarkSold, true},
		{"admin cannot mark sold", admin, ActionMarkSold, false},
		{"admin moderates", admin, ActionModerate, true},
		{"owner cannot moderate", owner, ActionModerate, false},
		{"admin views pending changes", admin, ActionViewPendingChanges, true},
		{"owner views pending changes", owner, ActionViewPendingChanges, true},
		{"stranger views pending changes", stranger, ActionViewPendingChanges, false},
		{"stranger views transactions", stranger, ActionViewTransactions, false},
		{"anyone authenticated creates", stranger, ActionCreateListing, true},
		{"anonymous creates", anonymous, ActionCreateListing, false},
		{"unknown action", owner, Action("listing:launch"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authz.Can(ctx, tt.actor, tt.action, res))
		})
	}
}
