// File: internal/listing/status.go
package listing

import (
	"fmt"
	"time"

	"carmarket_backend/internal/common"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSold     Status = "sold"
	StatusInactive Status = "inactive"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusInactive},
	StatusApproved: {StatusPending, StatusSold, StatusInactive},
	StatusRejected: {StatusPending, StatusInactive},
	StatusDraft:    {StatusPending, StatusInactive},
	StatusSold:     {StatusInactive},
	StatusInactive: {StatusPending},
}

// ReopenedByEdit lists the statuses a substantive edit sends back to review.
var ReopenedByEdit = []Status{StatusApproved, StatusRejected, StatusDraft}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns the column updates that move a listing from one status to another,
// including the lifecycle timestamps. lifespan sets expires_at on approval; zero leaves it unset.
// reason is stored on rejection only.
func Transition(from, to Status, now time.Time, lifespan time.Duration, reason *string) (map[string]interface{}, error) {
	if !from.CanTransitionTo(to) {
		return nil, common.ErrInvalidState.WithDetails(fmt.Sprintf("Cannot move listing from %s to %s.", from, to))
	}
	return transitionColumns(to, now, lifespan, reason), nil
}

func transitionColumns(to Status, now time.Time, lifespan time.Duration, reason *string) map[string]interface{} {
	cols := map[string]interface{}{"status": to}
	switch to {
	case StatusApproved:
		cols["approved_at"] = now
		cols["rejected_at"] = nil
		cols["rejection_reason"] = nil
		cols["is_active"] = true
		if lifespan > 0 {
			cols["expires_at"] = now.Add(lifespan)
		}
	case StatusRejected:
		cols["rejected_at"] = now
		cols["rejection_reason"] = reason
		cols["approved_at"] = nil
	case StatusPending:
		cols["approved_at"] = nil
		cols["rejected_at"] = nil
		cols["rejection_reason"] = nil
		cols["is_active"] = true
	case StatusSold:
		cols["sold_at"] = now
		cols["is_active"] = false
	case StatusInactive:
		cols["is_active"] = false
	}
	return cols
}
