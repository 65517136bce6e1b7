package listing

import (
	"testing"
	"time"

	"carmarket_backend/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusInactive, true},
		{StatusPending, StatusSold, false},
		{StatusApproved, StatusPending, true},
		{StatusApproved, StatusSold, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusPending, true},
		{StatusRejected, StatusApproved, false},
		{StatusDraft, StatusPending, true},
		{StatusDraft, StatusApproved, false},
		{StatusSold, StatusInactive, true},
		{StatusSold, StatusPending, false},
		{StatusSold, StatusApproved, false},
		{StatusInactive, StatusPending, true},
		{StatusInactive, StatusInactive, false},
		{Status("bogus"), StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusSold, StatusInactive} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("deleted").Valid())
	assert.False(t, Status("").Valid())
}

func TestTransition_LifecycleTimestamps(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lifespan := 30 * 24 * time.Hour

	t.Run("approve sets approval and expiry and clears rejection", func(t *testing.T) {
		cols, err := Transition(StatusPending, StatusApproved, now, lifespan, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, cols["status"])
		assert.Equal(t, now, cols["approved_at"])
		assert.Equal(t, now.Add(lifespan), cols["expires_at"])
		assert.Contains(t, cols, "rejected_at")
		assert.Nil(t, cols["rejected_at"])
		assert.Contains(t, cols, "rejection_reason")
	})

	t.Run("approve without lifespan leaves expiry alone", func(t *testing.T) {
		cols, err := Transition(StatusPending, StatusApproved, now, 0, nil)
		require.NoError(t, err)
		assert.NotContains(t, cols, "expires_at")
	})

	t.Run("reject stores the reason and clears approval", func(t *testing.T) {
		reason := "blurry photos"
		cols, err := Transition(StatusPending, StatusRejected, now, lifespan, &reason)
		require.NoError(t, err)
		assert.Equal(t, now, cols["rejected_at"])
		assert.Equal(t, &reason, cols["rejection_reason"])
		assert.Contains(t, cols, "approved_at")
		assert.Nil(t, cols["approved_at"])
	})

	t.Run("re-entering pending clears both", func(t *testing.T) {
		cols, err := Transition(StatusApproved, StatusPending, now, lifespan, nil)
		require.NoError(t, err)
		assert.Nil(t, cols["approved_at"])
		assert.Nil(t, cols["rejected_at"])
		assert.Equal(t, true, cols["is_active"])
	})

	t.Run("sold sets sold_at and deactivates", func(t *testing.T) {
		cols, err := Transition(StatusApproved, StatusSold, now, lifespan, nil)
		require.NoError(t, err)
		assert.Equal(t, now, cols["sold_at"])
		assert.Equal(t, false, cols["is_active"])
	})

	t.Run("inactive deactivates", func(t *testing.T) {
		cols, err := Transition(StatusSold, StatusInactive, now, lifespan, nil)
		require.NoError(t, err)
		assert.Equal(t, false, cols["is_active"])
	})

	t.Run("illegal transition is invalid state", func(t *testing.T) {
		_, err := Transition(StatusSold, StatusApproved, now, lifespan, nil)
		assert.ErrorIs(t, err, common.ErrInvalidState)
	})
}

func TestReopenedByEditFollowsTransitions(t *testing.T) {
	for _, from := range ReopenedByEdit {
		assert.True(t, from.CanTransitionTo(StatusPending), from)
	}
	assert.NotContains(t, ReopenedByEdit, StatusPending)
	assert.NotContains(t, ReopenedByEdit, StatusSold)
	assert.NotContains(t, ReopenedByEdit, StatusInactive)
}
