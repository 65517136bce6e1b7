package user

import (
	"context"
	"testing"

	"carmarket_backend/internal/common"
	"carmarket_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewGORMRepository(dbtest.Open(t, &User{}))
	ctx := context.Background()
	first := "Ada"

	u := &User{Email: "  Ada@Example.com ", FirstName: &first}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, common.RoleUser, u.Role)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, "Ada", byID.DisplayName())
	assert.True(t, byID.IsActive)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepository_FindActiveByID(t *testing.T) {
	db := dbtest.Open(t, &User{})
	repo := NewGORMRepository(db)
	ctx := context.Background()

	active := &User{Email: "active@example.com"}
	require.NoError(t, repo.Create(ctx, active))
	dormant := &User{Email: "dormant@example.com"}
	require.NoError(t, repo.Create(ctx, dormant))
	require.NoError(t, db.Model(dormant).Update("is_active", false).Error)

	got, err := repo.FindActiveByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = repo.FindActiveByID(ctx, dormant.ID)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = repo.FindActiveByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRepository_DuplicateEmailConflicts(t *testing.T) {
	repo := NewGORMRepository(dbtest.Open(t, &User{}))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &User{Email: "dup@example.com"}))
	err := repo.Create(ctx, &User{Email: "DUP@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUser_DisplayNameFallsBackToEmail(t *testing.T) {
	assert.Equal(t, "x@example.com", (&User{Email: "x@example.com"}).DisplayName())
}
