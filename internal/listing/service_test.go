package listing_test

import (
	"context"
	"testing"
	"time"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/listing/listingtest"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/platform/database/dbtest"
	"carmarket_backend/internal/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serviceEnv struct {
	db       *gorm.DB
	svc      listing.Service
	notifier *listingtest.Notifier
	auditor  *listingtest.Auditor
	seller   policy.Actor
}

func setupListingService(t *testing.T) *serviceEnv {
	t.Helper()
	db := dbtest.Open(t, listingtest.Models()...)
	env := &serviceEnv{
		db:       db,
		notifier: &listingtest.Notifier{},
		auditor:  &listingtest.Auditor{},
	}
	env.svc = listing.NewService(
		db,
		listing.NewGORMRepository(db),
		listing.NewGORMPendingChangeRepository(db),
		media.NewGORMRepository(db),
		policy.NewRoleAuthorizer(),
		env.notifier,
		env.auditor,
		listingtest.Config(),
		zap.NewNop(),
	)
	seller := listingtest.NewUser(common.RoleUser)
	require.NoError(t, db.Create(seller).Error)
	env.seller = policy.Actor{ID: seller.ID, Role: seller.Role}
	return env
}

func (e *serviceEnv) create(t *testing.T, images ...string) *listing.Listing {
	t.Helper()
	created, err := e.svc.CreateListing(context.Background(), e.seller, listingtest.CreateInput("Corolla 2018", images...))
	require.NoError(t, err)
	return created
}

func (e *serviceEnv) setStatus(t *testing.T, id uuid.UUID, status listing.Status) {
	t.Helper()
	require.NoError(t, e.db.Model(&listing.Listing{}).Where("id = ?", id).Update("status", status).Error)
}

func (e *serviceEnv) reset() {
	e.notifier.Messages = nil
	e.auditor.Entries = nil
}

func imageNames(images []media.CarImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.Filename)
	}
	return out
}

func TestService_CreateListing(t *testing.T) {
	env := setupListingService(t)

	created := env.create(t, "a.jpg", "b.jpg", "c.jpg")

	assert.Equal(t, listing.StatusPending, created.Status)
	assert.True(t, created.IsActive)
	assert.Equal(t, "corolla-2018", created.Slug)
	assert.Equal(t, listing.PriceTypeNegotiable, created.PriceType)
	require.NotNil(t, created.CarDetail)
	assert.Equal(t, listing.DefaultNumberOfDoors, created.CarDetail.NumberOfDoors)
	assert.Equal(t, listing.DefaultNumberOfSeats, created.CarDetail.NumberOfSeats)
	assert.Equal(t, listing.Features{"air_conditioning", "bluetooth"}, created.CarDetail.Features)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, imageNames(created.CarDetail.Images))
	for i, img := range created.CarDetail.Images {
		assert.Equal(t, i, img.SortOrder)
		assert.Equal(t, i == 0, img.IsPrimary)
	}

	assert.Equal(t, []notification.NotificationType{notification.ListingSubmitted}, env.notifier.Types())
	assert.Equal(t, []audit.Action{audit.ActionCreated}, env.auditor.Actions())
}

func TestService_CreateListing_Validation(t *testing.T) {
	env := setupListingService(t)

	input := listingtest.CreateInput("Corolla 2018")
	input.CarDetail.BodyType = "spaceship"
	input.Price = 0

	_, err := env.svc.CreateListing(context.Background(), env.seller, input)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	details, ok := apiErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "price")
	assert.Contains(t, details, "carDetail.bodyType")

	_, err = env.svc.CreateListing(context.Background(), policy.Actor{}, listingtest.CreateInput("Corolla 2018"))
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestService_ProposeEdit_ReorderOnly(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg", "b.jpg", "c.jpg")
	env.setStatus(t, created.ID, listing.StatusApproved)
	env.reset()

	result, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{
		Images: listingtest.Images("c.jpg", "a.jpg", "b.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, media.ChangeReorderOnly, result.ImageChange)
	assert.Equal(t, media.ChangeNone, result.VideoChange)
	assert.False(t, result.HasSubstantiveChanges)
	assert.False(t, result.StatusChanged)
	assert.Nil(t, result.PendingChange)
	assert.Equal(t, listing.StatusApproved, result.Listing.Status)
	assert.Equal(t, []string{"c.jpg", "a.jpg", "b.jpg"}, imageNames(result.Listing.CarDetail.Images))
	assert.True(t, result.Listing.CarDetail.Images[0].IsPrimary)
	assert.Equal(t, int64(1), result.Listing.CarDetail.ImageRevision)
	assert.Equal(t, int64(0), result.Listing.CarDetail.VideoRevision)

	outstanding, err := env.svc.ListOutstandingChanges(ctx, created.ID, env.seller)
	require.NoError(t, err)
	assert.Empty(t, outstanding)
	assert.Empty(t, env.notifier.Types())
	assert.Equal(t, []audit.Action{audit.ActionImageReordered}, env.auditor.Actions())
}

func TestService_ProposeEdit_Substantive(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg", "b.jpg")
	env.setStatus(t, created.ID, listing.StatusApproved)
	env.reset()

	price := 14500.0
	mileage := 43000
	result, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{
		ListingFields: listing.ListingFields{Price: &price},
		CarDetail:     &listing.CarDetailFields{Mileage: &mileage},
		Images:        listingtest.Images("b.jpg", "a.jpg", "d.jpg"),
	})
	require.NoError(t, err)

	assert.True(t, result.HasSubstantiveChanges)
	assert.True(t, result.StatusChanged)
	assert.Equal(t, media.ChangeSubstantive, result.ImageChange)
	assert.Equal(t, listing.StatusPending, result.Listing.Status)
	assert.Nil(t, result.Listing.ApprovedAt)

	// Live values are untouched until approval.
	assert.Equal(t, 15000.0, result.Listing.Price)
	assert.Equal(t, 42000, result.Listing.CarDetail.Mileage)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, imageNames(result.Listing.CarDetail.Images))

	require.NotNil(t, result.PendingChange)
	staged := result.PendingChange.Changes.Data()
	assert.Equal(t, price, *staged.Listing.Price)
	assert.Nil(t, staged.Listing.Title)
	assert.Equal(t, mileage, *staged.CarDetail.Mileage)
	assert.Len(t, staged.Images, 3)
	assert.Nil(t, staged.Videos)
	original := result.PendingChange.OriginalValues.Data()
	assert.Equal(t, 15000.0, *original.Listing.Price)
	assert.Len(t, original.Images, 2)

	assert.Equal(t, []notification.NotificationType{notification.ListingUnderReview}, env.notifier.Types())
	assert.Equal(t, []audit.Action{audit.ActionEditSubmitted}, env.auditor.Actions())

	t.Run("a second edit while pending stages another change", func(t *testing.T) {
		env.reset()
		title := "Corolla 2018 low mileage"
		again, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{
			ListingFields: listing.ListingFields{Title: &title},
		})
		require.NoError(t, err)
		assert.False(t, again.StatusChanged)
		assert.Empty(t, env.notifier.Types())

		outstanding, err := env.svc.ListOutstandingChanges(ctx, created.ID, env.seller)
		require.NoError(t, err)
		require.Len(t, outstanding, 2)
		assert.Equal(t, result.PendingChange.ID, outstanding[0].ID)
		assert.Equal(t, again.PendingChange.ID, outstanding[1].ID)
	})
}

func TestService_ProposeEdit_ReorderAndSubstantiveRecordsPostReorderRevision(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg", "b.jpg")
	env.setStatus(t, created.ID, listing.StatusApproved)

	price := 9999.0
	result, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{
		ListingFields: listing.ListingFields{Price: &price},
		Images:        listingtest.Images("b.jpg", "a.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, media.ChangeReorderOnly, result.ImageChange)
	assert.Equal(t, []string{"b.jpg", "a.jpg"}, imageNames(result.Listing.CarDetail.Images))
	require.NotNil(t, result.PendingChange)
	assert.Equal(t, int64(1), result.PendingChange.BaseImageRevision)
	assert.Nil(t, result.PendingChange.Changes.Data().Images)
}

func TestService_ProposeEdit_NoOp(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg")
	env.setStatus(t, created.ID, listing.StatusApproved)
	env.reset()

	title := created.Title
	empty := ""
	features := []string{"air_conditioning", "bluetooth"}
	result, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{
		ListingFields: listing.ListingFields{Title: &title, City: &empty},
		CarDetail:     &listing.CarDetailFields{Color: &empty, Features: &features},
	})
	require.NoError(t, err)

	assert.False(t, result.HasSubstantiveChanges)
	assert.Equal(t, media.ChangeNone, result.ImageChange)
	assert.Nil(t, result.PendingChange)
	assert.Equal(t, listing.StatusApproved, result.Listing.Status)
	assert.Empty(t, env.notifier.Types())
	assert.Empty(t, env.auditor.Actions())
}

func TestService_ProposeEdit_Rejections(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg")
	price := 1.0
	edit := listing.EditListingInput{ListingFields: listing.ListingFields{Price: &price}}

	t.Run("stranger", func(t *testing.T) {
		stranger := policy.Actor{ID: uuid.New(), Role: common.RoleUser}
		_, err := env.svc.ProposeEdit(ctx, created.ID, stranger, edit)
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("admin is not the seller", func(t *testing.T) {
		admin := policy.Actor{ID: uuid.New(), Role: common.RoleAdmin}
		_, err := env.svc.ProposeEdit(ctx, created.ID, admin, edit)
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("unknown listing", func(t *testing.T) {
		_, err := env.svc.ProposeEdit(ctx, uuid.New(), env.seller, edit)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	for _, status := range []listing.Status{listing.StatusSold, listing.StatusInactive} {
		t.Run(string(status), func(t *testing.T) {
			env.setStatus(t, created.ID, status)
			_, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, edit)
			assert.ErrorIs(t, err, common.ErrInvalidState)

			outstanding, err := env.svc.ListOutstandingChanges(ctx, created.ID, env.seller)
			require.NoError(t, err)
			assert.Empty(t, outstanding)
		})
	}
}

func TestService_ProposeEdit_RejectsUnknownImageType(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg")
	env.setStatus(t, created.ID, listing.StatusApproved)
	env.reset()

	images := listingtest.Images("a.jpg", "b.jpg")
	images[0].Type = "bogus"
	_, err := env.svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{Images: images})
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Details, "images[0].type")

	outstanding, err := env.svc.ListOutstandingChanges(ctx, created.ID, env.seller)
	require.NoError(t, err)
	assert.Empty(t, outstanding)
	assert.Empty(t, env.notifier.Types())
}

// staleRepository reports every listing as pending, as a read taken before a
// concurrent approval committed would.
type staleRepository struct {
	listing.Repository
}

func (r staleRepository) FindByID(ctx context.Context, id uuid.UUID, preloadDetail bool) (*listing.Listing, error) {
	l, err := r.Repository.FindByID(ctx, id, preloadDetail)
	if err != nil {
		return nil, err
	}
	l.Status = listing.StatusPending
	return l, nil
}

func (r staleRepository) WithTx(tx *gorm.DB) listing.Repository {
	return staleRepository{Repository: r.Repository.WithTx(tx)}
}

func TestService_ProposeEdit_StaleStatusStillReopens(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t, "a.jpg")
	env.setStatus(t, created.ID, listing.StatusApproved)

	svc := listing.NewService(
		env.db,
		staleRepository{Repository: listing.NewGORMRepository(env.db)},
		listing.NewGORMPendingChangeRepository(env.db),
		media.NewGORMRepository(env.db),
		policy.NewRoleAuthorizer(),
		env.notifier,
		env.auditor,
		listingtest.Config(),
		zap.NewNop(),
	)

	price := 12000.0
	result, err := svc.ProposeEdit(ctx, created.ID, env.seller, listing.EditListingInput{
		ListingFields: listing.ListingFields{Price: &price},
	})
	require.NoError(t, err)
	assert.True(t, result.StatusChanged)
	require.NotNil(t, result.PendingChange)

	var stored listing.Listing
	require.NoError(t, env.db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, listing.StatusPending, stored.Status, "a listing with an outstanding change is back in review")
}

func TestService_ListOutstandingChanges_Access(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t)

	_, err := env.svc.ListOutstandingChanges(ctx, created.ID, policy.Actor{ID: uuid.New(), Role: common.RoleUser})
	assert.ErrorIs(t, err, common.ErrForbidden)

	changes, err := env.svc.ListOutstandingChanges(ctx, created.ID, policy.Actor{ID: uuid.New(), Role: common.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestService_UpdateStatus(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t)
	env.setStatus(t, created.ID, listing.StatusApproved)
	env.reset()

	withdrawn, err := env.svc.UpdateStatus(ctx, created.ID, env.seller, listing.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusInactive, withdrawn.Status)
	assert.False(t, withdrawn.IsActive)

	resubmitted, err := env.svc.UpdateStatus(ctx, created.ID, env.seller, listing.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusPending, resubmitted.Status)
	assert.True(t, resubmitted.IsActive)

	assert.Equal(t, []audit.Action{audit.ActionStatusChanged, audit.ActionStatusChanged}, env.auditor.Actions())
	assert.Equal(t, []notification.NotificationType{notification.ListingUnderReview}, env.notifier.Types())

	tests := []struct {
		name   string
		from   listing.Status
		to     listing.Status
		actor  policy.Actor
		target error
	}{
		{"seller cannot approve", listing.StatusPending, listing.StatusApproved, env.seller, common.ErrInvalidState},
		{"seller cannot mark sold here", listing.StatusApproved, listing.StatusSold, env.seller, common.ErrInvalidState},
		{"approved cannot be resubmitted", listing.StatusApproved, listing.StatusPending, env.seller, common.ErrInvalidState},
		{"inactive cannot be withdrawn again", listing.StatusInactive, listing.StatusInactive, env.seller, common.ErrInvalidState},
		{"unknown status", listing.StatusApproved, listing.Status("archived"), env.seller, common.ErrInvalidState},
		{"stranger", listing.StatusApproved, listing.StatusInactive, policy.Actor{ID: uuid.New(), Role: common.RoleUser}, common.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.setStatus(t, created.ID, tt.from)
			_, err := env.svc.UpdateStatus(ctx, created.ID, tt.actor, tt.to)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestService_Counters(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	created := env.create(t)

	_, err := env.svc.GetListing(ctx, created.ID)
	require.NoError(t, err)
	viewed, err := env.svc.GetListing(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, viewed.ViewCount)

	require.NoError(t, env.svc.RecordInquiry(ctx, created.ID))
	after, err := env.svc.GetListing(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.InquiryCount)

	require.NoError(t, env.svc.RecordFavorite(ctx, created.ID))
	require.NoError(t, env.svc.RecordFavorite(ctx, created.ID))
	var stored listing.Listing
	require.NoError(t, env.db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, 2, stored.FavoriteCount)
	assert.Equal(t, 1, stored.InquiryCount)

	_, err = env.svc.GetListing(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, env.svc.RecordInquiry(ctx, uuid.New()), common.ErrNotFound)
	assert.ErrorIs(t, env.svc.RecordFavorite(ctx, uuid.New()), common.ErrNotFound)
}

func TestService_ListSellerListings(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	first := env.create(t)
	second := env.create(t)

	listings, pagination, err := env.svc.ListSellerListings(ctx, env.seller.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, second.ID, listings[0].ID)
	assert.Equal(t, first.ID, listings[1].ID)
	assert.Equal(t, int64(2), pagination.TotalItems)

	page, pagination, err := env.svc.ListSellerListings(ctx, env.seller.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
	assert.False(t, pagination.HasNext)
	assert.True(t, pagination.HasPrev)
}

func TestService_ExpireListings(t *testing.T) {
	env := setupListingService(t)
	ctx := context.Background()
	stale := env.create(t)
	fresh := env.create(t)
	waiting := env.create(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	require.NoError(t, env.db.Model(&listing.Listing{}).Where("id = ?", stale.ID).
		Updates(map[string]interface{}{"status": listing.StatusApproved, "expires_at": past}).Error)
	require.NoError(t, env.db.Model(&listing.Listing{}).Where("id = ?", fresh.ID).
		Updates(map[string]interface{}{"status": listing.StatusApproved, "expires_at": future}).Error)
	require.NoError(t, env.db.Model(&listing.Listing{}).Where("id = ?", waiting.ID).
		Update("expires_at", past).Error)
	env.reset()

	count, err := env.svc.ExpireListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var statuses []listing.Listing
	require.NoError(t, env.db.Order("created_at ASC, id ASC").Find(&statuses).Error)
	assert.Equal(t, listing.StatusInactive, statuses[0].Status)
	assert.False(t, statuses[0].IsActive)
	assert.Equal(t, listing.StatusApproved, statuses[1].Status)
	assert.Equal(t, listing.StatusPending, statuses[2].Status)

	assert.Equal(t, []notification.NotificationType{notification.ListingDeactivated}, env.notifier.Types())
	assert.Equal(t, []audit.Action{audit.ActionExpired}, env.auditor.Actions())

	again, err := env.svc.ExpireListings(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}
