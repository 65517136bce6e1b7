package sale

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"carmarket_backend/internal/common"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/listing/listingtest"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/platform/database/dbtest"
	"carmarket_backend/internal/policy"
	"carmarket_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type saleEnv struct {
	db       *gorm.DB
	svc      *ServiceImplementation
	listings listing.Service
	notifier *listingtest.Notifier
	auditor  *listingtest.Auditor
	seller   policy.Actor
	buyer    *user.User
}

func setupSale(t *testing.T) *saleEnv {
	t.Helper()
	db := dbtest.Open(t, append(listingtest.Models(), &Transaction{})...)
	listingRepo := listing.NewGORMRepository(db)
	authz := policy.NewRoleAuthorizer()
	cfg := listingtest.Config()

	env := &saleEnv{
		db:       db,
		notifier: &listingtest.Notifier{},
		auditor:  &listingtest.Auditor{},
	}
	env.listings = listing.NewService(db, listingRepo, listing.NewGORMPendingChangeRepository(db),
		media.NewGORMRepository(db), authz, env.notifier, env.auditor, cfg, zap.NewNop())
	env.svc = NewService(db, NewGORMRepository(db), listingRepo, user.NewGORMRepository(db),
		authz, env.notifier, env.auditor, cfg, zap.NewNop()).(*ServiceImplementation)

	seller := listingtest.NewUser(common.RoleUser)
	env.buyer = listingtest.NewUser(common.RoleUser)
	require.NoError(t, db.Create(seller).Error)
	require.NoError(t, db.Create(env.buyer).Error)
	env.seller = policy.Actor{ID: seller.ID, Role: seller.Role}
	return env
}

// approvedListing creates a listing and flips it to approved directly.
func (e *saleEnv) approvedListing(t *testing.T) *listing.Listing {
	t.Helper()
	created, err := e.listings.CreateListing(context.Background(), e.seller, listingtest.CreateInput("Corolla 2018"))
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&listing.Listing{}).Where("id = ?", created.ID).Update("status", listing.StatusApproved).Error)
	e.notifier.Messages = nil
	e.auditor.Entries = nil
	return created
}

func (e *saleEnv) input() MarkAsSoldInput {
	ref := "WIRE-0042"
	return MarkAsSoldInput{
		BuyerID:          e.buyer.ID,
		Amount:           14250,
		PaymentMethod:    PaymentBankTransfer,
		PaymentReference: &ref,
	}
}

func (e *saleEnv) status(t *testing.T, id uuid.UUID) listing.Status {
	t.Helper()
	var l listing.Listing
	require.NoError(t, e.db.First(&l, "id = ?", id).Error)
	return l.Status
}

func TestMarkAsSold(t *testing.T) {
	env := setupSale(t)
	ctx := context.Background()
	live := env.approvedListing(t)

	txn, err := env.svc.MarkAsSold(ctx, live.ID, env.seller, env.input())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^TXN-\d{14}-[A-Z0-9]{8}$`), txn.TransactionNumber)
	assert.Equal(t, TransactionCompleted, txn.Status)
	assert.Equal(t, 14250.0, txn.Amount)
	assert.Zero(t, txn.PlatformFee)
	assert.Equal(t, txn.Amount, txn.TotalAmount)
	assert.Equal(t, env.seller.ID, txn.SellerID)
	assert.Equal(t, env.buyer.ID, *txn.BuyerID)
	assert.NotNil(t, txn.CompletedAt)

	var sold listing.Listing
	require.NoError(t, env.db.First(&sold, "id = ?", live.ID).Error)
	assert.Equal(t, listing.StatusSold, sold.Status)
	assert.NotNil(t, sold.SoldAt)
	assert.False(t, sold.IsActive)

	require.Len(t, env.notifier.Messages, 2)
	assert.Equal(t, []notification.NotificationType{notification.ListingSold, notification.PurchaseConfirmed}, env.notifier.Types())
	assert.Equal(t, env.seller.ID, env.notifier.Messages[0].UserID)
	assert.Equal(t, env.buyer.ID, env.notifier.Messages[1].UserID)
	assert.Equal(t, txn.TransactionNumber, env.notifier.Messages[0].Metadata["transactionNumber"])
	require.Len(t, env.auditor.Entries, 1)
	assert.Equal(t, "sold", string(env.auditor.Entries[0].Action))

	t.Run("second call fails without a second transaction", func(t *testing.T) {
		_, err := env.svc.MarkAsSold(ctx, live.ID, env.seller, env.input())
		assert.ErrorIs(t, err, common.ErrInvalidState)

		txns, err := env.svc.ListTransactionsForListing(ctx, live.ID, env.seller)
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})
}

func TestMarkAsSold_Guards(t *testing.T) {
	env := setupSale(t)
	ctx := context.Background()
	live := env.approvedListing(t)

	pendingListing, err := env.listings.CreateListing(ctx, env.seller, listingtest.CreateInput("Civic 2019"))
	require.NoError(t, err)
	env.notifier.Messages = nil

	stranger := policy.Actor{ID: env.buyer.ID, Role: common.RoleUser}
	admin := policy.Actor{ID: uuid.New(), Role: common.RoleAdmin}
	dormant := listingtest.NewUser(common.RoleUser)
	require.NoError(t, env.db.Create(dormant).Error)
	require.NoError(t, env.db.Model(dormant).Update("is_active", false).Error)

	tests := []struct {
		name      string
		listingID uuid.UUID
		actor     policy.Actor
		mutate    func(in *MarkAsSoldInput)
		target    error
	}{
		{"unknown listing", uuid.New(), env.seller, nil, common.ErrNotFound},
		{"not the seller", live.ID, stranger, nil, common.ErrForbidden},
		{"admin is not the seller", live.ID, admin, nil, common.ErrForbidden},
		{"state is checked before the buyer", pendingListing.ID, env.seller, func(in *MarkAsSoldInput) { in.BuyerID = uuid.New() }, common.ErrInvalidState},
		{"unknown buyer", live.ID, env.seller, func(in *MarkAsSoldInput) { in.BuyerID = uuid.New() }, common.ErrNotFound},
		{"deactivated buyer", live.ID, env.seller, func(in *MarkAsSoldInput) { in.BuyerID = dormant.ID }, common.ErrBadRequest},
		{"buyer is the seller", live.ID, env.seller, func(in *MarkAsSoldInput) { in.BuyerID = env.seller.ID }, common.ErrBadRequest},
		{"zero amount", live.ID, env.seller, func(in *MarkAsSoldInput) { in.Amount = 0 }, common.ErrBadRequest},
		{"unknown payment method", live.ID, env.seller, func(in *MarkAsSoldInput) { in.PaymentMethod = "barter" }, common.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := env.input()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			_, err := env.svc.MarkAsSold(ctx, tt.listingID, tt.actor, in)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	assert.Equal(t, listing.StatusApproved, env.status(t, live.ID))
	assert.Empty(t, env.notifier.Messages)
	var count int64
	require.NoError(t, env.db.Model(&Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMarkAsSold_ConcurrentCallsSellOnce(t *testing.T) {
	env := setupSale(t)
	ctx := context.Background()
	live := env.approvedListing(t)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.MarkAsSold(ctx, live.ID, env.seller, env.input())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, common.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, env.db.Model(&Transaction{}).Where("listing_id = ?", live.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkAsSold_RetriesTransactionNumberCollision(t *testing.T) {
	env := setupSale(t)
	ctx := context.Background()

	taken := &Transaction{
		TransactionNumber: "TXN-TAKEN",
		Amount:            1,
		TotalAmount:       1,
		Status:            TransactionCompleted,
		PaymentMethod:     PaymentCash,
		SellerID:          uuid.New(),
		ListingID:         uuid.New(),
	}
	require.NoError(t, env.db.Create(taken).Error)

	t.Run("a fresh number is drawn", func(t *testing.T) {
		live := env.approvedListing(t)
		numbers := []string{"TXN-TAKEN", "TXN-FREE"}
		env.svc.numbers = func(time.Time) (string, error) {
			n := numbers[0]
			numbers = numbers[1:]
			return n, nil
		}

		txn, err := env.svc.MarkAsSold(ctx, live.ID, env.seller, env.input())
		require.NoError(t, err)
		assert.Equal(t, "TXN-FREE", txn.TransactionNumber)
		assert.Equal(t, listing.StatusSold, env.status(t, live.ID))
	})

	t.Run("giving up rolls the sale back", func(t *testing.T) {
		live := env.approvedListing(t)
		attempts := 0
		env.svc.numbers = func(time.Time) (string, error) {
			attempts++
			return "TXN-TAKEN", nil
		}

		_, err := env.svc.MarkAsSold(ctx, live.ID, env.seller, env.input())
		assert.ErrorIs(t, err, common.ErrInternalServer)
		assert.Equal(t, maxTransactionNumberAttempts, attempts)
		assert.Equal(t, listing.StatusApproved, env.status(t, live.ID))
		assert.Empty(t, env.notifier.Messages)
	})
}

func TestListTransactionsForListing(t *testing.T) {
	env := setupSale(t)
	ctx := context.Background()
	live := env.approvedListing(t)
	_, err := env.svc.MarkAsSold(ctx, live.ID, env.seller, env.input())
	require.NoError(t, err)

	buyerActor := policy.Actor{ID: env.buyer.ID, Role: common.RoleUser}
	_, err = env.svc.ListTransactionsForListing(ctx, live.ID, buyerActor)
	assert.ErrorIs(t, err, common.ErrForbidden)

	txns, err := env.svc.ListTransactionsForListing(ctx, live.ID, policy.Actor{ID: uuid.New(), Role: common.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	_, err = env.svc.ListTransactionsForListing(ctx, uuid.New(), env.seller)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListTransactions(t *testing.T) {
	env := setupSale(t)
	ctx := context.Background()
	first, err := env.svc.MarkAsSold(ctx, env.approvedListing(t).ID, env.seller, env.input())
	require.NoError(t, err)
	second, err := env.svc.MarkAsSold(ctx, env.approvedListing(t).ID, env.seller, env.input())
	require.NoError(t, err)

	admin := policy.Actor{ID: uuid.New(), Role: common.RoleAdmin}
	page, pg, err := env.svc.ListTransactions(ctx, admin, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID, "newest first")
	assert.Equal(t, int64(2), pg.TotalItems)
	assert.True(t, pg.HasNext)

	page, _, err = env.svc.ListTransactions(ctx, admin, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	_, _, err = env.svc.ListTransactions(ctx, env.seller, 1, 10)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestTransactionNumber(t *testing.T) {
	env := setupSale(t)
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

	number, err := env.svc.transactionNumber(at)
	require.NoError(t, err)
	assert.Regexp(t, `^TXN-20240309140506-[A-Z0-9]{8}$`, number)

	other, err := env.svc.transactionNumber(at)
	require.NoError(t, err)
	assert.NotEqual(t, number, other)
}
