// File: internal/sale/service.go
package sale

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/platform/crypto"
	"carmarket_backend/internal/policy"
	"carmarket_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	transactionCodeLength        = 8
	maxTransactionNumberAttempts = 3
)

// Service defines the sale operations.
type Service interface {
	// MarkAsSold records a sale of an approved listing. Only the first of any concurrent
	// calls for the same listing succeeds.
	MarkAsSold(ctx context.Context, listingID uuid.UUID, actor policy.Actor, input MarkAsSoldInput) (*Transaction, error)
	ListTransactionsForListing(ctx context.Context, listingID uuid.UUID, actor policy.Actor) ([]Transaction, error)
	// ListTransactions pages through every sale. Admin only.
	ListTransactions(ctx context.Context, admin policy.Actor, page, pageSize int) ([]Transaction, *common.Pagination, error)
}

// ServiceImplementation implements the sale Service.
type ServiceImplementation struct {
	db         *gorm.DB
	repo       Repository
	listings   listing.Repository
	users      user.Repository
	authorizer policy.Authorizer
	notifier   notification.Sink
	auditor    audit.Sink
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
	numbers    func(now time.Time) (string, error)
}

// NewService creates a new sale service.
func NewService(
	db *gorm.DB,
	repo Repository,
	listings listing.Repository,
	users user.Repository,
	authorizer policy.Authorizer,
	notifier notification.Sink,
	auditor audit.Sink,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	s := &ServiceImplementation{
		db:         db,
		repo:       repo,
		listings:   listings,
		users:      users,
		authorizer: authorizer,
		notifier:   notifier,
		auditor:    auditor,
		cfg:        cfg,
		logger:     logger.Named("sale"),
		now:        time.Now,
	}
	s.numbers = s.transactionNumber
	return s
}

// transactionNumber returns <prefix>-<yyyymmddhhmmss>-<8 random characters>.
func (s *ServiceImplementation) transactionNumber(now time.Time) (string, error) {
	code, err := crypto.GenerateCode(transactionCodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction code: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", s.cfg.TransactionNumberPrefix, now.UTC().Format("20060102150405"), code), nil
}

func (s *ServiceImplementation) MarkAsSold(ctx context.Context, listingID uuid.UUID, actor policy.Actor, input MarkAsSoldInput) (*Transaction, error) {
	now := s.now()
	var sold *listing.Listing
	var txn *Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listings := s.listings.WithTx(tx)
		users := s.users.WithTx(tx)
		repo := s.repo.WithTx(tx)

		current, err := listings.FindByID(ctx, listingID, false)
		if err != nil {
			return err
		}
		resource := policy.Resource{ListingID: current.ID, OwnerID: current.SellerID}
		if !s.authorizer.Can(ctx, actor, policy.ActionMarkSold, resource) || current.SellerID != actor.ID {
			return common.ErrForbidden.WithDetails("Only the seller can mark this listing as sold.")
		}
		if current.SoldAt != nil {
			return common.ErrInvalidState.WithDetails("Listing is already sold.")
		}
		if current.Status != listing.StatusApproved {
			return common.ErrInvalidState.WithDetails("Only approved listings can be marked as sold.")
		}

		buyer, err := users.FindActiveByID(ctx, input.BuyerID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrNotFound.WithDetails("Buyer not found.")
			}
			return err
		}
		if buyer.ID == current.SellerID {
			return common.ErrBadRequest.WithDetails("The buyer cannot be the seller.")
		}
		if input.Amount <= 0 {
			return common.ErrBadRequest.WithDetails("Sale amount must be greater than 0.")
		}
		if !input.PaymentMethod.Valid() {
			return common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown payment method %q.", input.PaymentMethod))
		}

		ok, err := listings.MarkSold(ctx, listingID, now)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrInvalidState.WithDetails("Listing is already sold.")
		}

		buyerID := buyer.ID
		txn = &Transaction{
			Amount:           input.Amount,
			PlatformFee:      0,
			TotalAmount:      input.Amount,
			Status:           TransactionCompleted,
			PaymentMethod:    input.PaymentMethod,
			PaymentReference: input.PaymentReference,
			Notes:            input.Notes,
			SellerID:         current.SellerID,
			BuyerID:          &buyerID,
			ListingID:        listingID,
			CompletedAt:      &now,
		}
		if err := s.createWithUniqueNumber(ctx, tx, repo, txn, now); err != nil {
			return err
		}

		sold = current
		return nil
	})
	if err != nil {
		s.logger.Warn("Mark as sold failed", zap.String("listingID", listingID.String()), zap.String("actorID", actor.ID.String()), zap.Error(err))
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		return nil, common.ErrInternalServer.WithDetails("Could not complete the sale.")
	}

	s.logger.Info("Listing sold",
		zap.String("listingID", listingID.String()),
		zap.String("transactionNumber", txn.TransactionNumber),
	)
	s.announce(ctx, sold, txn)
	return txn, nil
}

// createWithUniqueNumber retries on a transaction number collision. Each attempt runs in a
// savepoint so a failed insert leaves the outer transaction usable.
func (s *ServiceImplementation) createWithUniqueNumber(ctx context.Context, tx *gorm.DB, repo Repository, txn *Transaction, now time.Time) error {
	var lastErr error
	for attempt := 1; attempt <= maxTransactionNumberAttempts; attempt++ {
		number, err := s.numbers(now)
		if err != nil {
			return err
		}
		txn.TransactionNumber = number
		lastErr = tx.Transaction(func(sp *gorm.DB) error {
			return repo.WithTx(sp).Create(ctx, txn)
		})
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return lastErr
		}
		s.logger.Warn("Transaction number collision, retrying", zap.String("transactionNumber", number), zap.Int("attempt", attempt))
		txn.ID = uuid.Nil
	}
	return fmt.Errorf("failed to allocate a unique transaction number after %d attempts: %w", maxTransactionNumberAttempts, lastErr)
}

func (s *ServiceImplementation) announce(ctx context.Context, sold *listing.Listing, txn *Transaction) {
	amount := strconv.FormatFloat(txn.Amount, 'f', 2, 64)
	buyerID := *txn.BuyerID

	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		UserID:           sold.SellerID,
		Type:             notification.ListingSold,
		Title:            "Listing Sold",
		Body:             "Your listing \"" + sold.Title + "\" was sold for " + amount + ".",
		RelatedListingID: &sold.ID,
		Metadata: map[string]interface{}{
			"listingTitle":      sold.Title,
			"buyerId":           buyerID.String(),
			"transactionNumber": txn.TransactionNumber,
			"amount":            txn.Amount,
		},
	})
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		UserID:           buyerID,
		Type:             notification.PurchaseConfirmed,
		Title:            "Purchase Confirmed",
		Body:             "Your purchase of \"" + sold.Title + "\" for " + amount + " is confirmed.",
		RelatedListingID: &sold.ID,
		Metadata: map[string]interface{}{
			"listingTitle":      sold.Title,
			"sellerId":          sold.SellerID.String(),
			"transactionNumber": txn.TransactionNumber,
			"amount":            txn.Amount,
		},
	})
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:      sold.SellerID,
		ListingID:    sold.ID,
		TargetUserID: &buyerID,
		Action:       audit.ActionSold,
		Category:     audit.CategoryTransaction,
		Message:      "Listing marked as sold",
		Metadata: map[string]interface{}{
			"transactionId":     txn.ID.String(),
			"transactionNumber": txn.TransactionNumber,
			"amount":            txn.Amount,
			"paymentMethod":     string(txn.PaymentMethod),
		},
	})
}

func (s *ServiceImplementation) ListTransactionsForListing(ctx context.Context, listingID uuid.UUID, actor policy.Actor) ([]Transaction, error) {
	current, err := s.listings.FindByID(ctx, listingID, false)
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve transactions.")
	}
	resource := policy.Resource{ListingID: current.ID, OwnerID: current.SellerID}
	if !s.authorizer.Can(ctx, actor, policy.ActionViewTransactions, resource) {
		return nil, common.ErrForbidden.WithDetails("You are not allowed to view transactions of this listing.")
	}
	txns, err := s.repo.ListByListing(ctx, listingID)
	if err != nil {
		s.logger.Error("Failed to list transactions", zap.String("listingID", listingID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve transactions.")
	}
	return txns, nil
}

func (s *ServiceImplementation) ListTransactions(ctx context.Context, admin policy.Actor, page, pageSize int) ([]Transaction, *common.Pagination, error) {
	if !s.authorizer.Can(ctx, admin, policy.ActionModerate, policy.Resource{}) {
		return nil, nil, common.ErrForbidden.WithDetails("Only admins can view all transactions.")
	}
	page, pageSize = common.NormalizePage(page, pageSize)
	txns, pagination, err := s.repo.ListAll(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list all transactions", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve transactions.")
	}
	return txns, pagination, nil
}
