// File: internal/moderation/service.go

// Package moderation is the admin side of the listing lifecycle: approving or rejecting
// staged edits, deactivating listings and curating featured ones.
package moderation

import (
	"context"
	"time"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/listing"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/policy"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListingReview is a listing together with the edits awaiting review.
type ListingReview struct {
	Listing        *listing.Listing        `json:"listing"`
	PendingChanges []listing.PendingChange `json:"pendingChanges"`
}

// Service defines the moderation operations.
type Service interface {
	Approve(ctx context.Context, listingID uuid.UUID, reviewer policy.Actor) (*listing.Listing, error)
	Reject(ctx context.Context, listingID uuid.UUID, reviewer policy.Actor, reason *string) (*listing.Listing, error)
	Deactivate(ctx context.Context, listingID uuid.UUID, admin policy.Actor, reason *string) (*listing.Listing, error)
	ListPendingListings(ctx context.Context, admin policy.Actor, page, pageSize int) ([]listing.Listing, *common.Pagination, error)
	GetListingWithPendingChanges(ctx context.Context, listingID uuid.UUID, admin policy.Actor) (*ListingReview, error)
	ToggleFeatured(ctx context.Context, listingID uuid.UUID, admin policy.Actor) (*listing.Listing, error)
}

// ServiceImplementation implements the moderation Service.
type ServiceImplementation struct {
	db         *gorm.DB
	listings   listing.Repository
	pending    listing.PendingChangeRepository
	mediaRepo  media.Repository
	authorizer policy.Authorizer
	notifier   notification.Sink
	auditor    audit.Sink
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new moderation service.
func NewService(
	db *gorm.DB,
	listings listing.Repository,
	pending listing.PendingChangeRepository,
	mediaRepo media.Repository,
	authorizer policy.Authorizer,
	notifier notification.Sink,
	auditor audit.Sink,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	return &ServiceImplementation{
		db:         db,
		listings:   listings,
		pending:    pending,
		mediaRepo:  mediaRepo,
		authorizer: authorizer,
		notifier:   notifier,
		auditor:    auditor,
		cfg:        cfg,
		logger:     logger.Named("moderation"),
		now:        time.Now,
	}
}

// Approve applies every outstanding change of a pending listing in creation order and
// publishes it. Substantive media lists replace the stored collection once per kind, using
// the last list in the batch. The whole call is one transaction.
func (s *ServiceImplementation) Approve(ctx context.Context, listingID uuid.UUID, reviewer policy.Actor) (*listing.Listing, error) {
	if err := s.requireModerator(ctx, reviewer, listingID); err != nil {
		return nil, err
	}

	now := s.now()
	var approved *listing.Listing
	var applied int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listings := s.listings.WithTx(tx)
		pending := s.pending.WithTx(tx)
		mediaRepo := s.mediaRepo.WithTx(tx)

		if err := listings.LockForUpdate(ctx, listingID); err != nil {
			return err
		}
		current, err := listings.FindByID(ctx, listingID, true)
		if err != nil {
			return err
		}
		if current.Status != listing.StatusPending {
			return common.ErrInvalidState.WithDetails("Only pending listings can be approved.")
		}
		detail := current.CarDetail
		if detail == nil {
			return common.ErrInternalServer.WithDetails("Listing has no car details.")
		}

		changes, err := pending.ListOutstanding(ctx, listingID)
		if err != nil {
			return err
		}

		var finalImages []media.ImageInput
		var finalVideos []media.VideoInput
		var replaceImages, replaceVideos bool
		for _, pc := range changes {
			set := pc.Changes.Data()

			if cols := set.Listing.Columns(); len(cols) > 0 {
				if set.Listing.Title != nil {
					cols["slug"] = slug.Make(*set.Listing.Title)
				}
				if err := listings.UpdateColumns(ctx, listingID, cols); err != nil {
					return err
				}
			}
			if err := listings.UpdateCarDetailColumns(ctx, detail.ID, set.CarDetail.Columns()); err != nil {
				return err
			}

			if pc.ImageChange == media.ChangeSubstantive {
				if pc.BaseImageRevision != detail.ImageRevision {
					return common.ErrConflict.WithDetails("Images changed after this edit was submitted. Reject it and ask the seller to resubmit.")
				}
				finalImages, replaceImages = set.Images, true
			}
			if pc.VideoChange == media.ChangeSubstantive {
				if pc.BaseVideoRevision != detail.VideoRevision {
					return common.ErrConflict.WithDetails("Videos changed after this edit was submitted. Reject it and ask the seller to resubmit.")
				}
				finalVideos, replaceVideos = set.Videos, true
			}

			if err := pending.MarkHandled(ctx, pc.ID, listing.OutcomeApplied, reviewer.ID, now, nil); err != nil {
				return err
			}
		}

		if replaceImages {
			if _, err := mediaRepo.ReplaceImages(ctx, detail.ID, finalImages); err != nil {
				return err
			}
			if err := mediaRepo.BumpRevision(ctx, detail.ID, media.KindImage); err != nil {
				return err
			}
		}
		if replaceVideos {
			if _, err := mediaRepo.ReplaceVideos(ctx, detail.ID, finalVideos); err != nil {
				return err
			}
			if err := mediaRepo.BumpRevision(ctx, detail.ID, media.KindVideo); err != nil {
				return err
			}
		}

		cols, err := listing.Transition(listing.StatusPending, listing.StatusApproved, now, s.cfg.ListingLifespan(), nil)
		if err != nil {
			return err
		}
		if err := listings.ApplyTransition(ctx, listingID, listing.StatusPending, cols); err != nil {
			return err
		}
		applied = len(changes)
		approved, err = listings.FindByID(ctx, listingID, true)
		return err
	})
	if err != nil {
		s.logger.Warn("Listing approval failed", zap.String("listingID", listingID.String()), zap.String("reviewerID", reviewer.ID.String()), zap.Error(err))
		return nil, wrapInternal(err, "Could not approve listing.")
	}

	s.logger.Info("Listing approved",
		zap.String("listingID", listingID.String()),
		zap.String("reviewerID", reviewer.ID.String()),
		zap.Int("pendingChangesApplied", applied),
	)
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		UserID:           approved.SellerID,
		Type:             notification.ListingApproved,
		Title:            "Listing Approved",
		Body:             "Your listing \"" + approved.Title + "\" has been approved and is now live.",
		RelatedListingID: &approved.ID,
	})
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:      reviewer.ID,
		ListingID:    listingID,
		TargetUserID: &approved.SellerID,
		Action:       audit.ActionApproved,
		Category:     audit.CategoryAdminAction,
		Message:      "Listing approved",
		Metadata:     map[string]interface{}{"pendingChangesApplied": applied},
	})
	return approved, nil
}

// Reject refuses a pending listing and every edit still waiting on it.
func (s *ServiceImplementation) Reject(ctx context.Context, listingID uuid.UUID, reviewer policy.Actor, reason *string) (*listing.Listing, error) {
	if err := s.requireModerator(ctx, reviewer, listingID); err != nil {
		return nil, err
	}

	now := s.now()
	var rejected *listing.Listing
	var disposed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listings := s.listings.WithTx(tx)
		pending := s.pending.WithTx(tx)

		if err := listings.LockForUpdate(ctx, listingID); err != nil {
			return err
		}
		current, err := listings.FindByID(ctx, listingID, false)
		if err != nil {
			return err
		}
		if current.Status != listing.StatusPending {
			return common.ErrInvalidState.WithDetails("Only pending listings can be rejected.")
		}

		cols, err := listing.Transition(listing.StatusPending, listing.StatusRejected, now, 0, reason)
		if err != nil {
			return err
		}
		if err := listings.ApplyTransition(ctx, listingID, listing.StatusPending, cols); err != nil {
			return err
		}

		changes, err := pending.ListOutstanding(ctx, listingID)
		if err != nil {
			return err
		}
		for _, pc := range changes {
			if err := pending.MarkHandled(ctx, pc.ID, listing.OutcomeRejected, reviewer.ID, now, reason); err != nil {
				return err
			}
		}
		disposed = len(changes)
		rejected, err = listings.FindByID(ctx, listingID, false)
		return err
	})
	if err != nil {
		s.logger.Warn("Listing rejection failed", zap.String("listingID", listingID.String()), zap.String("reviewerID", reviewer.ID.String()), zap.Error(err))
		return nil, wrapInternal(err, "Could not reject listing.")
	}

	body := "Your listing \"" + rejected.Title + "\" was not approved."
	if reason != nil && *reason != "" {
		body += " Reason: " + *reason
	}
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		UserID:           rejected.SellerID,
		Type:             notification.ListingRejected,
		Title:            "Listing Rejected",
		Body:             body,
		RelatedListingID: &rejected.ID,
		Metadata:         map[string]interface{}{"reason": deref(reason)},
	})
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:      reviewer.ID,
		ListingID:    listingID,
		TargetUserID: &rejected.SellerID,
		Action:       audit.ActionRejected,
		Level:        audit.LevelWarning,
		Category:     audit.CategoryAdminAction,
		Message:      "Listing rejected",
		Metadata:     map[string]interface{}{"reason": deref(reason), "pendingChangesRejected": disposed},
	})
	return rejected, nil
}

// Deactivate is the admin soft delete.
func (s *ServiceImplementation) Deactivate(ctx context.Context, listingID uuid.UUID, admin policy.Actor, reason *string) (*listing.Listing, error) {
	if err := s.requireModerator(ctx, admin, listingID); err != nil {
		return nil, err
	}

	var from listing.Status
	var deactivated *listing.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listings := s.listings.WithTx(tx)
		if err := listings.LockForUpdate(ctx, listingID); err != nil {
			return err
		}
		current, err := listings.FindByID(ctx, listingID, false)
		if err != nil {
			return err
		}
		from = current.Status
		cols, err := listing.Transition(from, listing.StatusInactive, s.now(), 0, nil)
		if err != nil {
			return err
		}
		if err := listings.ApplyTransition(ctx, listingID, from, cols); err != nil {
			return err
		}
		deactivated, err = listings.FindByID(ctx, listingID, false)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "Could not deactivate listing.")
	}

	s.logger.Info("Listing deactivated", zap.String("listingID", listingID.String()), zap.String("adminID", admin.ID.String()))
	body := "Your listing \"" + deactivated.Title + "\" was deactivated by an administrator."
	if reason != nil && *reason != "" {
		body += " Reason: " + *reason
	}
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		UserID:           deactivated.SellerID,
		Type:             notification.ListingDeactivated,
		Title:            "Listing Deactivated",
		Body:             body,
		RelatedListingID: &deactivated.ID,
	})
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:      admin.ID,
		ListingID:    listingID,
		TargetUserID: &deactivated.SellerID,
		Action:       audit.ActionDeactivated,
		Level:        audit.LevelWarning,
		Category:     audit.CategoryAdminAction,
		Message:      "Listing deactivated",
		Metadata:     map[string]interface{}{"from": string(from), "reason": deref(reason)},
	})
	return deactivated, nil
}

func (s *ServiceImplementation) ListPendingListings(ctx context.Context, admin policy.Actor, page, pageSize int) ([]listing.Listing, *common.Pagination, error) {
	if err := s.requireModerator(ctx, admin, uuid.Nil); err != nil {
		return nil, nil, err
	}
	page, pageSize = common.NormalizePage(page, pageSize)
	listings, pagination, err := s.listings.ListByStatus(ctx, listing.StatusPending, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list pending listings", zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve pending listings.")
	}
	return listings, pagination, nil
}

func (s *ServiceImplementation) GetListingWithPendingChanges(ctx context.Context, listingID uuid.UUID, admin policy.Actor) (*ListingReview, error) {
	if err := s.requireModerator(ctx, admin, listingID); err != nil {
		return nil, err
	}
	l, err := s.listings.FindByID(ctx, listingID, true)
	if err != nil {
		return nil, wrapInternal(err, "Could not retrieve listing.")
	}
	changes, err := s.pending.ListOutstanding(ctx, listingID)
	if err != nil {
		s.logger.Error("Failed to list pending changes", zap.String("listingID", listingID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve pending changes.")
	}
	return &ListingReview{Listing: l, PendingChanges: changes}, nil
}

func (s *ServiceImplementation) ToggleFeatured(ctx context.Context, listingID uuid.UUID, admin policy.Actor) (*listing.Listing, error) {
	if err := s.requireModerator(ctx, admin, listingID); err != nil {
		return nil, err
	}

	var toggled *listing.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listings := s.listings.WithTx(tx)
		if err := listings.LockForUpdate(ctx, listingID); err != nil {
			return err
		}
		current, err := listings.FindByID(ctx, listingID, false)
		if err != nil {
			return err
		}
		if err := listings.UpdateColumns(ctx, listingID, map[string]interface{}{"is_featured": !current.IsFeatured}); err != nil {
			return err
		}
		toggled, err = listings.FindByID(ctx, listingID, false)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "Could not update listing.")
	}

	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:   admin.ID,
		ListingID: listingID,
		Action:    audit.ActionFeatureToggled,
		Category:  audit.CategoryAdminAction,
		Message:   "Listing featured flag changed",
		Metadata:  map[string]interface{}{"isFeatured": toggled.IsFeatured},
	})
	return toggled, nil
}

func (s *ServiceImplementation) requireModerator(ctx context.Context, actor policy.Actor, listingID uuid.UUID) error {
	if !s.authorizer.Can(ctx, actor, policy.ActionModerate, policy.Resource{ListingID: listingID}) {
		return common.ErrForbidden.WithDetails("Only administrators can moderate listings.")
	}
	return nil
}

func wrapInternal(err error, details string) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	return common.ErrInternalServer.WithDetails(details)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
