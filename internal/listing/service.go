// File: internal/listing/service.go
package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/config"
	"carmarket_backend/internal/media"
	"carmarket_backend/internal/notification"
	"carmarket_backend/internal/policy"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service defines the interface for seller-facing listing operations.
type Service interface {
	CreateListing(ctx context.Context, actor policy.Actor, input CreateListingInput) (*Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	ProposeEdit(ctx context.Context, id uuid.UUID, actor policy.Actor, input EditListingInput) (*EditResult, error)
	ListOutstandingChanges(ctx context.Context, id uuid.UUID, actor policy.Actor) ([]PendingChange, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, actor policy.Actor, status Status) (*Listing, error)
	RecordInquiry(ctx context.Context, id uuid.UUID) error
	RecordFavorite(ctx context.Context, id uuid.UUID) error
	ListSellerListings(ctx context.Context, sellerID uuid.UUID, page, pageSize int) ([]Listing, *common.Pagination, error)
	// ExpireListings deactivates approved listings past their expiry and returns how many it changed.
	ExpireListings(ctx context.Context) (int, error)
}

// ServiceImplementation implements the listing Service.
type ServiceImplementation struct {
	db         *gorm.DB
	repo       Repository
	pending    PendingChangeRepository
	mediaRepo  media.Repository
	authorizer policy.Authorizer
	notifier   notification.Sink
	auditor    audit.Sink
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new listing service.
func NewService(
	db *gorm.DB,
	repo Repository,
	pending PendingChangeRepository,
	mediaRepo media.Repository,
	authorizer policy.Authorizer,
	notifier notification.Sink,
	auditor audit.Sink,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	return &ServiceImplementation{
		db:         db,
		repo:       repo,
		pending:    pending,
		mediaRepo:  mediaRepo,
		authorizer: authorizer,
		notifier:   notifier,
		auditor:    auditor,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ServiceImplementation) CreateListing(ctx context.Context, actor policy.Actor, input CreateListingInput) (*Listing, error) {
	if !s.authorizer.Can(ctx, actor, policy.ActionCreateListing, policy.Resource{}) {
		return nil, common.ErrForbidden.WithDetails("You are not allowed to create listings.")
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	priceType := input.PriceType
	if priceType == "" {
		priceType = PriceTypeFixed
	}
	detail := newCarDetail(input.CarDetail)
	listing := &Listing{
		SellerID:    actor.ID,
		Title:       strings.TrimSpace(input.Title),
		Slug:        slug.Make(input.Title),
		Description: input.Description,
		Price:       input.Price,
		PriceType:   priceType,
		Status:      StatusPending,
		Location:    input.Location,
		City:        input.City,
		State:       input.State,
		Country:     input.Country,
		PostalCode:  input.PostalCode,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		IsActive:    true,
		IsUrgent:    input.IsUrgent,
		CarDetail:   detail,
	}

	var created *Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		mediaRepo := s.mediaRepo.WithTx(tx)

		if err := repo.Create(ctx, listing); err != nil {
			return err
		}
		if _, err := mediaRepo.CreateImages(ctx, detail.ID, input.Images); err != nil {
			return err
		}
		if _, err := mediaRepo.CreateVideos(ctx, detail.ID, input.Videos); err != nil {
			return err
		}
		var err error
		created, err = repo.FindByID(ctx, listing.ID, true)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to create listing", zap.String("sellerID", actor.ID.String()), zap.Error(err))
		return nil, wrapInternal(err, "Could not create listing.")
	}

	s.logger.Info("Listing created", zap.String("listingID", created.ID.String()), zap.String("sellerID", actor.ID.String()))
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:   actor.ID,
		ListingID: created.ID,
		Action:    audit.ActionCreated,
		Category:  audit.CategoryListing,
		Message:   "Listing created and submitted for review",
		Metadata: map[string]interface{}{
			"imageCount": len(input.Images),
			"videoCount": len(input.Videos),
		},
	})
	notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
		UserID:           actor.ID,
		Type:             notification.ListingSubmitted,
		Title:            "Listing Submitted",
		Body:             "Your listing \"" + created.Title + "\" was submitted and is awaiting review.",
		RelatedListingID: &created.ID,
	})
	return created, nil
}

func (s *ServiceImplementation) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	if err := s.repo.IncrementCounter(ctx, id, CounterViews); err != nil {
		return nil, wrapInternal(err, "Could not retrieve listing.")
	}
	listing, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, wrapInternal(err, "Could not retrieve listing.")
	}
	return listing, nil
}

func (s *ServiceImplementation) RecordInquiry(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.IncrementCounter(ctx, id, CounterInquiries); err != nil {
		return wrapInternal(err, "Could not record inquiry.")
	}
	return nil
}

func (s *ServiceImplementation) RecordFavorite(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.IncrementCounter(ctx, id, CounterFavorites); err != nil {
		return wrapInternal(err, "Could not record favorite.")
	}
	return nil
}

func (s *ServiceImplementation) ProposeEdit(ctx context.Context, id uuid.UUID, actor policy.Actor, input EditListingInput) (*EditResult, error) {
	if err := validateEditInput(input); err != nil {
		return nil, err
	}
	result := &EditResult{ImageChange: media.ChangeNone, VideoChange: media.ChangeNone}
	var listingDelta ListingFields
	var detailDelta CarDetailFields

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pending := s.pending.WithTx(tx)
		mediaRepo := s.mediaRepo.WithTx(tx)

		if err := repo.LockForUpdate(ctx, id); err != nil {
			return err
		}
		current, err := repo.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := s.requireOwner(ctx, actor, policy.ActionEditListing, current); err != nil {
			return err
		}
		if current.Status == StatusSold || current.Status == StatusInactive {
			return common.ErrInvalidState.WithDetails("Sold or inactive listings cannot be edited.")
		}
		detail := current.CarDetail
		if detail == nil {
			return common.ErrInternalServer.WithDetails("Listing has no car details.")
		}

		original := OriginalValues{
			Listing:   SnapshotListing(current),
			CarDetail: SnapshotCarDetail(detail),
			Images:    media.ImageInputs(detail.Images),
			Videos:    media.VideoInputs(detail.Videos),
		}

		listingDelta = DiffListing(current, input.ListingFields)
		if input.CarDetail != nil {
			detailDelta = DiffCarDetail(detail, *input.CarDetail)
		}
		result.ImageChange = media.ClassifyImages(detail.Images, input.Images)
		result.VideoChange = media.ClassifyVideos(detail.Videos, input.Videos)

		if result.ImageChange == media.ChangeReorderOnly {
			if err := mediaRepo.ApplyImageOrder(ctx, detail.ID, input.Images); err != nil {
				return err
			}
			if err := mediaRepo.BumpRevision(ctx, detail.ID, media.KindImage); err != nil {
				return err
			}
			detail.ImageRevision++
		}
		if result.VideoChange == media.ChangeReorderOnly {
			if err := mediaRepo.ApplyVideoOrder(ctx, detail.ID, input.Videos); err != nil {
				return err
			}
			if err := mediaRepo.BumpRevision(ctx, detail.ID, media.KindVideo); err != nil {
				return err
			}
			detail.VideoRevision++
		}

		result.HasSubstantiveChanges = !listingDelta.IsEmpty() || !detailDelta.IsEmpty() ||
			result.ImageChange == media.ChangeSubstantive || result.VideoChange == media.ChangeSubstantive

		if result.HasSubstantiveChanges {
			changes := ChangeSet{Listing: listingDelta, CarDetail: detailDelta}
			if result.ImageChange == media.ChangeSubstantive {
				changes.Images = input.Images
			}
			if result.VideoChange == media.ChangeSubstantive {
				changes.Videos = input.Videos
			}
			result.PendingChange, err = pending.Stage(ctx, StageRequest{
				ListingID:         current.ID,
				ProposerID:        actor.ID,
				Changes:           changes,
				Original:          original,
				ImageChange:       result.ImageChange,
				VideoChange:       result.VideoChange,
				BaseImageRevision: detail.ImageRevision,
				BaseVideoRevision: detail.VideoRevision,
			})
			if err != nil {
				return err
			}

			// The status read above may be stale, so the committed row decides.
			cols := transitionColumns(StatusPending, s.now(), s.cfg.ListingLifespan(), nil)
			result.StatusChanged, err = repo.Reopen(ctx, current.ID, ReopenedByEdit, cols)
			if err != nil {
				return err
			}
			if !result.StatusChanged {
				latest, err := repo.FindByID(ctx, id, false)
				if err != nil {
					return err
				}
				if latest.Status != StatusPending {
					return common.ErrInvalidState.WithDetails(fmt.Sprintf("Listing in status %s cannot be edited.", latest.Status))
				}
			}
		}

		result.Listing, err = repo.FindByID(ctx, id, true)
		return err
	})
	if err != nil {
		s.logger.Warn("Listing edit failed", zap.String("listingID", id.String()), zap.String("actorID", actor.ID.String()), zap.Error(err))
		return nil, wrapInternal(err, "Could not update listing.")
	}

	s.recordEdit(ctx, actor, result, listingDelta, detailDelta)
	return result, nil
}

func (s *ServiceImplementation) recordEdit(ctx context.Context, actor policy.Actor, result *EditResult, listingDelta ListingFields, detailDelta CarDetailFields) {
	listing := result.Listing
	if result.ImageChange == media.ChangeReorderOnly {
		audit.Record(ctx, s.auditor, s.logger, audit.Entry{
			ActorID:   actor.ID,
			ListingID: listing.ID,
			Action:    audit.ActionImageReordered,
			Message:   "Images reordered",
		})
	}
	if result.VideoChange == media.ChangeReorderOnly {
		audit.Record(ctx, s.auditor, s.logger, audit.Entry{
			ActorID:   actor.ID,
			ListingID: listing.ID,
			Action:    audit.ActionVideoReordered,
			Message:   "Videos reordered",
		})
	}
	if !result.HasSubstantiveChanges {
		return
	}

	fields := append(listingDelta.Names(), detailDelta.Names()...)
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:   actor.ID,
		ListingID: listing.ID,
		Action:    audit.ActionEditSubmitted,
		Message:   "Listing changes submitted for review",
		Metadata: map[string]interface{}{
			"pendingChangeID": result.PendingChange.ID.String(),
			"fields":          fields,
			"imageChange":     string(result.ImageChange),
			"videoChange":     string(result.VideoChange),
		},
	})
	if result.StatusChanged {
		notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
			UserID:           listing.SellerID,
			Type:             notification.ListingUnderReview,
			Title:            "Listing Under Review",
			Body:             "Your changes to \"" + listing.Title + "\" are awaiting review.",
			RelatedListingID: &listing.ID,
		})
	}
}

func (s *ServiceImplementation) ListOutstandingChanges(ctx context.Context, id uuid.UUID, actor policy.Actor) ([]PendingChange, error) {
	listing, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, wrapInternal(err, "Could not retrieve pending changes.")
	}
	if !s.authorizer.Can(ctx, actor, policy.ActionViewPendingChanges, resourceOf(listing)) {
		return nil, common.ErrForbidden.WithDetails("You are not allowed to view changes of this listing.")
	}
	changes, err := s.pending.ListOutstanding(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list pending changes", zap.String("listingID", id.String()), zap.Error(err))
		return nil, wrapInternal(err, "Could not retrieve pending changes.")
	}
	return changes, nil
}

// UpdateStatus lets a seller withdraw a listing or resubmit an inactive or draft one.
func (s *ServiceImplementation) UpdateStatus(ctx context.Context, id uuid.UUID, actor policy.Actor, status Status) (*Listing, error) {
	var from Status
	var updated *Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id, false)
		if err != nil {
			return err
		}
		if err := s.requireOwner(ctx, actor, policy.ActionUpdateStatus, current); err != nil {
			return err
		}
		from = current.Status

		switch status {
		case StatusInactive:
		case StatusPending:
			if from != StatusInactive && from != StatusDraft {
				return common.ErrInvalidState.WithDetails("Only inactive or draft listings can be resubmitted.")
			}
		default:
			return common.ErrInvalidState.WithDetails("Sellers may only withdraw or resubmit a listing.")
		}

		cols, err := Transition(from, status, s.now(), s.cfg.ListingLifespan(), nil)
		if err != nil {
			return err
		}
		if err := repo.ApplyTransition(ctx, id, from, cols); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, id, true)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "Could not update listing status.")
	}

	s.logger.Info("Listing status updated by seller",
		zap.String("listingID", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	audit.Record(ctx, s.auditor, s.logger, audit.Entry{
		ActorID:   actor.ID,
		ListingID: id,
		Action:    audit.ActionStatusChanged,
		Message:   "Listing status changed from " + string(from) + " to " + string(status),
		Metadata:  map[string]interface{}{"from": string(from), "to": string(status)},
	})
	if status == StatusPending {
		notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
			UserID:           updated.SellerID,
			Type:             notification.ListingUnderReview,
			Title:            "Listing Under Review",
			Body:             "Your listing \"" + updated.Title + "\" was resubmitted and is awaiting review.",
			RelatedListingID: &updated.ID,
		})
	}
	return updated, nil
}

func (s *ServiceImplementation) ListSellerListings(ctx context.Context, sellerID uuid.UUID, page, pageSize int) ([]Listing, *common.Pagination, error) {
	page, pageSize = common.NormalizePage(page, pageSize)
	listings, pagination, err := s.repo.ListBySeller(ctx, sellerID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list seller listings", zap.String("sellerID", sellerID.String()), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve listings.")
	}
	return listings, pagination, nil
}

func (s *ServiceImplementation) ExpireListings(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.repo.FindExpired(ctx, now)
	if err != nil {
		s.logger.Error("Failed to find expired listings", zap.Error(err))
		return 0, err
	}

	count := 0
	for _, l := range expired {
		cols, err := Transition(l.Status, StatusInactive, now, 0, nil)
		if err != nil {
			continue
		}
		if err := s.repo.ApplyTransition(ctx, l.ID, l.Status, cols); err != nil {
			s.logger.Warn("Failed to expire listing", zap.String("listingID", l.ID.String()), zap.Error(err))
			continue
		}
		count++
		audit.Record(ctx, s.auditor, s.logger, audit.Entry{
			ListingID: l.ID,
			Action:    audit.ActionExpired,
			Message:   "Listing expired",
		})
		notification.Deliver(ctx, s.notifier, s.logger, notification.Message{
			UserID:           l.SellerID,
			Type:             notification.ListingDeactivated,
			Title:            "Listing Expired",
			Body:             "Your listing \"" + l.Title + "\" has expired and is no longer visible.",
			RelatedListingID: &l.ID,
		})
	}
	if count > 0 {
		s.logger.Info("Expired listings deactivated", zap.Int("count", count))
	}
	return count, nil
}

// requireOwner enforces seller ownership in addition to the authorizer's decision.
func (s *ServiceImplementation) requireOwner(ctx context.Context, actor policy.Actor, action policy.Action, listing *Listing) error {
	if listing.SellerID != actor.ID || !s.authorizer.Can(ctx, actor, action, resourceOf(listing)) {
		return common.ErrForbidden.WithDetails("You can only modify your own listings.")
	}
	return nil
}

func resourceOf(l *Listing) policy.Resource {
	return policy.Resource{ListingID: l.ID, OwnerID: l.SellerID}
}

func newCarDetail(in CarDetailInput) *CarDetail {
	detail := &CarDetail{
		Make:               strings.TrimSpace(in.Make),
		Model:              strings.TrimSpace(in.Model),
		Year:               in.Year,
		BodyType:           in.BodyType,
		FuelType:           in.FuelType,
		Transmission:       in.Transmission,
		EngineSize:         in.EngineSize,
		EnginePower:        in.EnginePower,
		Mileage:            in.Mileage,
		Color:              in.Color,
		NumberOfDoors:      in.NumberOfDoors,
		NumberOfSeats:      in.NumberOfSeats,
		Condition:          in.Condition,
		VIN:                in.VIN,
		RegistrationNumber: in.RegistrationNumber,
		PreviousOwners:     in.PreviousOwners,
		HasAccidentHistory: in.HasAccidentHistory,
		HasServiceHistory:  in.HasServiceHistory,
		Description:        in.Description,
		Features:           Features(in.Features),
	}
	if detail.NumberOfDoors == 0 {
		detail.NumberOfDoors = DefaultNumberOfDoors
	}
	if detail.NumberOfSeats == 0 {
		detail.NumberOfSeats = DefaultNumberOfSeats
	}
	// The media rows reference the detail, so its ID is fixed before the insert.
	detail.ID, _ = uuid.NewV7()
	return detail
}

func validateCreateInput(in CreateListingInput) error {
	details := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		details["title"] = "The title field is required."
	}
	if in.Price <= 0 {
		details["price"] = "The price field must be greater than 0."
	}
	if in.PriceType != "" && !in.PriceType.Valid() {
		details["priceType"] = "Unknown price type."
	}
	cd := in.CarDetail
	if !cd.BodyType.Valid() {
		details["carDetail.bodyType"] = "Unknown body type."
	}
	if !cd.FuelType.Valid() {
		details["carDetail.fuelType"] = "Unknown fuel type."
	}
	if !cd.Transmission.Valid() {
		details["carDetail.transmission"] = "Unknown transmission."
	}
	if !cd.Condition.Valid() {
		details["carDetail.condition"] = "Unknown condition."
	}
	validateImageTypes(in.Images, details)
	if len(details) > 0 {
		return common.NewValidationAPIError(details)
	}
	return nil
}

// validateEditInput repeats the enum checks binding performs, for callers that skip binding.
func validateEditInput(in EditListingInput) error {
	details := map[string]string{}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		details["title"] = "The title field must not be blank."
	}
	if in.Price != nil && *in.Price <= 0 {
		details["price"] = "The price field must be greater than 0."
	}
	if in.PriceType != nil && !in.PriceType.Valid() {
		details["priceType"] = "Unknown price type."
	}
	if cd := in.CarDetail; cd != nil {
		if cd.BodyType != nil && !cd.BodyType.Valid() {
			details["carDetail.bodyType"] = "Unknown body type."
		}
		if cd.FuelType != nil && !cd.FuelType.Valid() {
			details["carDetail.fuelType"] = "Unknown fuel type."
		}
		if cd.Transmission != nil && !cd.Transmission.Valid() {
			details["carDetail.transmission"] = "Unknown transmission."
		}
		if cd.Condition != nil && !cd.Condition.Valid() {
			details["carDetail.condition"] = "Unknown condition."
		}
	}
	validateImageTypes(in.Images, details)
	if len(details) > 0 {
		return common.NewValidationAPIError(details)
	}
	return nil
}

func validateImageTypes(images []media.ImageInput, details map[string]string) {
	for i, img := range images {
		if !img.Type.Valid() {
			details[fmt.Sprintf("images[%d].type", i)] = "Unknown image type " + string(img.Type) + "."
		}
	}
}

// wrapInternal passes APIErrors through and hides everything else behind a 500.
func wrapInternal(err error, details string) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	return common.ErrInternalServer.WithDetails(details)
}
