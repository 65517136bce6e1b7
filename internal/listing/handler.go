// File: internal/listing/handler.go
package listing

import (
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new listing handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for listing operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	listingGroup := router.Group("/listings")
	{
		listingGroup.GET("/:id", h.getListing)

		authedListingGroup := listingGroup.Group("")
		authedListingGroup.Use(authMW)
		{
			authedListingGroup.POST("", h.createListing)
			authedListingGroup.GET("/mine", h.getMyListings)
			authedListingGroup.PUT("/:id", h.proposeEdit)
			authedListingGroup.PATCH("/:id/status", h.updateStatus)
			authedListingGroup.GET("/:id/pending-changes", h.listPendingChanges)
			authedListingGroup.POST("/:id/inquiries", h.recordInquiry)
			authedListingGroup.POST("/:id/favorites", h.recordFavorite)
		}
	}
}

func (h *Handler) createListing(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}

	var req CreateListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create listing: Invalid request payload", zap.Error(err), zap.String("userID", actor.ID.String()))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	listing, err := h.service.CreateListing(c.Request.Context(), actor, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing created and submitted for review.", listing)
}

func (h *Handler) getListing(c *gin.Context) {
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.service.GetListing(c.Request.Context(), listingID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", listing)
}

func (h *Handler) getMyListings(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User not authenticated."))
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	listings, pagination, err := h.service.ListSellerListings(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Your listings retrieved successfully.", listings, pagination)
}

func (h *Handler) proposeEdit(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req EditListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Edit listing: Invalid request payload", zap.Error(err), zap.String("listingID", listingID.String()))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	result, err := h.service.ProposeEdit(c.Request.Context(), listingID, actor, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	message := "Listing updated successfully."
	if result.HasSubstantiveChanges {
		message = "Listing changes submitted for review."
	}
	common.RespondOK(c, message, result)
}

func (h *Handler) updateStatus(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	listing, err := h.service.UpdateStatus(c.Request.Context(), listingID, actor, req.Status)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing status updated successfully.", listing)
}

func (h *Handler) listPendingChanges(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	changes, err := h.service.ListOutstandingChanges(c.Request.Context(), listingID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Pending changes retrieved successfully.", changes)
}

func (h *Handler) recordInquiry(c *gin.Context) {
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.RecordInquiry(c.Request.Context(), listingID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Inquiry recorded.", nil)
}

func (h *Handler) recordFavorite(c *gin.Context) {
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.RecordFavorite(c.Request.Context(), listingID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Favorite recorded.", nil)
}
