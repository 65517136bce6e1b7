// File: internal/moderation/handler.go
package moderation

import (
	"errors"
	"io"

	"carmarket_backend/internal/audit"
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReasonRequest carries an optional free-text reason for reject and deactivate.
type ReasonRequest struct {
	Reason *string `json:"reason,omitempty" binding:"omitempty,max=1000"`
}

// Handler struct holds dependencies for admin listing handlers.
type Handler struct {
	service  Service
	activity audit.Service
	logger   *zap.Logger
}

// NewHandler creates a new moderation handler.
func NewHandler(service Service, activity audit.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, activity: activity, logger: logger}
}

// RegisterRoutes sets up the admin routes. Both middlewares run on every route.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	adminGroup := router.Group("/admin/listings")
	adminGroup.Use(authMW, adminRoleMW)
	{
		adminGroup.GET("/pending", h.listPending)
		adminGroup.GET("/:id", h.getListing)
		adminGroup.POST("/:id/approve", h.approve)
		adminGroup.POST("/:id/reject", h.reject)
		adminGroup.DELETE("/:id", h.deactivate)
		adminGroup.POST("/:id/feature", h.toggleFeatured)
		adminGroup.GET("/:id/activity", h.activityLog)
	}
}

func (h *Handler) listPending(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	listings, pagination, err := h.service.ListPendingListings(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Pending listings retrieved successfully.", listings, pagination)
}

func (h *Handler) getListing(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	review, err := h.service.GetListingWithPendingChanges(c.Request.Context(), listingID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", review)
}

func (h *Handler) approve(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.service.Approve(c.Request.Context(), listingID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing approved successfully.", listing)
}

func (h *Handler) reject(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	req, ok := h.bindReason(c)
	if !ok {
		return
	}
	listing, err := h.service.Reject(c.Request.Context(), listingID, actor, req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing rejected.", listing)
}

func (h *Handler) deactivate(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	req, ok := h.bindReason(c)
	if !ok {
		return
	}
	listing, err := h.service.Deactivate(c.Request.Context(), listingID, actor, req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing deactivated.", listing)
}

func (h *Handler) toggleFeatured(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.service.ToggleFeatured(c.Request.Context(), listingID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing featured flag updated.", listing)
}

func (h *Handler) activityLog(c *gin.Context) {
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	logs, pagination, err := h.activity.ListForListing(c.Request.Context(), listingID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Activity log retrieved successfully.", logs, pagination)
}

// bindReason accepts an empty body as "no reason".
func (h *Handler) bindReason(c *gin.Context) (ReasonRequest, bool) {
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Moderation: Invalid request payload", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return req, false
	}
	return req, true
}
