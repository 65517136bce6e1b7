// File: internal/sale/handler.go
package sale

import (
	"carmarket_backend/internal/common"
	"carmarket_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for sale handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new sale handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the sale routes under /listings and the admin ledger under /admin/transactions.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	saleGroup := router.Group("/listings")
	saleGroup.Use(authMW)
	{
		saleGroup.POST("/:id/sold", h.markAsSold)
		saleGroup.GET("/:id/transactions", h.listTransactions)
	}

	router.GET("/admin/transactions", authMW, adminRoleMW, h.listAllTransactions)
}

func (h *Handler) markAsSold(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req MarkAsSoldInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Mark as sold: Invalid request payload", zap.Error(err), zap.String("listingID", listingID.String()))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	txn, err := h.service.MarkAsSold(c.Request.Context(), listingID, actor, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing marked as sold.", txn)
}

func (h *Handler) listTransactions(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	listingID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	txns, err := h.service.ListTransactionsForListing(c.Request.Context(), listingID, actor)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Transactions retrieved successfully.", txns)
}

func (h *Handler) listAllTransactions(c *gin.Context) {
	actor, ok := middleware.RequireActor(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	txns, pagination, err := h.service.ListTransactions(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Transactions retrieved successfully.", txns, pagination)
}
