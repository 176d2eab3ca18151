package checkout

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/storebridge/server/internal/shared/errors"
	"github.com/storebridge/server/internal/shared/response"
)

// Handler serves the checkout routes.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a checkout handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the checkout routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/create-checkout", h.CreateCheckout)
}

// CreateCheckout opens a hosted-checkout session and returns the redirect
// URL the storefront script sends the buyer to.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.service.CreateCheckout(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, apperrors.GetStatusCode(err), err.Error())
		return
	}
	response.OK(c, session)
}
