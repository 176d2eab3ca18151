package credential

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/storebridge/server/internal/shared/response"
	"go.uber.org/zap"
)

// Exchanger exchanges an authorization code for a credential record.
type Exchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (*Record, error)
}

// Handler serves the OAuth install callback.
type Handler struct {
	manager     *Manager
	exchanger   Exchanger
	redirectURI string
	logger      *zap.Logger
}

// NewHandler creates a credential handler.
func NewHandler(manager *Manager, exchanger Exchanger, redirectURI string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager:     manager,
		exchanger:   exchanger,
		redirectURI: redirectURI,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/callback", h.HandleCallback)
}

// HandleCallback exchanges the authorization code delivered by the platform
// and persists the resulting credential record.
func (h *Handler) HandleCallback(c *gin.Context) {
	code := c.Query("code")
	storeID := c.Query("store_id")
	if code == "" || storeID == "" {
		response.BadRequest(c, "code and store_id are required")
		return
	}

	ctx := c.Request.Context()

	rec, err := h.exchanger.Exchange(ctx, code, h.redirectURI)
	if err != nil {
		h.logger.Error("authorization code exchange failed",
			zap.String("store_id", storeID),
			zap.Error(err),
		)
		response.Error(c, 502, "failed to obtain tokens")
		return
	}
	rec.StoreID = storeID

	if err := h.manager.Persist(ctx, rec); err != nil {
		h.logger.Error("failed to persist credential record", zap.Error(err))
		response.InternalError(c, "failed to store tokens")
		return
	}

	h.logger.Info("credential record saved", zap.String("store_id", storeID))
	response.OK(c, gin.H{"status": "tokens_saved", "store_id": storeID})
}
