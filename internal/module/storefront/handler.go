package storefront

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/storebridge/server/internal/shared/response"
	"go.uber.org/zap"
)

// Handler serves the catalog proxy routes.
type Handler struct {
	client *Client
	logger *zap.Logger
}

// NewHandler creates a storefront handler.
func NewHandler(client *Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, logger: logger}
}

// RegisterRoutes registers the product routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListProducts)
	r.GET("/:id", h.GetProduct)
	r.GET("/:id/similar", h.GetSimilarProducts)
}

// ListProducts proxies the catalog listing with category and search filters.
func (h *Handler) ListProducts(c *gin.Context) {
	params := ListParams{
		Page:      intQuery(c, "page", 1),
		PerPage:   intQuery(c, "per_page", 10),
		Published: c.DefaultQuery("published", "true") == "true",
		Category:  c.Query("category"),
		Search:    c.Query("search"),
	}

	products, err := h.client.ListProducts(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		response.Error(c, 502, "failed to fetch products")
		return
	}
	response.OK(c, products)
}

// GetProduct proxies a single product fetch.
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}

	product, err := h.client.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get product failed", zap.Int64("product_id", id), zap.Error(err))
		response.Error(c, 502, "failed to fetch product")
		return
	}
	response.OK(c, product)
}

// GetSimilarProducts returns products related to the given one, with a
// fallback to unrelated products when the category is sparse.
func (h *Handler) GetSimilarProducts(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}

	ctx := c.Request.Context()

	ref, err := h.client.GetProduct(ctx, id)
	if err != nil {
		response.NotFound(c, "product not found")
		return
	}

	all, err := h.client.ListProducts(ctx, ListParams{Page: 1, PerPage: 50, Published: true})
	if err != nil {
		h.logger.Error("list products for similarity failed", zap.Error(err))
		response.Error(c, 502, "failed to fetch products")
		return
	}

	response.OK(c, SimilarProducts(ref, all, intQuery(c, "limit", 4)))
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
