package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// TokenProvider supplies a currently valid access token for each call.
// credential.Manager implements it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// ClientConfig holds storefront API client configuration.
type ClientConfig struct {
	BaseURL   string // e.g. https://api.nuvemshop.com.br/v1
	StoreID   string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the storefront platform API. Order creation is the
// load-bearing call; the product methods are thin proxies for the catalog
// endpoints.
type Client struct {
	cfg    ClientConfig
	tokens TokenProvider
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a storefront API client. httpClient may be nil.
func NewClient(cfg ClientConfig, tokens TokenProvider, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, tokens: tokens, client: httpClient, logger: logger}
}

// CreateOrder creates an order on the storefront. A credential failure
// surfaces as a failed forward attempt, not a panic or a process exit.
func (c *Client) CreateOrder(ctx context.Context, payload *OrderPayload) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, payload, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &order, nil
}

// ListParams are the catalog listing filters.
type ListParams struct {
	Page      int
	PerPage   int
	Published bool
	Category  string
	Search    string
}

// ListProducts lists catalog products, resolving category names to ids and
// applying the wine-type variant filter client-side where needed.
func (c *Client) ListProducts(ctx context.Context, params ListParams) ([]Product, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(params.PerPage))
	}
	q.Set("published", strconv.FormatBool(params.Published))
	if params.Search != "" {
		q.Set("q", params.Search)
	}

	normalized := normalizeName(params.Category)
	if params.Category != "" {
		if id, ok := categoryID(normalized); ok {
			q.Set("category_id", strconv.FormatInt(id, 10))
		} else {
			c.logger.Warn("unknown category, ignoring filter", zap.String("category", params.Category))
		}
	}

	var products []Product
	if err := c.do(ctx, http.MethodGet, "/products", q, nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if isWineType(normalized) {
		products = filterByVariantValue(products, normalized)
	}
	return products, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	path := fmt.Sprintf("/products/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &product); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}

// apiError is the storefront API error body.
type apiError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain access token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := fmt.Sprintf("%s/%s%s", c.cfg.BaseURL, c.cfg.StoreID, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	// The platform uses a non-standard Authentication header.
	req.Header.Set("Authentication", "bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("storefront api: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("storefront api: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
