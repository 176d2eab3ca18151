package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Client fetches authoritative payment state by id. The fetch is an
// idempotent GET; the reconciler leans on that to re-run safely.
type Client interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// ClientConfig holds processor API client configuration.
type ClientConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// HTTPClient is the REST implementation of Client, wrapped in a circuit
// breaker so a dead processor endpoint fails fast instead of tying up
// webhook handlers.
type HTTPClient struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Payment]
	logger  *zap.Logger
}

// NewHTTPClient creates a processor API client. httpClient may be nil.
func NewHTTPClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*Payment](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// An unknown payment id is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		timeout: timeout,
		client:  httpClient,
		breaker: breaker,
		logger:  logger,
	}
}

// GetPayment fetches a payment by id.
func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	payment, err := c.breaker.Execute(func() (*Payment, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return nil, err
	}
	return payment, nil
}

func (c *HTTPClient) fetch(ctx context.Context, id string) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	var wire paymentWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrFetch, err)
	}

	return wire.toPayment(), nil
}
