package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PreferenceItem is a display line on the hosted checkout page.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// BackURLs are the browser return URLs after checkout.
type BackURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

// Payer identifies the buyer on the checkout page. Only sent in prod mode;
// the processor's sandbox rejects preferences where payer and collector
// overlap.
type Payer struct {
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

// Identification is a tax document reference.
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// PreferenceRequest is the hosted-checkout preference payload.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return"`
	NotificationURL   string           `json:"notification_url"`
	ExternalReference string           `json:"external_reference"`
	Metadata          *OrderIntent     `json:"metadata"`
	Payer             *Payer           `json:"payer,omitempty"`
}

// Preference is the created hosted-checkout session.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// RedirectURL returns the checkout URL, preferring the live one.
func (p *Preference) RedirectURL() string {
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return p.SandboxInitPoint
}

// PreferenceClient creates hosted-checkout preferences.
type PreferenceClient interface {
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)
}

// HTTPPreferenceClient is the REST implementation of PreferenceClient.
type HTTPPreferenceClient struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPPreferenceClient creates a preference client. httpClient may be nil.
func NewHTTPPreferenceClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *HTTPPreferenceClient {
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
	return &HTTPPreferenceClient{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		timeout: timeout,
		client:  httpClient,
		logger:  logger,
	}
}

// CreatePreference posts a preference to the processor.
func (c *HTTPPreferenceClient) CreatePreference(ctx context.Context, prefReq *PreferenceRequest) (*Preference, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(prefReq)
	if err != nil {
		return nil, fmt.Errorf("marshal preference: %w", err)
	}

	url := c.baseURL + "/checkout/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create preference: status %d", resp.StatusCode)
	}

	var pref Preference
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return nil, fmt.Errorf("decode preference: %w", err)
	}
	if pref.RedirectURL() == "" {
		return nil, fmt.Errorf("create preference: no init_point in response")
	}
	return &pref, nil
}
