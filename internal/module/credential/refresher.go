package credential

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new credential record.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Record, error)
}

// OAuthConfig holds the OAuth client settings for the storefront platform.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	UserAgent    string
	Timeout      time.Duration
}

// OAuthRefresher performs refresh-token and authorization-code exchanges
// against the platform token endpoint.
type OAuthRefresher struct {
	cfg    *oauth2.Config
	client *http.Client
	ua     string
	tmo    time.Duration
}

// userAgentTransport stamps the platform-required User-Agent header.
type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ua != "" {
		req.Header.Set("User-Agent", t.ua)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewOAuthRefresher creates a refresher. client may be nil, in which case a
// default client is used.
func NewOAuthRefresher(cfg OAuthConfig, client *http.Client) *OAuthRefresher {
	if client == nil {
		client = &http.Client{}
	}
	tmo := cfg.Timeout
	if tmo <= 0 {
		tmo = 10 * time.Second
	}

	return &OAuthRefresher{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{
			Transport: &userAgentTransport{base: client.Transport, ua: cfg.UserAgent},
			Timeout:   client.Timeout,
		},
		ua:  cfg.UserAgent,
		tmo: tmo,
	}
}

// Refresh performs a refresh_token grant and returns the new record.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.tmo)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)

	src := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	return recordFromToken(tok, refreshToken), nil
}

// Exchange performs an authorization_code grant. Used by the install
// callback to mint the first credential record.
func (r *OAuthRefresher) Exchange(ctx context.Context, code, redirectURI string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.tmo)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)

	opts := []oauth2.AuthCodeOption{}
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	tok, err := r.cfg.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	return recordFromToken(tok, ""), nil
}

// recordFromToken maps an oauth2 token to a Record. The endpoint may omit
// the rotated refresh token; the previous one is kept in that case.
func recordFromToken(tok *oauth2.Token, prevRefresh string) *Record {
	rec := &Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if rec.RefreshToken == "" {
		rec.RefreshToken = prevRefresh
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		rec.ExpiresAt = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		rec.Scope = scope
	}
	return rec
}
