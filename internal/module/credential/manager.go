package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/storebridge/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Manager owns the credential record and decides when it must be refreshed.
// Staleness is evaluated lazily on each Token call; there is no background
// poller.
type Manager struct {
	store         Store
	refresher     Refresher
	fallbackToken string
	logger        *zap.Logger
	metrics       *metrics.Metrics
	now           func() time.Time

	// mu serializes the stale-check-and-refresh critical section so that
	// N concurrent callers on a stale record issue exactly one refresh.
	mu sync.Mutex
}

// ManagerConfig holds manager dependencies.
type ManagerConfig struct {
	Store         Store
	Refresher     Refresher
	FallbackToken string
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// NewManager creates a credential manager.
func NewManager(cfg ManagerConfig) *Manager {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:         cfg.Store,
		refresher:     cfg.Refresher,
		fallbackToken: cfg.FallbackToken,
		logger:        log,
		metrics:       cfg.Metrics,
		now:           now,
	}
}

// Token returns a currently valid access token.
//
// An unreadable store is treated as "no credential". With no credential the
// configured fallback token is returned, or ErrAuthUnavailable without one.
// A stale record without a refresh token is returned as-is with a warning;
// that keeps short grace windows working instead of hard-failing every
// outbound call. A stale record with a refresh token triggers exactly one
// in-flight refresh; concurrent callers wait for and share its result.
func (m *Manager) Token(ctx context.Context) (string, error) {
	rec, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil || rec.AccessToken == "" {
		if m.fallbackToken != "" {
			return m.fallbackToken, nil
		}
		return "", ErrAuthUnavailable
	}

	if !rec.Expired(m.now()) {
		return rec.AccessToken, nil
	}

	if rec.RefreshToken == "" {
		m.logger.Warn("credential expired with no refresh token, using stored token anyway",
			zap.Timep("expired_at", rec.ExpiresAt))
		return rec.AccessToken, nil
	}

	return m.refresh(ctx)
}

// load reads the record, demoting store failures to "no credential".
func (m *Manager) load(ctx context.Context) (*Record, error) {
	rec, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreUnreadable) {
			m.logger.Warn("token store unreadable, treating as missing credential", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return rec, nil
}

// refresh serializes concurrent callers onto a single refresh call. The
// record is re-read under the lock: a caller that waited on the mutex finds
// the record already refreshed and returns it without another network call.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	if rec == nil || rec.AccessToken == "" {
		if m.fallbackToken != "" {
			return m.fallbackToken, nil
		}
		return "", ErrAuthUnavailable
	}
	if !rec.Expired(m.now()) {
		// Another caller already refreshed while we waited.
		return rec.AccessToken, nil
	}
	if rec.RefreshToken == "" {
		return rec.AccessToken, nil
	}

	m.logger.Info("credential expired, refreshing")
	fresh, err := m.refresher.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		m.recordRefresh("failure")
		m.logger.Error("credential refresh failed", zap.Error(err))
		if errors.Is(err, ErrRefreshFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if fresh.StoreID == "" {
		fresh.StoreID = rec.StoreID
	}

	if err := m.store.Save(ctx, fresh); err != nil {
		m.recordRefresh("failure")
		return "", fmt.Errorf("%w: persist refreshed credential: %v", ErrRefreshFailed, err)
	}

	m.recordRefresh("success")
	m.logger.Info("credential refreshed", zap.Timep("expires_at", fresh.ExpiresAt))
	return fresh.AccessToken, nil
}

// Persist stores a freshly exchanged record, e.g. from the install callback.
func (m *Manager) Persist(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Save(ctx, rec)
}

func (m *Manager) recordRefresh(result string) {
	if m.metrics != nil {
		m.metrics.TokenRefreshTotal.WithLabelValues(result).Inc()
	}
}
