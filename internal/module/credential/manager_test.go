package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu      sync.Mutex
	rec     *Record
	loadErr error
	saves   int
}

func (s *memStore) Load(_ context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *memStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.rec = &cp
	s.saves++
	return nil
}

type fakeRefresher struct {
	calls  atomic.Int32
	result *Record
	err    error
	delay  time.Duration
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (*Record, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func TestManagerToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("fresh record returns token without refresh", func(t *testing.T) {
		ref := &fakeRefresher{}
		m := NewManager(ManagerConfig{
			Store: &memStore{rec: &Record{
				AccessToken: "tok-fresh",
				ExpiresAt:   timePtr(now.Add(time.Hour)),
			}},
			Refresher: ref,
			Now:       clock,
		})

		tok, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-fresh", tok)
		assert.Equal(t, int32(0), ref.calls.Load())
	})

	t.Run("record without expiry never refreshes", func(t *testing.T) {
		ref := &fakeRefresher{}
		m := NewManager(ManagerConfig{
			Store:     &memStore{rec: &Record{AccessToken: "tok-forever", RefreshToken: "rt"}},
			Refresher: ref,
			Now:       clock,
		})

		tok, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-forever", tok)
		assert.Equal(t, int32(0), ref.calls.Load())
	})

	t.Run("missing record without fallback fails", func(t *testing.T) {
		m := NewManager(ManagerConfig{Store: &memStore{}, Refresher: &fakeRefresher{}, Now: clock})

		_, err := m.Token(ctx)
		assert.ErrorIs(t, err, ErrAuthUnavailable)
	})

	t.Run("missing record with fallback returns fallback", func(t *testing.T) {
		m := NewManager(ManagerConfig{
			Store:         &memStore{},
			Refresher:     &fakeRefresher{},
			FallbackToken: "static-token",
			Now:           clock,
		})

		tok, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "static-token", tok)
	})

	t.Run("unreadable store falls back to static token", func(t *testing.T) {
		m := NewManager(ManagerConfig{
			Store:         &memStore{loadErr: ErrStoreUnreadable},
			Refresher:     &fakeRefresher{},
			FallbackToken: "static-token",
			Now:           clock,
		})

		tok, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "static-token", tok)
	})

	t.Run("stale without refresh token returns stale token", func(t *testing.T) {
		ref := &fakeRefresher{}
		m := NewManager(ManagerConfig{
			Store: &memStore{rec: &Record{
				AccessToken: "tok-stale",
				ExpiresAt:   timePtr(now.Add(-time.Minute)),
			}},
			Refresher: ref,
			Logger:    zap.NewNop(),
			Now:       clock,
		})

		tok, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-stale", tok)
		assert.Equal(t, int32(0), ref.calls.Load())
	})

	t.Run("stale with refresh token refreshes and persists", func(t *testing.T) {
		store := &memStore{rec: &Record{
			AccessToken:  "tok-old",
			RefreshToken: "rt-old",
			ExpiresAt:    timePtr(now.Add(-time.Minute)),
		}}
		ref := &fakeRefresher{result: &Record{
			AccessToken:  "tok-new",
			RefreshToken: "rt-new",
			ExpiresAt:    timePtr(now.Add(time.Hour)),
		}}
		m := NewManager(ManagerConfig{Store: store, Refresher: ref, Now: clock})

		tok, err := m.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-new", tok)
		assert.Equal(t, int32(1), ref.calls.Load())
		assert.Equal(t, 1, store.saves)
		assert.Equal(t, "rt-new", store.rec.RefreshToken)
	})

	t.Run("refresh failure surfaces RefreshFailed and keeps record", func(t *testing.T) {
		store := &memStore{rec: &Record{
			AccessToken:  "tok-old",
			RefreshToken: "rt-old",
			ExpiresAt:    timePtr(now.Add(-time.Minute)),
		}}
		ref := &fakeRefresher{err: errors.New("endpoint says no")}
		m := NewManager(ManagerConfig{Store: store, Refresher: ref, Now: clock})

		_, err := m.Token(ctx)
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.Equal(t, "tok-old", store.rec.AccessToken)
		assert.Equal(t, 0, store.saves)
	})

	t.Run("concurrent callers trigger exactly one refresh", func(t *testing.T) {
		store := &memStore{rec: &Record{
			AccessToken:  "tok-old",
			RefreshToken: "rt-old",
			ExpiresAt:    timePtr(now.Add(-time.Minute)),
		}}
		ref := &fakeRefresher{
			result: &Record{
				AccessToken:  "tok-new",
				RefreshToken: "rt-new",
				ExpiresAt:    timePtr(now.Add(time.Hour)),
			},
			delay: 20 * time.Millisecond,
		}
		m := NewManager(ManagerConfig{Store: store, Refresher: ref, Now: clock})

		const callers = 8
		tokens := make([]string, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tokens[i], errs[i] = m.Token(ctx)
			}(i)
		}
		wg.Wait()

		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, "tok-new", tokens[i])
		}
		assert.Equal(t, int32(1), ref.calls.Load())
		assert.Equal(t, 1, store.saves)
	})
}
