package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file loads as nil record", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))

		rec, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.json")
		store := NewFileStore(path)

		exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		err := store.Save(ctx, &Record{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresAt:    &exp,
			StoreID:      "store-1",
		})
		require.NoError(t, err)

		rec, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "at", rec.AccessToken)
		assert.Equal(t, "rt", rec.RefreshToken)
		require.NotNil(t, rec.ExpiresAt)
		assert.True(t, exp.Equal(*rec.ExpiresAt))
		assert.Equal(t, "store-1", rec.StoreID)
	})

	t.Run("save overwrites previous record", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.json")
		store := NewFileStore(path)

		require.NoError(t, store.Save(ctx, &Record{AccessToken: "first"}))
		require.NoError(t, store.Save(ctx, &Record{AccessToken: "second"}))

		rec, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", rec.AccessToken)
	})

	t.Run("corrupt file is unreadable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tokens.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		store := NewFileStore(path)

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, ErrStoreUnreadable)
	})
}

func TestRecordExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no expiry never stale", func(t *testing.T) {
		rec := &Record{AccessToken: "a"}
		assert.False(t, rec.Expired(now))
	})

	t.Run("future expiry not stale", func(t *testing.T) {
		rec := &Record{AccessToken: "a", ExpiresAt: timePtr(now.Add(time.Second))}
		assert.False(t, rec.Expired(now))
	})

	t.Run("past expiry stale", func(t *testing.T) {
		rec := &Record{AccessToken: "a", ExpiresAt: timePtr(now.Add(-time.Second))}
		assert.True(t, rec.Expired(now))
	})

	t.Run("exact expiry instant is stale", func(t *testing.T) {
		rec := &Record{AccessToken: "a", ExpiresAt: timePtr(now)}
		assert.True(t, rec.Expired(now))
	})
}
