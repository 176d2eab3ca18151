package webhook

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAttemptStore(t *testing.T) {
	ctx := context.Background()

	t.Run("begin reserves exactly once", func(t *testing.T) {
		s := NewMemoryAttemptStore()
		ok, err := s.Begin(ctx, "1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Begin(ctx, "1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("commit marks forwarded", func(t *testing.T) {
		s := NewMemoryAttemptStore()
		_, _ = s.Begin(ctx, "1")
		require.NoError(t, s.Commit(ctx, "1"))

		fwd, err := s.Forwarded(ctx, "1")
		require.NoError(t, err)
		assert.True(t, fwd)

		ok, _ := s.Begin(ctx, "1")
		assert.False(t, ok, "committed id must stay reserved")
	})

	t.Run("release reopens a failed attempt", func(t *testing.T) {
		s := NewMemoryAttemptStore()
		_, _ = s.Begin(ctx, "1")
		require.NoError(t, s.Release(ctx, "1"))

		ok, _ := s.Begin(ctx, "1")
		assert.True(t, ok)
	})

	t.Run("release does not undo a commit", func(t *testing.T) {
		s := NewMemoryAttemptStore()
		_, _ = s.Begin(ctx, "1")
		_ = s.Commit(ctx, "1")
		_ = s.Release(ctx, "1")

		fwd, _ := s.Forwarded(ctx, "1")
		assert.True(t, fwd)
	})

	t.Run("in-flight is not forwarded", func(t *testing.T) {
		s := NewMemoryAttemptStore()
		_, _ = s.Begin(ctx, "1")
		fwd, _ := s.Forwarded(ctx, "1")
		assert.False(t, fwd)
	})

	t.Run("concurrent begins admit one winner", func(t *testing.T) {
		s := NewMemoryAttemptStore()
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Begin(ctx, "race")
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}
