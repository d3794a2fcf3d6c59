package session

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Lifecycle(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := NewContext(func() time.Time { return clock })

	_, ok := ctx.Current()
	assert.False(t, ok)
	assert.Empty(t, ctx.ID())
	assert.Nil(t, ctx.LogAttrs())

	s, err := ctx.Start("drill", "range", 60)
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)
	assert.Equal(t, clock, s.StartTime)
	assert.Equal(t, s.ID, ctx.ID())

	_, err = ctx.Start("again", "range", 60)
	assert.ErrorIs(t, err, ErrActive)

	attrs := ctx.LogAttrs()
	require.Len(t, attrs, 2)
	assert.True(t, attrs[0].Equal(slog.String("session", s.ID)))

	clock = clock.Add(time.Minute)
	ended, ok := ctx.End()
	require.True(t, ok)
	assert.Equal(t, s.ID, ended.ID)
	assert.Equal(t, time.Minute, ended.EndTime.Sub(ended.StartTime))

	_, ok = ctx.End()
	assert.False(t, ok)
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext(nil)
	_, err := ctx.Start("drill", "range", 60)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = ctx.ID()
				_ = ctx.LogAttrs()
			}
		}()
	}
	ctx.End()
	wg.Wait()
}
