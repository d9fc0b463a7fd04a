package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestMemoryCounterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCounter(WithClock(clock.now))
	defer mc.Close()
	ctx := context.Background()

	n, ttl, err := mc.Hit(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, ttl)

	clock.t = clock.t.Add(20 * time.Second)
	n, ttl, _ = mc.Hit(ctx, "a", time.Minute)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 40*time.Second, ttl)

	n, _, _ = mc.Hit(ctx, "b", time.Minute)
	assert.Equal(t, int64(1), n, "keys are independent")

	clock.t = clock.t.Add(time.Minute)
	n, ttl, _ = mc.Hit(ctx, "a", time.Minute)
	assert.Equal(t, int64(1), n, "window restarts after expiry")
	assert.Equal(t, time.Minute, ttl)
}

func TestMemoryCounterEvictsAtCapacity(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mc := NewMemoryCounter(WithClock(clock.now), WithMemoryMaxKeys(2))
	defer mc.Close()
	ctx := context.Background()

	_, _, _ = mc.Hit(ctx, "a", time.Second)
	_, _, _ = mc.Hit(ctx, "b", time.Minute)
	_, _, _ = mc.Hit(ctx, "c", time.Minute)

	mc.mu.Lock()
	defer mc.mu.Unlock()
	assert.Len(t, mc.data, 2)
	assert.NotContains(t, mc.data, "a")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:predict:1.2.3.4", Key("ratelimit", "predict", "1.2.3.4"))
}
