package cache

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count    int64
	expireAt time.Time
}

// MemoryCounter implements Counter in process. Windows are per replica.
type MemoryCounter struct {
	mu      sync.Mutex
	data    map[string]*window
	maxKeys int
	now     func() time.Time
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// NewMemoryCounter creates an in-memory counter store with a background sweeper.
func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	cfg := &MemoryConfig{
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
		Now:             time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCounter{
		data:    make(map[string]*window),
		maxKeys: cfg.MaxKeys,
		now:     cfg.Now,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}

	go mc.sweep()
	return mc
}

func (mc *MemoryCounter) Hit(_ context.Context, key string, win time.Duration) (int64, time.Duration, error) {
	now := mc.now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	w, ok := mc.data[key]
	if !ok || !now.Before(w.expireAt) {
		if !ok && len(mc.data) >= mc.maxKeys {
			mc.evictLocked(now)
		}
		w = &window{expireAt: now.Add(win)}
		mc.data[key] = w
	}
	w.count++
	return w.count, w.expireAt.Sub(now), nil
}

// evictLocked drops expired windows, or the one closest to expiry if none are.
func (mc *MemoryCounter) evictLocked(now time.Time) {
	var (
		soonest string
		at      time.Time
	)
	removed := false
	for k, w := range mc.data {
		if !now.Before(w.expireAt) {
			delete(mc.data, k)
			removed = true
			continue
		}
		if soonest == "" || w.expireAt.Before(at) {
			soonest, at = k, w.expireAt
		}
	}
	if !removed && soonest != "" {
		delete(mc.data, soonest)
	}
}

func (mc *MemoryCounter) sweep() {
	for {
		select {
		case <-mc.ticker.C:
			now := mc.now()
			mc.mu.Lock()
			for k, w := range mc.data {
				if !now.Before(w.expireAt) {
					delete(mc.data, k)
				}
			}
			mc.mu.Unlock()
		case <-mc.done:
			return
		}
	}
}

// Close stops the sweeper.
func (mc *MemoryCounter) Close() error {
	mc.once.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}
