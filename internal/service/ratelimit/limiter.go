// Package ratelimit limits inbound requests per client with fixed windows kept in a shared counter store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"CryptoPredict/pkg/cache"
)

// Limiter allows up to limit hits per key in each window.
type Limiter struct {
	counter cache.Counter
	scope   string
	limit   int64
	window  time.Duration
}

// New builds a limiter. scope namespaces its keys so several limiters can share one store.
func New(counter cache.Counter, scope string, limit int, window time.Duration) (*Limiter, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter is required")
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	return &Limiter{counter: counter, scope: scope, limit: int64(limit), window: window}, nil
}

// Allow counts one hit for key. When the budget is spent, retryAfter is the time left in the window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	n, ttl, err := l.counter.Hit(ctx, cache.Key("ratelimit", l.scope, key), l.window)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit hit: %w", err)
	}
	if n > l.limit {
		if ttl <= 0 {
			ttl = l.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}
