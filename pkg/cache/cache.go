package cache

import (
	"context"
	"strings"
	"time"
)

// Counter is a fixed-window counter store.
type Counter interface {
	// Hit increments key and starts its window on the first hit.
	// It returns the count within the current window and the time left in it.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	Close() error
}

// Key joins parts with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
