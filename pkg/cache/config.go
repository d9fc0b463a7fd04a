package cache

import "time"

// RedisOption configures Redis counters.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	Prefix       string
	// ConnectTimeout bounds the startup ping, retries included.
	ConnectTimeout time.Duration
}

// WithRedisAddr sets the Redis address.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = addr
	}
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets the Redis database index.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// WithRedisConnectTimeout bounds the startup ping retries.
func WithRedisConnectTimeout(d time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.ConnectTimeout = d
	}
}

// MemoryOption configures Memory counters.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory counter configuration.
type MemoryConfig struct {
	MaxKeys         int
	CleanupInterval time.Duration
	Now             func() time.Time
}

// WithMemoryMaxKeys caps the number of live windows. New keys past the cap evict expired ones first,
// then the window closest to expiry.
func WithMemoryMaxKeys(n int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxKeys = n
	}
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryConfig) {
		c.Now = now
	}
}
