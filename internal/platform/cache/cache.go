// Package cache connects to the Redis or Dragonfly instance that backs the
// shared embedding cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout   = 5 * time.Second
	ioTimeout     = 3 * time.Second
	healthTimeout = 2 * time.Second
)

// Cache owns one Redis client. Client is exported so stores can issue
// commands directly.
type Cache struct {
	Client *redis.Client
	addr   string
	db     int
}

// ParseURL validates a redis:// or rediss:// connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects and pings the server. The URL may carry credentials and a
// database number; neither is ever logged.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = ioTimeout
	opts.WriteTimeout = ioTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging cache at %s: %w", opts.Addr, err)
	}
	return &Cache{Client: client, addr: opts.Addr, db: opts.DB}, nil
}

// String identifies the server without credentials.
func (c *Cache) String() string {
	return fmt.Sprintf("redis://%s/%d", c.addr, c.db)
}

// Close shuts down the client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck pings the server, giving up after a short timeout even when
// ctx has none.
func (c *Cache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache %s: %w", c, err)
	}
	return nil
}
