// Package redis provides the Redis storage client.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/minerva/pkg/component/storage"
	options "github.com/kart-io/minerva/pkg/options/redis"
	goredis "github.com/redis/go-redis/v9"
)

// Client wraps the go-redis client with storage.Client interface implementation.
//
// Example usage:
//
//	opts := options.NewOptions()
//	opts.Host = "localhost"
//	opts.Port = 6379
//
//	client, err := New(opts)
//	if err != nil {
//	    log.Fatalf("failed to create Redis client: %v", err)
//	}
//	defer client.Close()
//
//	rdb := client.Client()
//	err = rdb.Set(ctx, "key", "value", 0).Err()
type Client struct {
	client *goredis.Client
	opts   *options.Options
}

// Compile-time check that Client implements storage.Client.
var _ storage.Client = (*Client)(nil)

// New creates a new Redis client from the provided options.
func New(opts *options.Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new Redis client with context support.
// The context covers the initial ping verification.
//
// Returns an error if:
// - Options are nil
// - Options validation fails
// - Initial ping fails
func NewWithContext(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{
		client: rdb,
		opts:   opts,
	}, nil
}

// Name returns the storage type identifier.
// Implements storage.Client interface.
func (c *Client) Name() string {
	return "redis"
}

// Ping checks if the connection to Redis is alive.
// Implements storage.Client interface.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection gracefully.
// This method is idempotent and safe to call multiple times.
// Implements storage.Client interface.
func (c *Client) Close() error {
	return c.client.Close()
}

// Health returns a HealthChecker function for Redis health monitoring.
// Implements storage.Client interface.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// Client returns the underlying go-redis client instance.
func (c *Client) Client() *goredis.Client {
	return c.client
}

// Options returns the Redis options used by this client.
func (c *Client) Options() *options.Options {
	return c.opts
}

// Pipeline returns a Redis pipeline for batch operations.
func (c *Client) Pipeline() goredis.Pipeliner {
	return c.client.Pipeline()
}
