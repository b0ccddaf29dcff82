// Package mongodb provides the MongoDB storage client.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	driveropts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/minerva/pkg/component/storage"
	mgopts "github.com/kart-io/minerva/pkg/options/mongodb"
)

// Client wraps mongo.Client with storage.Client interface implementation.
// It provides a unified MongoDB client that implements the standard storage
// interface while exposing the underlying MongoDB driver for advanced usage.
//
// Example usage:
//
//	opts := mgopts.NewOptions()
//	opts.Host = "localhost"
//	opts.Database = "minerva"
//
//	client, err := New(opts)
//	if err != nil {
//	    log.Fatalf("failed to create MongoDB client: %v", err)
//	}
//	defer client.Close()
//
//	collection := client.Collection("sections")
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	opts     *mgopts.Options
}

// Compile-time check that Client implements storage.Client.
var _ storage.Client = (*Client)(nil)

// New creates a new MongoDB client from the provided options.
func New(opts *mgopts.Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new MongoDB client with context support.
// The context covers connection establishment and the initial ping.
//
// Returns an error if:
// - Options validation fails
// - Connection to MongoDB server fails
// - Initial ping fails
func NewWithContext(ctx context.Context, opts *mgopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("mongodb options cannot be nil")
	}

	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid mongodb options: %v", errs)
	}

	uri := mgopts.BuildURI(opts)

	clientOpts := driveropts.Client().ApplyURI(uri)

	// Apply connection pool settings
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.MaxIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(opts.MaxIdleTime)
	}

	// Apply timeout settings
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(opts.SocketTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}

	if opts.Direct {
		clientOpts.SetDirect(opts.Direct)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	var db *mongo.Database
	if opts.Database != "" {
		db = client.Database(opts.Database)
	}

	return &Client{
		client:   client,
		database: db,
		opts:     opts,
	}, nil
}

// Name returns the storage type identifier.
// Implements storage.Client interface.
func (c *Client) Name() string {
	return "mongodb"
}

// Ping checks if the connection to MongoDB is alive.
// Implements storage.Client interface.
func (c *Client) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client is nil")
	}
	return c.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection gracefully.
// This method is idempotent and safe to call multiple times.
// Implements storage.Client interface.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Health returns a HealthChecker function for MongoDB health monitoring.
// Implements storage.Client interface.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// Database returns the default database.
// If no database was specified in options, this returns nil.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Collection returns a collection from the default database.
// If no default database was set, this will panic.
func (c *Client) Collection(name string) *mongo.Collection {
	if c.database == nil {
		panic("no default database set")
	}
	return c.database.Collection(name)
}

// Raw returns the underlying mongo.Client.
// This provides access to the full MongoDB driver functionality
// for operations not exposed by the wrapper.
func (c *Client) Raw() *mongo.Client {
	return c.client
}
