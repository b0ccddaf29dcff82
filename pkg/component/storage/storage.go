// Package storage provides a unified interface for storage backends in minerva.
//
// This package defines the core abstractions that all storage implementations must follow,
// enabling consistent behavior across different storage types (MongoDB, Milvus, Redis).
//
// Basic usage with a storage client:
//
//	client, err := mongodb.New(opts)
//	if err != nil {
//	    log.Fatalf("failed to connect: %v", err)
//	}
//	defer client.Close()
//
//	ctx := context.Background()
//	if err := client.Ping(ctx); err != nil {
//	    log.Fatalf("ping failed: %v", err)
//	}
//
// For applications using multiple storage backends, the Manager provides a
// registry with centralized health checking and lifecycle management:
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("mongodb", mongoClient)
//	mgr.MustRegister("redis-cache", redisClient)
//
//	statuses := mgr.HealthCheckAll(ctx)
//	defer mgr.CloseAll()
package storage

import "context"

// Client is the base interface implemented by all storage clients.
type Client interface {
	// Name returns the storage type identifier (e.g. "mongodb", "redis").
	Name() string

	// Ping performs a lightweight connectivity check.
	Ping(ctx context.Context) error

	// Close releases all resources held by the client.
	// Implementations must be idempotent.
	Close() error

	// Health returns a HealthChecker bound to this client.
	Health() HealthChecker
}

// HealthChecker is a function that performs a health check.
// A nil return value indicates the backend is healthy.
type HealthChecker func() error
