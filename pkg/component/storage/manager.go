package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthStatus describes the result of a single health check.
type HealthStatus struct {
	// Healthy reports whether the backend responded successfully.
	Healthy bool
	// Latency is the observed round-trip time of the check.
	Latency time.Duration
	// Error holds the failure cause when Healthy is false.
	Error error
}

// Manager manages multiple storage clients and provides centralized
// health checking, lifecycle management, and client registry functionality.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates a new storage manager instance.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]Client),
	}
}

// Register registers a storage client with the given name.
// The name should be unique and descriptive (e.g. "mongodb", "redis-cache").
//
// Returns an error if a client with the same name is already registered.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("client name cannot be empty")
	}
	if client == nil {
		return fmt.Errorf("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return fmt.Errorf("client %q is already registered", name)
	}

	m.clients[name] = client
	return nil
}

// MustRegister registers a storage client and panics if registration fails.
// This is useful for initialization code where failure should be fatal.
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(fmt.Sprintf("failed to register storage client: %v", err))
	}
}

// Get retrieves a storage client by name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, fmt.Errorf("client %q not found", name)
	}
	return client, nil
}

// Names returns the names of all registered clients.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

// HealthCheck performs a health check on a single client.
func (m *Manager) HealthCheck(ctx context.Context, name string) HealthStatus {
	client, err := m.Get(name)
	if err != nil {
		return HealthStatus{Healthy: false, Error: err}
	}

	start := time.Now()
	err = client.Ping(ctx)
	return HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// HealthCheckAll performs health checks on all registered clients.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(names))
	for _, name := range names {
		statuses[name] = m.HealthCheck(ctx, name)
	}
	return statuses
}

// CloseAll closes all registered clients and clears the registry.
// The first error encountered is returned, but all clients are closed.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %q: %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}
