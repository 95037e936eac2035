package store

import (
	"context"
	"sync"
)

// Backend is the key/value persistence engine behind the credential store.
// Implementations must return ErrNotFound from Get for absent keys and treat
// Remove of an absent key as success. Every other error is reported to
// callers as ErrStorageUnavailable.
type Backend interface {
	// Ready blocks until the backend is usable or ctx is done.
	Ready(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryBackend keeps values in process memory. Nothing survives a restart;
// it is meant for tests and throwaway sessions.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Ready implements Backend.
func (b *MemoryBackend) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Get implements Backend.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// Remove implements Backend.
func (b *MemoryBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

// size returns the number of stored keys.
func (b *MemoryBackend) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}
