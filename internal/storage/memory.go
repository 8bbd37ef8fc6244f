package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Backend.  It backs tests and the "memory" driver.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory { return &Memory{m: make(map[string]string)} }

func (b *Memory) Put(_ context.Context, key, value string) error {
	b.mu.Lock()
	b.m[key] = value
	b.mu.Unlock()
	return nil
}

func (b *Memory) Fetch(_ context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (b *Memory) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.m, key)
	b.mu.Unlock()
	return nil
}

func (b *Memory) DeleteMany(_ context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.m, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (b *Memory) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}
