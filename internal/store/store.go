// Package store provides the durable key-value storage behind the cellar:
// a plain get/set/remove string store with sqlite, badger and in-memory
// backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pbaille/divino/internal/config"
)

// KV is a durable string store. Get reports ok=false for a missing key;
// a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open opens the backend selected by cfg, creating its directory if needed.
func Open(cfg config.StorageConfig) (KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendSQLite, config.BackendBadger:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.Path == "" {
		return nil, errors.New("storage path is required")
	}
	dir := cfg.Path
	if cfg.Backend == config.BackendSQLite {
		dir = filepath.Dir(cfg.Path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	if cfg.Backend == config.BackendBadger {
		return NewBadger(cfg.Path)
	}
	return NewSQLite(cfg.Path)
}

// Memory is a KV kept in process memory. Nothing survives a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
