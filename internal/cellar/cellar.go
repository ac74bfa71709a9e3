// Package cellar keeps the user's favorite wines and recent searches in
// durable storage. Both are small and rewritten wholesale after every change.
package cellar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pbaille/divino/internal/domain"
	domainerrors "github.com/pbaille/divino/internal/errors"
	"github.com/pbaille/divino/internal/store"
)

// CellarKey is the storage key holding the serialized cellar.
const CellarKey = "divino_cellar"

// Cellar is the ordered, deduplicated favorites collection. Wines are unique
// by case-insensitive (name, winery). Insertion order is preserved.
type Cellar struct {
	mu     sync.Mutex
	kv     store.KV
	logger *slog.Logger
	wines  []domain.Wine
}

// Load reads the cellar from kv. A missing or corrupt value yields an empty
// cellar; corruption is logged, never returned.
func Load(ctx context.Context, kv store.KV, logger *slog.Logger) *Cellar {
	c := &Cellar{kv: kv, logger: logger}

	wines, err := readJSON[[]domain.Wine](ctx, kv, CellarKey)
	if err != nil {
		logger.Warn("cellar unreadable, starting empty", "error", err)
		return c
	}
	c.wines = dedupe(wines)
	logger.Debug("cellar loaded", "count", len(c.wines))
	return c
}

// Wines returns a copy of the collection in insertion order.
func (c *Cellar) Wines() []domain.Wine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.wines)
}

// Newest returns the collection with the most recent additions first.
func (c *Cellar) Newest() []domain.Wine {
	wines := c.Wines()
	slices.Reverse(wines)
	return wines
}

// Len returns the number of wines in the cellar.
func (c *Cellar) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.wines)
}

// Contains reports whether an equivalent wine is already saved.
func (c *Cellar) Contains(w domain.Wine) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOf(w) >= 0
}

// Find returns the saved wine with the given id.
func (c *Cellar) Find(id string) (domain.Wine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.wines {
		if w.ID == id {
			return w, true
		}
	}
	return domain.Wine{}, false
}

// Toggle adds w when absent and removes it when present, persists the result
// and returns the new collection. When persisting fails the in-memory
// collection is left unchanged.
func (c *Cellar) Toggle(ctx context.Context, w domain.Wine) ([]domain.Wine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next []domain.Wine
	if i := c.indexOf(w); i >= 0 {
		next = slices.Delete(slices.Clone(c.wines), i, i+1)
	} else {
		next = append(slices.Clone(c.wines), w)
	}

	if err := writeJSON(ctx, c.kv, CellarKey, next); err != nil {
		return slices.Clone(c.wines), err
	}
	c.wines = next
	c.logger.Info("cellar updated", "wine", w.Name, "winery", w.Winery, "count", len(next))
	return slices.Clone(next), nil
}

// Save overwrites durable storage with the current collection.
func (c *Cellar) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSON(ctx, c.kv, CellarKey, c.wines)
}

func (c *Cellar) indexOf(w domain.Wine) int {
	return slices.IndexFunc(c.wines, func(saved domain.Wine) bool {
		return domain.SameWine(saved, w)
	})
}

func dedupe(wines []domain.Wine) []domain.Wine {
	out := make([]domain.Wine, 0, len(wines))
	seen := make(map[string]bool, len(wines))
	for _, w := range wines {
		if seen[w.Key()] {
			continue
		}
		seen[w.Key()] = true
		out = append(out, w)
	}
	return out
}

// readJSON decodes the value at key. A missing key decodes to the zero value.
func readJSON[T any](ctx context.Context, kv store.KV, key string) (T, error) {
	var v T
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return v, domainerrors.StorageReadFailed(key, err)
	}
	if !ok || raw == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero, domainerrors.StorageReadFailed(key, err)
	}
	return v, nil
}

func writeJSON(ctx context.Context, kv store.KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
