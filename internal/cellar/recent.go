package cellar

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/pbaille/divino/internal/store"
)

const (
	// RecentKey is the storage key holding the recent searches.
	RecentKey = "divino_recent_searches"
	// MaxRecent bounds the recent-search list.
	MaxRecent = 5
)

// AddRecent puts query at the front of list, dropping any case-insensitive
// duplicate and trimming to MaxRecent. Blank queries leave list unchanged.
// The input slice is never modified.
func AddRecent(list []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return slices.Clone(list)
	}
	out := make([]string, 0, MaxRecent)
	out = append(out, query)
	for _, q := range list {
		if len(out) == MaxRecent {
			break
		}
		if !strings.EqualFold(q, query) {
			out = append(out, q)
		}
	}
	return out
}

// Recent is the persisted list of recent text searches, most recent first.
type Recent struct {
	mu      sync.Mutex
	kv      store.KV
	logger  *slog.Logger
	queries []string
}

// LoadRecent reads the recent searches. Missing or corrupt data yields an empty list.
func LoadRecent(ctx context.Context, kv store.KV, logger *slog.Logger) *Recent {
	r := &Recent{kv: kv, logger: logger}

	queries, err := readJSON[[]string](ctx, kv, RecentKey)
	if err != nil {
		logger.Warn("recent searches unreadable, starting empty", "error", err)
		return r
	}
	// Re-apply the bounds in case the stored list was written by hand.
	for i := len(queries) - 1; i >= 0; i-- {
		r.queries = AddRecent(r.queries, queries[i])
	}
	return r
}

// List returns a copy of the recent searches.
func (r *Recent) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.queries)
}

// Push records a search and persists the list.
func (r *Recent) Push(ctx context.Context, query string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := AddRecent(r.queries, query)
	if err := writeJSON(ctx, r.kv, RecentKey, next); err != nil {
		return slices.Clone(r.queries), err
	}
	r.queries = next
	return slices.Clone(next), nil
}
