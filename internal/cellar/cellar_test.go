package cellar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/logger"
	"github.com/pbaille/divino/internal/store"
)

var (
	barolo  = domain.Wine{ID: "wine-1", Name: "Barolo", Winery: "Vietti", Rating: 4.4}
	chianti = domain.Wine{ID: "wine-2", Name: "Chianti Classico", Winery: "Fontodi", Rating: 4.2}
)

// failingKV fails every write.
type failingKV struct{ *store.Memory }

func (failingKV) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestLoad_MissingIsEmpty(t *testing.T) {
	c := Load(context.Background(), store.NewMemory(), logger.Discard().Logger)
	assert.Empty(t, c.Wines())
}

func TestLoad_CorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, CellarKey, "{not json"))

	c := Load(ctx, kv, logger.Discard().Logger)
	assert.Empty(t, c.Wines())

	// The next mutation overwrites the corrupt value.
	_, err := c.Toggle(ctx, barolo)
	require.NoError(t, err)
	assert.Len(t, Load(ctx, kv, logger.Discard().Logger).Wines(), 1)
}

func TestToggle_AddRemove(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	c := Load(ctx, kv, logger.Discard().Logger)

	wines, err := c.Toggle(ctx, barolo)
	require.NoError(t, err)
	assert.Equal(t, []domain.Wine{barolo}, wines)
	assert.True(t, c.Contains(barolo))

	// Same wine, different id and casing: still the same cellar entry.
	lookalike := domain.Wine{ID: "wine-99", Name: "BAROLO", Winery: "vietti"}
	assert.True(t, c.Contains(lookalike))

	wines, err = c.Toggle(ctx, lookalike)
	require.NoError(t, err)
	assert.Empty(t, wines)
	assert.False(t, c.Contains(barolo))
}

func TestToggle_TwiceRestoresMembership(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, store.NewMemory(), logger.Discard().Logger)
	_, err := c.Toggle(ctx, barolo)
	require.NoError(t, err)
	before := c.Wines()

	_, err = c.Toggle(ctx, chianti)
	require.NoError(t, err)
	after, err := c.Toggle(ctx, chianti)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestToggle_WriteThrough(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	c := Load(ctx, kv, logger.Discard().Logger)

	_, err := c.Toggle(ctx, barolo)
	require.NoError(t, err)
	_, err = c.Toggle(ctx, chianti)
	require.NoError(t, err)

	reloaded := Load(ctx, kv, logger.Discard().Logger)
	assert.Equal(t, c.Wines(), reloaded.Wines())
	assert.Equal(t, []domain.Wine{chianti, barolo}, reloaded.Newest())
}

func TestToggle_FailedWriteKeepsMemory(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, failingKV{store.NewMemory()}, logger.Discard().Logger)

	wines, err := c.Toggle(ctx, barolo)
	require.Error(t, err)
	assert.Empty(t, wines)
	assert.Equal(t, 0, c.Len())
}

func TestSave_Idempotent(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	c := Load(ctx, kv, logger.Discard().Logger)
	_, err := c.Toggle(ctx, barolo)
	require.NoError(t, err)

	first, _, _ := kv.Get(ctx, CellarKey)
	require.NoError(t, Load(ctx, kv, logger.Discard().Logger).Save(ctx))
	second, _, _ := kv.Get(ctx, CellarKey)

	assert.Equal(t, first, second)
}

func TestLoad_DropsDuplicates(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, CellarKey, `[{"id":"a","name":"Barolo","winery":"Vietti"},{"id":"b","name":"barolo","winery":"VIETTI"}]`))

	c := Load(ctx, kv, logger.Discard().Logger)
	require.Equal(t, 1, c.Len())
	w, ok := c.Find("a")
	assert.True(t, ok)
	assert.Equal(t, "Barolo", w.Name)
	_, ok = c.Find("b")
	assert.False(t, ok)
}
