package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/config"
	"github.com/pbaille/divino/internal/logger"
	"github.com/pbaille/divino/internal/store"
)

// StoreHandle wraps the key-value store with shutdown capability.
type StoreHandle struct {
	store.KV
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured storage backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	kv, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	log.Debug("Store opened", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)

	return &StoreHandle{KV: kv}, nil
}

// ProvideCellar loads the favorites collection.
func ProvideCellar(i do.Injector) (*cellar.Cellar, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	c := cellar.Load(ctx, storeHandle.KV, log.Logger)
	log.Debug("Cellar loaded", "wines", c.Len())
	return c, nil
}

// ProvideRecent loads the recent text searches.
func ProvideRecent(i do.Injector) (*cellar.Recent, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	return cellar.LoadRecent(ctx, storeHandle.KV, log.Logger), nil
}
