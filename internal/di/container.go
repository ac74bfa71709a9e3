// Package di wires DiVino's components with samber/do.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/config"
	"github.com/pbaille/divino/internal/di/providers"
	"github.com/pbaille/divino/internal/logger"
)

// NewContainer creates the container for an already loaded configuration.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCellar)
	do.Provide(injector, providers.ProvideRecent)

	// Model gateway
	do.Provide(injector, providers.ProvideSommelier)

	// Server
	do.Provide(injector, providers.ProvideSessionRegistry)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap opens storage and loads the persisted state. The model gateway
// and the HTTP server stay lazy: local commands such as listing the cellar
// work without an API key.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*cellar.Cellar](injector); err != nil {
		return err
	}
	_, err := do.Invoke[*cellar.Recent](injector)
	return err
}
