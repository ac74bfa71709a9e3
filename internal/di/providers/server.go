package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pbaille/divino/internal/api"
	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/config"
	"github.com/pbaille/divino/internal/logger"
	"github.com/pbaille/divino/internal/ratelimit"
	"github.com/pbaille/divino/internal/sommelier"
	"github.com/pbaille/divino/internal/validation"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideSessionRegistry provides the registry of live navigation sessions.
func ProvideSessionRegistry(i do.Injector) (*api.Registry, error) {
	gateway := do.MustInvoke[*sommelier.Sommelier](i)
	c := do.MustInvoke[*cellar.Cellar](i)
	r := do.MustInvoke[*cellar.Recent](i)
	log := do.MustInvoke[*logger.Logger](i)

	return api.NewRegistry(gateway, c, r, log.Logger), nil
}

// ProvideAPIServer provides the routed HTTP handler.
func ProvideAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	registry := do.MustInvoke[*api.Registry](i)
	c := do.MustInvoke[*cellar.Cellar](i)
	r := do.MustInvoke[*cellar.Recent](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	limiter := ratelimit.New(cfg.Server.RPS, cfg.Server.Burst)

	srv := api.NewServer(registry, c, r, v, limiter, cfg.Server.AllowedOrigins, log.Logger)
	srv.StartEviction(cfg.Server.SessionIdleTimeout)
	return srv, nil
}

// ProvideHTTPServer provides the HTTP server. It is not started here;
// the serve command owns the listener.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	handler := do.MustInvoke[*api.Server](i)

	return &HTTPServerHandle{Server: api.NewHTTPServer(cfg.Server, handler)}, nil
}
