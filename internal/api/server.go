// Package api exposes DiVino navigation sessions over a JSON HTTP API for
// the single-page front end.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/config"
	domainerrors "github.com/pbaille/divino/internal/errors"
	"github.com/pbaille/divino/internal/ratelimit"
	"github.com/pbaille/divino/internal/validation"
)

const (
	maxBodyBytes     = 1 << 20
	maxUploadBytes   = 10 << 20
	shutdownGrace    = 10 * time.Second
	evictionInterval = time.Minute
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions  *Registry
	cellar    *cellar.Cellar
	recent    *cellar.Recent
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	origins   []string
	router    *chi.Mux
	logger    *slog.Logger

	stopEviction context.CancelFunc
}

// NewServer creates a new HTTP server with all routes configured.
// limiter throttles each session; nil disables throttling. Only the given
// browser origins may call the API cross-origin.
func NewServer(sessions *Registry, c *cellar.Cellar, r *cellar.Recent, v *validation.Validator, limiter *ratelimit.KeyedRateLimiter, allowedOrigins []string, logger *slog.Logger) *Server {
	s := &Server{
		sessions:  sessions,
		cellar:    c,
		recent:    r,
		validator: v,
		limiter:   limiter,
		origins:   allowedOrigins,
		router:    chi.NewRouter(),
		logger:    logger.With("component", "api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return slices.Contains(s.origins, origin)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/cellar", s.handleListCellar)
		r.Get("/recent", s.handleListRecent)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)

			r.Post("/scan", s.handleScan)
			r.Post("/menu", s.handleMenu)
			r.Post("/search", s.handleSearch)
			r.Post("/select", s.handleSelect)
			r.Post("/back", s.handleBack)
			r.Post("/home", s.handleHome)
			r.Post("/cellar", s.handleCellar)
			r.Post("/dismiss", s.handleDismiss)
			r.Post("/similar", s.handleSimilar)
			r.Post("/favorite", s.handleFavorite)
			r.Post("/ask", s.handleAsk)
			r.Post("/image", s.handleImage)
		})
	})
}

// requireSession answers 404 for unknown sessions and 429 when a session
// sends requests too fast. Unknown ids never reach the limiter.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")
		if _, ok := s.sessions.Get(sid); !ok {
			handleError(w, domainerrors.NotFoundf("session %s not found", sid), s.logger)
			return
		}
		if s.limiter != nil && !s.limiter.Allow(sid) {
			s.logger.Warn("rate limit exceeded", "session_id", sid, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EvictIdle ends the sessions idle for longer than maxIdle and drops
// their rate limiters. It returns how many sessions were ended.
func (s *Server) EvictIdle(maxIdle time.Duration) int {
	evicted := s.sessions.EvictIdle(maxIdle)
	if s.limiter != nil {
		for _, sid := range evicted {
			s.limiter.Forget(sid)
		}
	}
	if len(evicted) > 0 {
		s.logger.Info("idle sessions evicted", "count", len(evicted), "live", s.sessions.Len())
	}
	return len(evicted)
}

// StartEviction sweeps idle sessions every minute until Shutdown.
// A non-positive maxIdle keeps sessions forever.
func (s *Server) StartEviction(maxIdle time.Duration) {
	if maxIdle <= 0 || s.stopEviction != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopEviction = cancel

	go func() {
		ticker := time.NewTicker(evictionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.EvictIdle(maxIdle)
			}
		}
	}()
}

// Shutdown stops the eviction loop. It implements do.Shutdownable.
func (s *Server) Shutdown() error {
	if s.stopEviction != nil {
		s.stopEviction()
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// NewHTTPServer wraps handler in an http.Server configured from cfg.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
