// Package server provides the app shell's HTTP surface: link intake, the
// session and catalog API, universal-link files and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/handlers"
	authmw "github.com/brizzai/tigoplanes/internal/auth/middleware"
	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/catalog"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/metrics"
	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/brizzai/tigoplanes/internal/server/handler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

type ServerParams struct {
	fx.In

	Config   *config.ServerConfig
	AppLinks *config.AppLinksConfig
	Auth     *auth.Service
	Links    *reconcile.Router
	Plans    *catalog.PlanService
	Hirings  *catalog.HiringService
	Metrics  *metrics.Collector
}

// Server is the app shell's HTTP server.
type Server struct {
	config  *config.ServerConfig
	handler http.Handler
	http    *http.Server

	unsubscribe func()
}

// NewServer wires every route.
func NewServer(params ServerParams) *Server {
	cfg := params.Config
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		requestID,
		accessLog,
		middleware.Recoverer,
		params.Metrics.Instrument,
		authmw.CORS(cfg.AllowOrigins),
	)

	links := handler.NewLinkHandler(params.Links)
	limiter := newLinkLimiter(cfg.LinkRate, cfg.LinkBurst)
	r.With(limiter.Middleware).Post("/links", links.HandleDeliver)
	r.With(limiter.Middleware).Get("/auth/callback", links.HandleCallback)

	appLinks := handler.NewAppLinksHandler(params.AppLinks)
	r.Get("/.well-known/apple-app-site-association", appLinks.HandleAppleAssociation)
	r.Get("/apple-app-site-association", appLinks.HandleAppleAssociation)
	r.Get("/.well-known/assetlinks.json", appLinks.HandleAssetLinks)

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	session := handlers.NewHandler(params.Auth)
	catalogHandler := handler.NewCatalogHandler(params.Plans, params.Hirings)
	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", session.HandleSession)
			r.Get("/events", session.HandleEvents)
			r.Post("/signin", session.HandleSignIn)
			r.Post("/signup", session.HandleSignUp)
			r.Post("/password-reset", session.HandlePasswordReset)
			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireUser(params.Auth))
				r.Post("/signout", session.HandleSignOut)
				r.Post("/password", session.HandlePassword)
				r.Patch("/profile", session.HandleProfile)
			})
		})
		catalogHandler.Routes(r)
	})

	unsubscribe := params.Auth.Subscribe(func(event auth.Event, _ *models.User) {
		params.Metrics.AuthEvent(string(event))
	})

	return &Server{config: cfg, handler: r, unsubscribe: unsubscribe}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	timeout := config.MustDuration(s.config.Timeout)
	s.http = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout would cut the event stream, so only reads are bounded.
		ReadTimeout: timeout,
	}

	go func() {
		logger.Info("Starting server", zap.String("address", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.http == nil {
		return nil
	}
	logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Module provides the HTTP server and binds it to the application lifecycle
var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{OnStart: s.Start, OnStop: s.Stop})
	}),
)
