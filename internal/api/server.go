package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/fundchain/internal/action"
	"github.com/foxzi/fundchain/internal/config"
	"github.com/foxzi/fundchain/internal/journal"
	"github.com/foxzi/fundchain/internal/metrics"
	"github.com/foxzi/fundchain/internal/session"
)

// Sessions is the session store used by the API
type Sessions interface {
	Accounts() []common.Address
	Connect(address common.Address, passphrase string) (*session.Session, error)
	Disconnect(id string) error
	Get(id string) (*session.Session, error)
}

// JournalReader is the read side of the action journal
type JournalReader interface {
	List(ctx context.Context, filter journal.ListFilter) ([]*journal.Entry, error)
	Stats(ctx context.Context) (*journal.Stats, error)
}

// ServerOptions contains all options for creating a server
type ServerOptions struct {
	Orchestrator *action.Orchestrator
	Sessions     Sessions
	Journal      JournalReader
	Events       http.Handler
	Config       *config.APIConfig
	Version      string
	Logger       *slog.Logger
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	orch       *action.Orchestrator
	sessions   Sessions
	journal    JournalReader
	events     http.Handler
	config     *config.APIConfig
	version    string
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(opts ServerOptions) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		router:    chi.NewRouter(),
		orch:      opts.Orchestrator,
		sessions:  opts.Sessions,
		journal:   opts.Journal,
		events:    opts.Events,
		config:    opts.Config,
		version:   version,
		logger:    opts.Logger,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	// API v1 routes (auth required)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/campaigns", s.handleListCampaigns)
		r.Post("/campaigns", s.handleCreateCampaign)
		r.Get("/campaigns/{id}", s.handleGetCampaign)
		r.Post("/campaigns/{id}/{action}", s.handleCampaignAction)

		r.Post("/sessions", s.handleConnect)
		r.Delete("/sessions/{id}", s.handleDisconnect)
		r.Get("/accounts", s.handleAccounts)

		r.Get("/journal", s.handleJournal)

		if s.events != nil {
			r.Get("/events", s.events.ServeHTTP)
		}
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
