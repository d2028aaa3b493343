package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/sketch/pkg/config"
	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/orchestrator"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/server/middleware"
	"mercator-hq/sketch/pkg/telemetry/health"
	"mercator-hq/sketch/pkg/usage"
)

// Generator runs generations. *orchestrator.Orchestrator implements it.
type Generator interface {
	Generate(ctx context.Context, req orchestrator.Request) orchestrator.Result
	QuotaStatus(ctx context.Context, providerID string) ratelimit.Status
	LedgerSnapshot(ctx context.Context) usage.Ledger
	ResetLedger(ctx context.Context)
}

// Catalog lists providers. *registry.Registry implements it.
type Catalog interface {
	Get(id string) (registry.Descriptor, error)
	List() []registry.Descriptor
}

// KeySource resolves provider API keys. *secrets.Manager implements it.
type KeySource interface {
	ProviderKey(ctx context.Context, providerID string) (string, error)
}

// Options configures a Server.
type Options struct {
	Config config.ServerConfig

	Generator Generator
	Catalog   Catalog

	// Keys is optional. Without it only bearer tokens supply keys.
	Keys KeySource

	// Health is optional. Without it readiness has no checks.
	Health *health.Checker

	// Metrics is served at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string

	Version   string
	Commit    string
	BuildTime string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	opts       Options
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server

	mu        sync.RWMutex
	isRunning bool
	addr      string
}

// New creates a server. Generator and Catalog are required.
func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("server: generator is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Handler returns the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is
// canceled, then shuts down gracefully within ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.opts.Config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Config.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.Config.ReadTimeout,
		WriteTimeout: s.opts.Config.WriteTimeout,
		IdleTimeout:  s.opts.Config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.addr = ln.Addr().String()
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("server stopped")
	return <-errChan
}

// Addr returns the bound address while running, or "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return ""
	}
	return s.addr
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /v1/quota/{provider}", s.handleQuota)
	mux.HandleFunc("GET /v1/usage", s.handleUsage)
	mux.HandleFunc("DELETE /v1/usage", s.handleResetUsage)

	mux.HandleFunc("GET /health", s.opts.Health.LivenessHandler())
	mux.HandleFunc("GET /ready", s.opts.Health.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))

	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics)
	}

	return middleware.Chain(mux,
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.BodyLimit(s.opts.Config.MaxBodyBytes),
	)
}
