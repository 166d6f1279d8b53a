package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tenauth/tenauth/internal/audit"
	"github.com/tenauth/tenauth/internal/auth"
	"github.com/tenauth/tenauth/internal/infrastructure/config"
	"github.com/tenauth/tenauth/internal/infrastructure/logging"
	"github.com/tenauth/tenauth/internal/tenant"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// tokenSweepInterval is how often expired refresh token records are removed.
const tokenSweepInterval = time.Hour

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.ServerConfig
	Logger      *logging.Logger
	AuthService *auth.Service
	UserRepo    auth.UserRepository
	TenantRepo  tenant.Repository
	AuditRepo   audit.Repository
	Version     string
}

// Server is the HTTP API server for TenAuth.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg         config.ServerConfig
	logger      *logging.Logger
	authService *auth.Service
	issuer      *auth.TokenIssuer
	userRepo    auth.UserRepository
	tenantRepo  tenant.Repository
	auditRepo   audit.Repository
	version     string
	server      *http.Server
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.AuthService == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.TenantRepo == nil {
		return nil, fmt.Errorf("tenant repository is required")
	}
	// Audit is optional; activity simply goes unrecorded without it

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		authService: deps.AuthService,
		issuer:      deps.AuthService.Issuer(),
		userRepo:    deps.UserRepo,
		tenantRepo:  deps.TenantRepo,
		auditRepo:   deps.AuditRepo,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the refresh token sweeper, and launches
// the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Remove expired refresh token records periodically
	go s.authService.StartSweeper(srvCtx, tokenSweepInterval)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (token sweeper)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
