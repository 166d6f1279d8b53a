// TenAuth - Multi-tenant authentication service
//
// This is the main entry point for the TenAuth service. TenAuth issues
// RS256 access tokens and database-backed HS256 refresh tokens, and
// serves the user, tenant, and audit admin APIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tenauth/tenauth/migrations"

	"github.com/tenauth/tenauth/internal/api"
	"github.com/tenauth/tenauth/internal/audit"
	"github.com/tenauth/tenauth/internal/auth"
	"github.com/tenauth/tenauth/internal/infrastructure/config"
	"github.com/tenauth/tenauth/internal/infrastructure/database"
	"github.com/tenauth/tenauth/internal/infrastructure/logging"
	"github.com/tenauth/tenauth/internal/tenant"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TenAuth",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load token signing material
	privateKey, err := auth.LoadPrivateKey(cfg.Security.JWT.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("loading private key: %w", err)
	}
	publicKeys, err := auth.LoadPublicKeys(cfg.Security.JWT.PublicKeyDir)
	if err != nil {
		return fmt.Errorf("loading public keys: %w", err)
	}
	keyID := auth.KeyIDFromPath(cfg.Security.JWT.PrivateKeyFile)
	if _, ok := publicKeys[keyID]; !ok {
		return fmt.Errorf("no public key matches signing key id %q", keyID)
	}
	log.Info("signing keys loaded", "key_id", keyID, "verification_keys", len(publicKeys))

	// Build the auth stack
	userRepo := auth.NewUserRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	tenantRepo := tenant.NewRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	hasher := auth.NewHasher(cfg.Security.Password.BcryptCost, cfg.Security.Password.MaxConcurrentHashes)

	issuer := auth.NewTokenIssuer(auth.IssuerConfig{
		Issuer:     cfg.Security.JWT.Issuer,
		KeyID:      keyID,
		AccessTTL:  cfg.Security.JWT.AccessTokenDuration(),
		RefreshTTL: cfg.Security.JWT.RefreshTokenDuration(),
	}, privateKey, publicKeys, []byte(cfg.Security.JWT.RefreshSecret), tokenRepo)

	authService := auth.NewService(userRepo, tokenRepo, hasher, issuer, auditRepo, log.Logger)

	// Seed the first admin account on an empty database
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, hasher, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:      cfg.Server,
		Logger:      log,
		AuthService: authService,
		UserRepo:    userRepo,
		TenantRepo:  tenantRepo,
		AuditRepo:   auditRepo,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all components are healthy
	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Database

	log.Info("TenAuth stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TENAUTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TENAUTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all components are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
