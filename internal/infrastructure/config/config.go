package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for tenauth.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Password PasswordConfig `yaml:"password"`
}

// JWTConfig contains token signing settings.
//
// Access tokens are signed with the RSA private key and verified against
// the public key set; refresh tokens are signed with the shared secret.
// All key material is supplied externally; tenauth never generates keys.
type JWTConfig struct {
	Issuer string `yaml:"issuer"`

	// PrivateKeyFile is the path to the PEM-encoded RSA private key used
	// to sign access tokens.
	PrivateKeyFile string `yaml:"private_key_file"`

	// PublicKeyDir is a directory of PEM-encoded RSA public keys used to
	// verify access tokens. Each file's base name (without extension)
	// becomes the key ID.
	PublicKeyDir string `yaml:"public_key_dir"`

	// RefreshSecret is the shared secret for refresh token signatures.
	// Override with TENAUTH_REFRESH_SECRET in production.
	RefreshSecret string `yaml:"refresh_secret"`

	// AccessTokenTTL is the access token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime in days.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`
}

// PasswordConfig contains password hashing settings.
type PasswordConfig struct {
	// BcryptCost is the bcrypt work factor.
	BcryptCost int `yaml:"bcrypt_cost"`

	// MaxConcurrentHashes bounds how many bcrypt operations may run at
	// once, so a flood of login attempts cannot starve the process.
	MaxConcurrentHashes int `yaml:"max_concurrent_hashes"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TENAUTH_SECTION_KEY
// For example: TENAUTH_DATABASE_PATH, TENAUTH_SERVER_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default TTLs: access tokens live one hour, refresh tokens one year.
const (
	defaultAccessTokenTTLMinutes = 60
	defaultRefreshTokenTTLDays   = 365
	defaultBcryptCost            = 10
	defaultMaxConcurrentHashes   = 8
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5500,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/tenauth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer:          "tenauth-service",
				AccessTokenTTL:  defaultAccessTokenTTLMinutes,
				RefreshTokenTTL: defaultRefreshTokenTTLDays,
			},
			Password: PasswordConfig{
				BcryptCost:          defaultBcryptCost,
				MaxConcurrentHashes: defaultMaxConcurrentHashes,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TENAUTH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("TENAUTH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TENAUTH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Database
	if v := os.Getenv("TENAUTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Security - secrets and key material (IMPORTANT: always override in production)
	if v := os.Getenv("TENAUTH_REFRESH_SECRET"); v != "" {
		cfg.Security.JWT.RefreshSecret = v
	}
	if v := os.Getenv("TENAUTH_PRIVATE_KEY_FILE"); v != "" {
		cfg.Security.JWT.PrivateKeyFile = v
	}
	if v := os.Getenv("TENAUTH_PUBLIC_KEY_DIR"); v != "" {
		cfg.Security.JWT.PublicKeyDir = v
	}
}

// minRefreshSecretLength is the minimum accepted refresh secret length.
// Short secrets make the symmetric refresh signature brute-forceable.
const minRefreshSecretLength = 32

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Security.JWT.PrivateKeyFile == "" {
		errs = append(errs, "security.jwt.private_key_file is required")
	}
	if c.Security.JWT.PublicKeyDir == "" {
		errs = append(errs, "security.jwt.public_key_dir is required")
	}

	if c.Security.JWT.RefreshSecret == "" {
		errs = append(errs, "security.jwt.refresh_secret is required (set TENAUTH_REFRESH_SECRET environment variable)")
	} else if len(c.Security.JWT.RefreshSecret) < minRefreshSecretLength {
		errs = append(errs, "security.jwt.refresh_secret must be at least 32 characters for adequate security")
	}

	if c.Security.Password.BcryptCost < 4 || c.Security.Password.BcryptCost > 31 {
		errs = append(errs, "security.password.bcrypt_cost must be between 4 and 31")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// AccessTokenDuration returns the access token lifetime as a Duration.
func (c *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Minute
}

// RefreshTokenDuration returns the refresh token lifetime as a Duration.
func (c *JWTConfig) RefreshTokenDuration() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * 24 * time.Hour
}
