// Package config handles loading and validation of application configuration
// from environment variables and an optional YAML file. Supports .env files via godotenv.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // dashboard time zones on hosts without zoneinfo

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DevJWTSecret is the fallback secret that production refuses to start with.
const DevJWTSecret = "dev-secret-change-in-production"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Push      PushConfig      `yaml:"push"`
	Relay     RelayConfig     `yaml:"relay"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	Environment     string        `yaml:"environment"      env:"ENVIRONMENT"             env-default:"development"`
	Version         string        `yaml:"version"          env:"APP_VERSION"             env-default:"1.0.0"`
	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"SERVER_REQUEST_TIMEOUT"  env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url"                env:"DATABASE_URL"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

// RedisConfig holds cache / rate-limit store settings. An empty URL disables Redis.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379"`
}

// AuthConfig holds session and OAuth settings.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"           env:"JWT_SECRET"           env-default:"dev-secret-change-in-production"`
	JWTIssuer          string        `yaml:"jwt_issuer"           env:"JWT_ISSUER"           env-default:"fixa-admin"`
	TokenTTL           time.Duration `yaml:"token_ttl"            env:"JWT_TTL"              env-default:"12h"`
	GoogleClientID     string        `yaml:"google_client_id"     env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string        `yaml:"google_redirect_uri"  env:"GOOGLE_REDIRECT_URI"`
}

// DashboardConfig holds presentation settings.
type DashboardConfig struct {
	PageSize      int           `yaml:"page_size"      env:"DASHBOARD_PAGE_SIZE"      env-default:"6"`
	DefaultLocale string        `yaml:"default_locale" env:"DASHBOARD_DEFAULT_LOCALE" env-default:"pt-BR"`
	TimeZone      string        `yaml:"time_zone"      env:"DASHBOARD_TIME_ZONE"      env-default:"Africa/Luanda"`
	ResyncEvery   time.Duration `yaml:"resync_every"   env:"DASHBOARD_RESYNC_EVERY"   env-default:"1m"`
}

// PushConfig holds browser push registration settings.
type PushConfig struct {
	VAPIDKey string        `yaml:"vapid_key" env:"PUSH_VAPID_KEY"`
	Attempts int           `yaml:"attempts"  env:"PUSH_ATTEMPTS"  env-default:"3"`
	Delay    time.Duration `yaml:"delay"     env:"PUSH_DELAY"     env-default:"1s"`
}

// RelayConfig holds UltraMsg credentials. They never come from requests.
type RelayConfig struct {
	BaseURL    string        `yaml:"base_url"    env:"ULTRAMSG_BASE_URL"    env-default:"https://api.ultramsg.com"`
	InstanceID string        `yaml:"instance_id" env:"ULTRAMSG_INSTANCE_ID"`
	Token      string        `yaml:"token"       env:"ULTRAMSG_TOKEN"`
	Timeout    time.Duration `yaml:"timeout"     env:"ULTRAMSG_TIMEOUT"     env-default:"10s"`
	Port       int           `yaml:"port"        env:"RELAY_PORT"           env-default:"8081"`
}

// CORSConfig holds dashboard CORS settings. The relay always allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	RPM int `yaml:"rpm" env:"RATE_LIMIT_RPM" env-default:"60"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool { return c.Server.Environment == "production" }

// RelayEnabled reports whether UltraMsg credentials are configured.
func (c *Config) RelayEnabled() bool {
	return c.Relay.InstanceID != "" && c.Relay.Token != ""
}

// Load reads configuration. Priority: ENV > YAML (CONFIG_PATH) > defaults.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadRelay reads configuration for the standalone relay, which only needs
// the UltraMsg section.
func LoadRelay() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRelay(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func read() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that defaults cannot fix.
func (c *Config) Validate() error {
	var errs []error
	if c.Dashboard.PageSize < 1 {
		errs = append(errs, fmt.Errorf("DASHBOARD_PAGE_SIZE must be positive"))
	}
	if c.Push.Attempts < 1 {
		errs = append(errs, fmt.Errorf("PUSH_ATTEMPTS must be at least 1"))
	}
	if c.Push.Delay < 0 {
		errs = append(errs, fmt.Errorf("PUSH_DELAY must not be negative"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET must not be empty"))
	}
	if _, err := time.LoadLocation(c.Dashboard.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("DASHBOARD_TIME_ZONE: %w", err))
	}

	// Validate required fields in production
	if c.IsProduction() {
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required in production"))
		}
		if c.Auth.JWTSecret == DevJWTSecret {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be set in production"))
		}
	}
	return errors.Join(errs...)
}

// ValidateRelay checks the settings the standalone relay needs.
func (c *Config) ValidateRelay() error {
	if !c.RelayEnabled() {
		return fmt.Errorf("ULTRAMSG_INSTANCE_ID and ULTRAMSG_TOKEN are required")
	}
	return nil
}

// Location returns the dashboard time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Dashboard.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
