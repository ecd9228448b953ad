// Package config handles loading and validation of gateway configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/stridefit/admin-gateway/logger"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
}

// BackendConfig holds connection details for the platform REST backend that
// owns users, challenges, rewards, and the admin auth endpoints.
type BackendConfig struct {
	BaseURL        string `mapstructure:"BASE_URL" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// AuthConfig holds session credential configuration.
type AuthConfig struct {
	// CookieName is the session cookie read by the edge guard.
	CookieName string `mapstructure:"COOKIE_NAME" yaml:"cookie_name"`
	// TokenTTLDays is the cookie lifetime in days.
	TokenTTLDays int `mapstructure:"TOKEN_TTL_DAYS" yaml:"token_ttl_days"`
	// VerifyTTLSeconds is how long a verified session record stays fresh
	// before the manager re-verifies against the backend.
	VerifyTTLSeconds int `mapstructure:"VERIFY_TTL_SECONDS" yaml:"verify_ttl_seconds"`
	// RefreshLeewayMinutes: a credential whose embedded expiry is closer
	// than this is considered due for refresh.
	RefreshLeewayMinutes int `mapstructure:"REFRESH_LEEWAY_MINUTES" yaml:"refresh_leeway_minutes"`
}

// RoutesConfig defines the guarded route surface. Membership is deployment
// configuration; the guard algorithms only consult the resulting policy table.
type RoutesConfig struct {
	ProtectedPrefixes []string `mapstructure:"PROTECTED_PREFIXES" yaml:"protected_prefixes"`
	PublicOnlyPaths   []string `mapstructure:"PUBLIC_ONLY_PATHS" yaml:"public_only_paths"`
	LoginPath         string   `mapstructure:"LOGIN_PATH" yaml:"login_path"`
	DashboardPath     string   `mapstructure:"DASHBOARD_PATH" yaml:"dashboard_path"`
	UnauthorizedPath  string   `mapstructure:"UNAUTHORIZED_PATH" yaml:"unauthorized_path"`
	// RedirectParam is the query parameter carrying the redirect target
	// across the login redirect cycle.
	RedirectParam string `mapstructure:"REDIRECT_PARAM" yaml:"redirect_param"`
}

// RedisConfig holds Redis connection details for the local session-record store.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS" yaml:"address"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	DB       int    `mapstructure:"DB" yaml:"db"`
	UseTLS   bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
}

// Config is the root configuration object.
type Config struct {
	Server  ServerConfig  `mapstructure:"SERVER" yaml:"server"`
	Backend BackendConfig `mapstructure:"BACKEND" yaml:"backend"`
	Auth    AuthConfig    `mapstructure:"AUTH" yaml:"auth"`
	Routes  RoutesConfig  `mapstructure:"ROUTES" yaml:"routes"`
	Redis   RedisConfig   `mapstructure:"REDIS" yaml:"redis"`
}

// IsProduction reports whether the gateway runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// LoadConfig reads configuration from the environment, applies defaults,
// validates, and returns the resulting Config.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("BACKEND.BASE_URL", "http://localhost:3000")
	v.SetDefault("BACKEND.TIMEOUT_SECONDS", 10)
	v.SetDefault("AUTH.COOKIE_NAME", "stride_admin_session")
	v.SetDefault("AUTH.TOKEN_TTL_DAYS", 7)
	v.SetDefault("AUTH.VERIFY_TTL_SECONDS", 300)
	v.SetDefault("AUTH.REFRESH_LEEWAY_MINUTES", 60)
	v.SetDefault("ROUTES.PROTECTED_PREFIXES", []string{"/admin"})
	v.SetDefault("ROUTES.PUBLIC_ONLY_PATHS", []string{"/login"})
	v.SetDefault("ROUTES.LOGIN_PATH", "/login")
	v.SetDefault("ROUTES.DASHBOARD_PATH", "/admin/dashboard")
	v.SetDefault("ROUTES.UNAUTHORIZED_PATH", "/unauthorized")
	v.SetDefault("ROUTES.REDIRECT_PARAM", "next")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables
	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"BACKEND.BASE_URL", "BACKEND_BASE_URL"},
		{"BACKEND.TIMEOUT_SECONDS", "BACKEND_TIMEOUT_SECONDS"},
		{"AUTH.COOKIE_NAME", "AUTH_COOKIE_NAME"},
		{"AUTH.TOKEN_TTL_DAYS", "AUTH_TOKEN_TTL_DAYS"},
		{"AUTH.VERIFY_TTL_SECONDS", "AUTH_VERIFY_TTL_SECONDS"},
		{"AUTH.REFRESH_LEEWAY_MINUTES", "AUTH_REFRESH_LEEWAY_MINUTES"},
		{"ROUTES.PROTECTED_PREFIXES", "ROUTES_PROTECTED_PREFIXES"},
		{"ROUTES.PUBLIC_ONLY_PATHS", "ROUTES_PUBLIC_ONLY_PATHS"},
		{"ROUTES.LOGIN_PATH", "ROUTES_LOGIN_PATH"},
		{"ROUTES.DASHBOARD_PATH", "ROUTES_DASHBOARD_PATH"},
		{"ROUTES.UNAUTHORIZED_PATH", "ROUTES_UNAUTHORIZED_PATH"},
		{"ROUTES.REDIRECT_PARAM", "ROUTES_REDIRECT_PARAM"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	}
	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Support comma-separated list values from plain env strings.
	cfg.Server.AllowedOrigins = splitIfSingle(cfg.Server.AllowedOrigins)
	cfg.Routes.ProtectedPrefixes = splitIfSingle(cfg.Routes.ProtectedPrefixes)
	cfg.Routes.PublicOnlyPaths = splitIfSingle(cfg.Routes.PublicOnlyPaths)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"backend_url", cfg.Backend.BaseURL,
		"cookie_name", cfg.Auth.CookieName,
		"protected_prefixes", cfg.Routes.ProtectedPrefixes,
		"login_path", cfg.Routes.LoginPath,
		"dashboard_path", cfg.Routes.DashboardPath,
	)

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind env var %s: %w", b[1], err)
		}
	}
	return nil
}

// splitIfSingle turns a one-element []string{"a,b,c"} into []string{"a","b","c"}.
// Viper delivers env-provided lists as a single comma-joined string.
func splitIfSingle(values []string) []string {
	if len(values) != 1 || !strings.Contains(values[0], ",") {
		return values
	}
	parts := strings.Split(values[0], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Environment != EnvDevelopment && c.Server.Environment != EnvProduction {
		return fmt.Errorf("invalid SERVER_ENVIRONMENT: %q", c.Server.Environment)
	}

	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid BACKEND_BASE_URL: %q", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive, got %d", c.Backend.TimeoutSeconds)
	}

	if c.Auth.CookieName == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME must not be empty")
	}
	if c.Auth.TokenTTLDays <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL_DAYS must be positive, got %d", c.Auth.TokenTTLDays)
	}
	if c.Auth.VerifyTTLSeconds <= 0 {
		return fmt.Errorf("AUTH_VERIFY_TTL_SECONDS must be positive, got %d", c.Auth.VerifyTTLSeconds)
	}

	for _, p := range []string{c.Routes.LoginPath, c.Routes.DashboardPath, c.Routes.UnauthorizedPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("route paths must be absolute, got %q", p)
		}
	}
	for _, p := range c.Routes.ProtectedPrefixes {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("protected prefixes must be absolute, got %q", p)
		}
	}
	if c.Routes.RedirectParam == "" {
		return fmt.Errorf("ROUTES_REDIRECT_PARAM must not be empty")
	}

	return nil
}
