// Package config provides application configuration management with
// environment variable loading, validation, and sensible defaults. It
// supports .env files for local development and validates all required
// settings on startup to prevent runtime configuration errors.
//
// Configuration is loaded from environment variables with the Load()
// function, which returns a validated Config struct or an error if
// required variables are missing or invalid.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to load configuration")
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway. It aggregates all
// configuration sections into a single struct for easy access
// throughout the application.
type Config struct {
	Server    ServerConfig
	OIDC      OIDCConfig
	Session   SessionConfig
	Upstream  UpstreamConfig
	Redis     RedisConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	Environment string
	StaticDir   string // Directory with the built SPA assets (production)
	DevAppURL   string // Dev frontend URL non-API paths redirect to (development)
}

// IsProduction reports whether the server runs in production mode.
// Affects cookie security flags and static asset serving.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// OIDCConfig holds OpenID Connect configuration for the external
// identity provider.
type OIDCConfig struct {
	IssuerURL             string
	ClientID              string
	ClientSecret          string
	RedirectURL           string
	PostLogoutRedirectURL string
	// LogoutFallbackURL is the end-session endpoint used when provider
	// discovery did not expose one. Deployment-specific; there is no
	// hardcoded default.
	LogoutFallbackURL string
	Scopes            []string
}

// SessionConfig holds session store configuration. Sessions live
// server-side in Redis; the cookie only carries a signed session
// identifier.
type SessionConfig struct {
	Secret     []byte        // HMAC key for the session cookie signature (>=32 bytes)
	TTL        time.Duration // Fixed lifetime from creation (default: 24h)
	CookieName string
}

// UpstreamConfig holds the base URLs of the three downstream
// microservices plus the per-call timeout applied to every proxied
// request.
type UpstreamConfig struct {
	UserServiceURL   string
	PostServiceURL   string
	StreamServiceURL string
	Timeout          time.Duration
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// CORSConfig controls which origins may call the API with credentials.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds rate limiting configuration for the auth
// endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int
	WindowDuration    time.Duration
}

// CacheConfig holds TTLs for the short-lived cache of proxied lookups.
type CacheConfig struct {
	ProfileTTL time.Duration // Cached user-by-username lookups
	Enabled    bool
}

// Load reads and validates configuration from environment variables.
// It attempts to load a .env file if present (for local development)
// but doesn't fail if the file is missing.
//
// Required environment variables:
//   - OIDC_ISSUER_URL: identity provider issuer
//   - OIDC_CLIENT_ID / OIDC_CLIENT_SECRET: client credentials
//   - SESSION_SECRET: HMAC key for session cookies (>=32 bytes)
//
// Optional variables have defaults suitable for local development; the
// three *_SERVICE_URL variables default to the conventional local
// ports of the user, post, and stream services.
func Load() (*Config, error) {
	_ = godotenv.Load()

	issuerURL, err := getEnvRequired("OIDC_ISSUER_URL")
	if err != nil {
		return nil, err
	}
	clientID, err := getEnvRequired("OIDC_CLIENT_ID")
	if err != nil {
		return nil, err
	}
	clientSecret, err := getEnvRequired("OIDC_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}
	sessionSecret, err := getEnvRequired("SESSION_SECRET")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			Environment: getEnv("ENV", "development"),
			StaticDir:   getEnv("STATIC_DIR", "dist"),
			DevAppURL:   getEnv("DEV_APP_URL", "http://localhost:5173"),
		},
		OIDC: OIDCConfig{
			IssuerURL:             issuerURL,
			ClientID:              clientID,
			ClientSecret:          clientSecret,
			RedirectURL:           getEnv("OIDC_REDIRECT_URI", "http://localhost:3000/callback"),
			PostLogoutRedirectURL: getEnv("OIDC_POST_LOGOUT_URI", "http://localhost:3000"),
			LogoutFallbackURL:     getEnv("OIDC_LOGOUT_FALLBACK_URL", ""),
			Scopes:                getEnvAsSlice("OIDC_SCOPES", []string{"openid", "email"}),
		},
		Session: SessionConfig{
			Secret:     []byte(sessionSecret),
			TTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "session_id"),
		},
		Upstream: UpstreamConfig{
			UserServiceURL:   getEnv("USER_SERVICE_URL", "http://localhost:8081"),
			PostServiceURL:   getEnv("POST_SERVICE_URL", "http://localhost:8082"),
			StreamServiceURL: getEnv("STREAM_SERVICE_URL", "http://localhost:8083"),
			Timeout:          getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 100),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			WindowDuration:    getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Cache: CacheConfig{
			ProfileTTL: getEnvAsDuration("CACHE_PROFILE_TTL", 60*time.Second),
			Enabled:    getEnv("CACHE_ENABLED", "true") == "true",
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if all required configuration is present and valid:
// ports parse as integers, URLs parse, and the session secret meets the
// minimum length. Called automatically by Load() but usable on its own
// for testing.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be a valid integer: %w", err)
	}

	if _, err := strconv.Atoi(c.Redis.Port); err != nil {
		return fmt.Errorf("redis port must be a valid integer: %w", err)
	}

	if c.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC client ID is required")
	}
	if c.OIDC.ClientSecret == "" {
		return fmt.Errorf("OIDC client secret is required")
	}
	for name, raw := range map[string]string{
		"issuer URL":         c.OIDC.IssuerURL,
		"redirect URL":       c.OIDC.RedirectURL,
		"post-logout URL":    c.OIDC.PostLogoutRedirectURL,
		"user service URL":   c.Upstream.UserServiceURL,
		"post service URL":   c.Upstream.PostServiceURL,
		"stream service URL": c.Upstream.StreamServiceURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.OIDC.LogoutFallbackURL != "" {
		if _, err := url.ParseRequestURI(c.OIDC.LogoutFallbackURL); err != nil {
			return fmt.Errorf("invalid logout fallback URL: %w", err)
		}
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	return nil
}

// CallbackPath returns the path component of the configured redirect
// URI, so the router can register the provider callback at the exact
// path the provider will redirect to.
func (c *OIDCConfig) CallbackPath() string {
	u, err := url.Parse(c.RedirectURL)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}

// Address returns the Redis server address in "host:port" format.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions for environment variable parsing

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequired retrieves a required environment variable.
// Returns an error if the variable is not set or is empty.
func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer with a
// default fallback.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// with a default fallback. Supports Go duration format: "300ms",
// "1.5h", "2h45m".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves a comma-separated environment variable as a
// string slice with a default fallback.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
