// Package config loads the API server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store selectors for CLIENTE_STORE.
const (
	StoreRelational = "relational"
	StoreDocument   = "document"
)

// Config holds the server-wide settings. Connection settings for the
// individual backends live next to their clients (db, redis, mongodb).
type Config struct {
	Port               string        // HTTP listen port
	LogLevel           slog.Level    // LOG_LEVEL (debug, info, warn, error)
	JWTSecret          string        // HMAC secret for access tokens
	AccessTokenTTL     time.Duration // lifetime of an access token
	RefreshTokenTTL    time.Duration // lifetime of a session / refresh token
	ClienteStore       string        // relational or document
	ListCacheTTL       time.Duration // TTL of the cached cliente list, 0 disables the cache
	AuthRateLimit      int           // requests per minute per client IP on the auth endpoints
	CORSAllowedOrigins []string
	SessionSweepEvery  time.Duration // interval of the in-process expired-session purge
}

// LoadEnv reads .env when present. A missing file is not an error.
func LoadEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
}

// LoadConfigFromEnv builds a Config from environment variables, applying defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Port:               getenv("PORT", "8080"),
		LogLevel:           parseLevel(os.Getenv("LOG_LEVEL")),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ClienteStore:       strings.ToLower(getenv("CLIENTE_STORE", StoreRelational)),
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("JWT_EXPIRATION", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ListCacheTTL, err = durationEnv("CLIENTE_CACHE_TTL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SessionSweepEvery, err = durationEnv("SESSION_SWEEP_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateLimit, err = intEnv("AUTH_RATE_LIMIT", 20); err != nil {
		return Config{}, err
	}

	switch cfg.ClienteStore {
	case StoreRelational, StoreDocument:
	default:
		return Config{}, fmt.Errorf("invalid CLIENTE_STORE %q (want %s or %s)", cfg.ClienteStore, StoreRelational, StoreDocument)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewLogger returns a JSON slog logger writing to stdout at the configured level.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
