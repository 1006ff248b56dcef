// Package config assembles the server settings from the environment, with an
// optional .env file loaded first. Every setting has a default suitable for
// local development, so a bare `acs-server` starts with the in memory store and
// unsigned challenge content.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backend selectors, see Settings.StoreBackend.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// Settings holds the full server configuration.
type Settings struct {
	// Host and Port form the listen address.
	Host string
	Port int

	// PublicBaseURL is the externally reachable origin advertised to SDKs in
	// acsURL and browser redirects.
	PublicBaseURL string

	// StoreBackend selects the transaction store, one of the Store* constants.
	StoreBackend string

	// RedisURL configures the redis backend.
	RedisURL string

	// BoltPath locates the bolt database file.
	BoltPath string

	// PostgresDSN configures the postgres backend.
	PostgresDSN string

	// TransactionTTL bounds how long an unfinished transaction stays resumable.
	TransactionTTL time.Duration

	// KeyPrefix namespaces transaction keys in shared backends.
	KeyPrefix string

	// CertPath and KeyPath locate the PEM signing material. Both may be empty,
	// the server then serves fallback acsSignedContent.
	CertPath string
	KeyPath  string

	// LogLevel is one of debug, info, warn, error. LogFormat is json or text.
	LogLevel  string
	LogFormat string
}

// ListenAddr returns the host:port the HTTP server binds.
func (self *Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", self.Host, self.Port)
}

// Check validates the Settings.
func (self *Settings) Check() error {
	if self.Port <= 0 || self.Port > 65535 {
		return newError("invalid port %d", self.Port)
	}
	switch self.StoreBackend {
	case StoreMemory, StoreRedis, StoreBolt, StorePostgres:
	default:
		return newError("unknown store backend %q", self.StoreBackend)
	}
	if StoreRedis == self.StoreBackend && "" == self.RedisURL {
		return newError("redis backend requires ACS_REDIS_URL")
	}
	if StoreBolt == self.StoreBackend && "" == self.BoltPath {
		return newError("bolt backend requires ACS_BOLT_PATH")
	}
	if StorePostgres == self.StoreBackend && "" == self.PostgresDSN {
		return newError("postgres backend requires ACS_POSTGRES_DSN")
	}
	if self.TransactionTTL <= 0 {
		return newError("invalid transaction TTL %v", self.TransactionTTL)
	}
	if ("" == self.CertPath) != ("" == self.KeyPath) {
		return newError("ACS_CERT_PATH and ACS_KEY_PATH must be set together")
	}
	return nil
}

// Load reads the Settings from the environment. An existing .env file in the
// working directory is merged in first, real environment variables win.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	settings := Settings{
		Host:           envOrDefault("ACS_HOST", "0.0.0.0"),
		Port:           envIntOrDefault("ACS_PORT", 8080),
		StoreBackend:   strings.ToLower(envOrDefault("ACS_STORE_BACKEND", StoreMemory)),
		RedisURL:       envOrDefault("ACS_REDIS_URL", ""),
		BoltPath:       envOrDefault("ACS_BOLT_PATH", ""),
		PostgresDSN:    envOrDefault("ACS_POSTGRES_DSN", ""),
		TransactionTTL: envDurationOrDefault("ACS_TRANSACTION_TTL", 15*time.Minute),
		KeyPrefix:      envOrDefault("ACS_KEY_PREFIX", "3ds"),
		CertPath:       envOrDefault("ACS_CERT_PATH", ""),
		KeyPath:        envOrDefault("ACS_KEY_PATH", ""),
		LogLevel:       strings.ToLower(envOrDefault("ACS_LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(envOrDefault("ACS_LOG_FORMAT", "text")),
	}
	settings.PublicBaseURL = strings.TrimSuffix(
		envOrDefault("ACS_PUBLIC_BASE_URL", "http://localhost:"+strconv.Itoa(settings.Port)),
		"/",
	)

	err := settings.Check()
	if nil != err {
		return nil, err
	}
	return &settings, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); "" != v {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); "" != v {
		if n, err := strconv.Atoi(v); nil == err {
			return n
		}
	}
	return fallback
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); "" != v {
		if d, err := time.ParseDuration(v); nil == err {
			return d
		}
	}
	return fallback
}
