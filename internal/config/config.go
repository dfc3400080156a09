package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

type Config struct {
	// HTTP Server
	Port             string
	IdentityHeader   string
	TrustedProxies   []string // CIDRs allowed to set the identity header; empty keeps private networks
	RefreshRateLimit int      // refreshes and tenant switches per minute per caller; 0 disables

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string
	SeedFile     string

	// AMQP (empty URL disables events)
	AMQPURL      string
	AMQPExchange string

	// Money display
	CurrencyCode   string
	CurrencySymbol string
	Locale         string

	// Lists
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	CacheSize    int

	// Workspaces
	WorkspaceTTL   time.Duration
	WorkspaceLimit int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		IdentityHeader: getEnv("IDENTITY_HEADER", "X-Forwarded-User"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		RefreshRateLimit: getEnvInt("REFRESH_RATE_LIMIT", 30),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledgerview.db"),
		SeedFile:     getEnv("SEED_FILE", "./data/seed.yaml"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledgerview"),

		CurrencyCode:   getEnv("CURRENCY_CODE", "KES"),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "KSh"),
		Locale:         getEnv("LOCALE", "en-KE"),

		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		CacheTTL:     getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize:    getEnvInt("CACHE_SIZE", 256),

		WorkspaceTTL:   getEnvDuration("WORKSPACE_TTL", 30*time.Minute),
		WorkspaceLimit: getEnvInt("WORKSPACE_LIMIT", 1000),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// CacheEnabled reports whether list fetches go through the record cache.
func (c *Config) CacheEnabled() bool {
	return c.CacheTTL > 0
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.IdentityHeader == "" {
		errors = append(errors, "identity header cannot be empty")
	} else if strings.ContainsAny(c.IdentityHeader, " :\t\r\n") {
		errors = append(errors, fmt.Sprintf("invalid identity header '%s'", c.IdentityHeader))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}
	if c.RefreshRateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid refresh rate limit %d: must not be negative", c.RefreshRateLimit))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate money display
	if _, err := currency.ParseISO(c.CurrencyCode); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency code '%s': must be an ISO 4217 code", c.CurrencyCode))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}

	// Validate list timing and sizes
	if c.FetchTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must not be negative", c.FetchTimeout))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheEnabled() && c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.WorkspaceTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid workspace TTL %v: must be at least 1 minute", c.WorkspaceTTL))
	}
	if c.WorkspaceLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid workspace limit %d: must be at least 1", c.WorkspaceLimit))
	}

	// Validate logging
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts "0" so CACHE_TTL=0 can disable the cache.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
