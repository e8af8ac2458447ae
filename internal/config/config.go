// Package config loads sra-fetch settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sra-metadata-client/pkg/batch"
	"github.com/Sternrassler/sra-metadata-client/pkg/cache"
	"github.com/Sternrassler/sra-metadata-client/pkg/eutils"
	"github.com/Sternrassler/sra-metadata-client/pkg/logging"
	"github.com/Sternrassler/sra-metadata-client/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// DefaultUserAgent identifies the client to NCBI.
const DefaultUserAgent = "sra-metadata-client/0.1.0"

// Config holds every setting the command reads from the environment.
type Config struct {
	EutilsURL      string
	UserAgent      string
	BatchSize      int
	RequestTimeout time.Duration
	RateLimit      float64

	// RedisURL enables the project resolution cache when set. Accepts a
	// redis:// URL or a bare host:port.
	RedisURL string
	CacheTTL time.Duration

	LogLevel  string
	LogPretty bool

	// MetricsAddr enables the Prometheus listener when set.
	MetricsAddr string
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		EutilsURL:      getEnv("SRA_EUTILS_URL", eutils.DefaultBaseURL),
		UserAgent:      getEnv("SRA_USER_AGENT", DefaultUserAgent),
		BatchSize:      getInt("SRA_BATCH_SIZE", batch.DefaultSize, &errs),
		RequestTimeout: getDuration("SRA_REQUEST_TIMEOUT", 5*time.Minute, &errs),
		RateLimit:      getFloat("SRA_RATE_LIMIT", ratelimit.DefaultRate, &errs),
		RedisURL:       getEnv("REDIS_URL", ""),
		CacheTTL:       getDuration("SRA_CACHE_TTL", cache.DefaultTTL, &errs),
		LogLevel:       getEnv("LOG_LEVEL", string(logging.LevelInfo)),
		LogPretty:      getBool("LOG_PRETTY", false, &errs),
		MetricsAddr:    getEnv("METRICS_ADDR", ""),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for values no component accepts.
func (c *Config) Validate() error {
	if c.EutilsURL == "" {
		return errors.New("SRA_EUTILS_URL must not be empty")
	}
	if u, err := url.Parse(c.EutilsURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SRA_EUTILS_URL %q is not an absolute URL", c.EutilsURL)
	}
	if c.UserAgent == "" {
		return errors.New("SRA_USER_AGENT must not be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("SRA_BATCH_SIZE must be positive (got %d)", c.BatchSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("SRA_REQUEST_TIMEOUT must not be negative (got %s)", c.RequestTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("SRA_RATE_LIMIT must not be negative (got %g)", c.RateLimit)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("SRA_CACHE_TTL must be positive (got %s)", c.CacheTTL)
	}
	switch logging.Level(strings.ToLower(c.LogLevel)) {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if c.RedisURL != "" {
		if _, err := c.RedisOptions(); err != nil {
			return err
		}
	}
	return nil
}

// RedisOptions returns the connection options for RedisURL.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// Eutils returns the remote client configuration.
func (c *Config) Eutils() eutils.Config {
	return eutils.Config{
		BaseURL:   c.EutilsURL,
		UserAgent: c.UserAgent,
		Timeout:   c.RequestTimeout,
		RateLimit: c.RateLimit,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.Level(strings.ToLower(c.LogLevel))
	cfg.Pretty = c.LogPretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}
