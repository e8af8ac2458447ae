package config

import (
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/sra-metadata-client/pkg/batch"
	"github.com/Sternrassler/sra-metadata-client/pkg/eutils"
	"github.com/Sternrassler/sra-metadata-client/pkg/logging"
)

var envKeys = []string{
	"SRA_EUTILS_URL", "SRA_USER_AGENT", "SRA_BATCH_SIZE", "SRA_REQUEST_TIMEOUT",
	"SRA_RATE_LIMIT", "REDIS_URL", "SRA_CACHE_TTL", "LOG_LEVEL", "LOG_PRETTY", "METRICS_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.EutilsURL != eutils.DefaultBaseURL {
		t.Errorf("EutilsURL = %q", cfg.EutilsURL)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.BatchSize != batch.DefaultSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, batch.DefaultSize)
	}
	if cfg.RequestTimeout != 5*time.Minute {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.RateLimit != 3 {
		t.Errorf("RateLimit = %v", cfg.RateLimit)
	}
	if cfg.RedisURL != "" || cfg.MetricsAddr != "" {
		t.Errorf("optional listeners should be disabled by default: %+v", cfg)
	}
	if cfg.Logging().Level != logging.LevelInfo || cfg.Logging().Pretty {
		t.Errorf("Logging() = %+v", cfg.Logging())
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SRA_EUTILS_URL", "http://localhost:9999/eutils")
	t.Setenv("SRA_BATCH_SIZE", "50")
	t.Setenv("SRA_REQUEST_TIMEOUT", "30s")
	t.Setenv("SRA_RATE_LIMIT", "10")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ec := cfg.Eutils()
	if ec.BaseURL != "http://localhost:9999/eutils" || ec.Timeout != 30*time.Second || ec.RateLimit != 10 {
		t.Errorf("Eutils() = %+v", ec)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.BatchSize)
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions() error = %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Errorf("RedisOptions() = addr %q db %d", opts.Addr, opts.DB)
	}

	if lc := cfg.Logging(); lc.Level != logging.LevelDebug || !lc.Pretty {
		t.Errorf("Logging() = %+v", lc)
	}
}

func TestRedisOptions_BareAddress(t *testing.T) {
	cfg := &Config{RedisURL: "cache:6380"}
	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions() error = %v", err)
	}
	if opts.Addr != "cache:6380" {
		t.Errorf("Addr = %q", opts.Addr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr string
	}{
		{key: "SRA_BATCH_SIZE", value: "0", wantErr: "SRA_BATCH_SIZE"},
		{key: "SRA_BATCH_SIZE", value: "many", wantErr: "SRA_BATCH_SIZE"},
		{key: "SRA_REQUEST_TIMEOUT", value: "soon", wantErr: "SRA_REQUEST_TIMEOUT"},
		{key: "SRA_RATE_LIMIT", value: "-1", wantErr: "SRA_RATE_LIMIT"},
		{key: "SRA_CACHE_TTL", value: "-1m", wantErr: "SRA_CACHE_TTL"},
		{key: "SRA_EUTILS_URL", value: "not a url", wantErr: "SRA_EUTILS_URL"},
		{key: "LOG_LEVEL", value: "verbose", wantErr: "LOG_LEVEL"},
		{key: "LOG_PRETTY", value: "sometimes", wantErr: "LOG_PRETTY"},
		{key: "REDIS_URL", value: "redis://localhost:6379/notadb", wantErr: "REDIS_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}
