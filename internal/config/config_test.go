package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func unsetAll(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetAll(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("expected memory driver in development, got %s", cfg.StoreDriver)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("expected console logs in development, got %s", cfg.LogFormat)
	}
	if cfg.PublicBaseURL != "http://localhost:8000" {
		t.Errorf("unexpected base url %s", cfg.PublicBaseURL)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.BodyLimitBytes != 1<<20 {
		t.Errorf("unexpected request limits %s %d", cfg.RequestTimeout, cfg.BodyLimitBytes)
	}
	if !cfg.MetricsEnabled {
		t.Error("expected metrics enabled by default")
	}
	if !cfg.DevAuth() {
		t.Error("expected dev auth without a signing key")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_ProductionDefaultsToMongo(t *testing.T) {
	unsetAll(t)
	t.Setenv("ENV", "production")
	t.Setenv("PUBLIC_BASE_URL", "https://api.vetcare.dev/")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != DriverMongo {
		t.Errorf("expected mongo driver, got %s", cfg.StoreDriver)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected json logs, got %s", cfg.LogFormat)
	}
	if cfg.PublicBaseURL != "https://api.vetcare.dev" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
	if cfg.DevAuth() {
		t.Error("dev auth must be off in production")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestValidate(t *testing.T) {
	key := strings.Repeat("k", 32)
	valid := func() Config {
		return Config{
			Env:            "production",
			StoreDriver:    DriverMongo,
			MongoURI:       "mongodb://db:27017",
			MongoDatabase:  "practice",
			AuthSigningKey: key,
			BlobMaxBytes:   1024,
			LogFormat:      "json",
			DBMaxConns:     10,
			DBMinConns:     2,
			RequestTimeout: 30 * time.Second,
			BodyLimitBytes: 1 << 20,
			RateLimitRPS:   50,
			RateLimitBurst: 100,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.StoreDriver = "redis" }, "STORE_DRIVER"},
		{"memory in production", func(c *Config) { c.StoreDriver = DriverMemory }, "not allowed"},
		{"mongo without uri", func(c *Config) { c.MongoURI = "" }, "MONGO_URI"},
		{"postgres without url", func(c *Config) { c.StoreDriver = DriverPostgres }, "DATABASE_URL"},
		{"postgres pool bounds", func(c *Config) {
			c.StoreDriver = DriverPostgres
			c.DatabaseURL = "postgres://x"
			c.DBMinConns = 50
		}, "DB_MIN_CONNS"},
		{"missing signing key", func(c *Config) { c.AuthSigningKey = "" }, "AUTH_SIGNING_KEY"},
		{"short signing key", func(c *Config) { c.AuthSigningKey = "short" }, "at least 32"},
		{"zero blob limit", func(c *Config) { c.BlobMaxBytes = 0 }, "BLOB_MAX_BYTES"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "REQUEST_TIMEOUT"},
		{"zero body limit", func(c *Config) { c.BodyLimitBytes = 0 }, "BODY_LIMIT_BYTES"},
		{"rate without burst", func(c *Config) { c.RateLimitBurst = 0 }, "RATE_LIMIT_BURST"},
		{"rate limiting off", func(c *Config) { c.RateLimitRPS, c.RateLimitBurst = 0, 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
