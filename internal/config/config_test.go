package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets key for the duration of the test. t.Setenv registers the
// restore; the explicit unset matters because an empty value still counts as
// set for LookupEnv.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t,
		"APP_HTTP_ADDR", "APP_GRPC_ADDR", "APP_PG_DSN", "APP_REDIS_ADDR",
		"APP_REDIS_DB", "APP_CORS_ORIGINS", "APP_RATELIMIT_SWEEP_SECONDS",
	)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.PGDSN != "" || cfg.RedisAddr != "" {
		t.Fatalf("expected empty backends: %+v", cfg)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadParsesValues(t *testing.T) {
	t.Setenv("APP_HTTP_ADDR", ":9090")
	t.Setenv("APP_CORS_ORIGINS", "https://a.example.com, https://b.example.com ,")
	t.Setenv("APP_RATELIMIT_SWEEP_SECONDS", "120")
	t.Setenv("APP_REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SweepInterval != 2*time.Minute {
		t.Fatalf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("RedisDB = %d", cfg.RedisDB)
	}
}

func TestLoadRejectsBadInts(t *testing.T) {
	t.Setenv("APP_REDIS_DB", "three")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric APP_REDIS_DB")
	}

	t.Setenv("APP_REDIS_DB", "0")
	t.Setenv("APP_RATELIMIT_SWEEP_SECONDS", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative sweep interval")
	}
}
