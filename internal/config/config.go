// Package config reads process configuration from environment variables.
// Secrets for token signing are read lazily by the auth package itself; this
// struct carries everything else the binary needs at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all deploy-time settings for the app API.
type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC listener

	PGDSN string // empty selects the in-memory catalog

	RedisAddr     string // empty selects the in-memory rate-limit store
	RedisPassword string
	RedisDB       int

	GoogleClientID string // required; the binary refuses to start without it

	AllowedOrigins []string // empty allows any origin
	GameDataPath   string

	SweepInterval time.Duration
}

// Load reads configuration with sensible defaults.
func Load() (*Config, error) {
	redisDB, err := getEnvInt("APP_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_REDIS_DB: %w", err)
	}
	sweepSeconds, err := getEnvInt("APP_RATELIMIT_SWEEP_SECONDS", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_RATELIMIT_SWEEP_SECONDS: %w", err)
	}
	if sweepSeconds <= 0 {
		return nil, fmt.Errorf("APP_RATELIMIT_SWEEP_SECONDS must be positive")
	}

	cfg := &Config{
		HTTPAddr:       getEnv("APP_HTTP_ADDR", ":8080"),
		GRPCAddr:       getEnv("APP_GRPC_ADDR", ""),
		PGDSN:          getEnv("APP_PG_DSN", ""),
		RedisAddr:      getEnv("APP_REDIS_ADDR", ""),
		RedisPassword:  getEnv("APP_REDIS_PASSWORD", ""),
		RedisDB:        redisDB,
		GoogleClientID: getEnv("GOOGLE_AUTH_CLIENT_ID", ""),
		AllowedOrigins: splitList(getEnv("APP_CORS_ORIGINS", "")),
		GameDataPath:   getEnv("APP_GAME_DATA_PATH", ""),
		SweepInterval:  time.Duration(sweepSeconds) * time.Second,
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	return strconv.Atoi(val)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
