// Package ratelimit implements a fixed-window request counter keyed by
// client identity and endpoint. Windows reset at fixed boundaries, which
// allows up to a 2x burst around a boundary; acceptable for abuse
// prevention, not precise throttling.
package ratelimit

import (
	"context"
	"time"

	"clasharmies.app/internal/apperr"
)

// Config is the per-endpoint quota: Max requests per Window.
type Config struct {
	Window time.Duration
	Max    int
}

// Endpoint presets. Mutation and auth endpoints get tighter quotas than
// reads.
var (
	ConfigGlobal   = Config{Window: 15 * time.Minute, Max: 1000}
	ConfigAuth     = Config{Window: 15 * time.Minute, Max: 10}
	ConfigRead     = Config{Window: 15 * time.Minute, Max: 100}
	ConfigDetail   = Config{Window: 15 * time.Minute, Max: 200}
	ConfigList     = Config{Window: 15 * time.Minute, Max: 50}
	ConfigMutation = Config{Window: 15 * time.Minute, Max: 10}
	ConfigVote     = Config{Window: 15 * time.Minute, Max: 20}
	ConfigProfile  = Config{Window: 15 * time.Minute, Max: 5}
)

// Store owns the window records. Incr initializes or advances the record for
// key and reports the count inside the current window. Implementations are
// safe for concurrent use.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Sweep(ctx context.Context, now time.Time)
}

// Limiter applies fixed-window quotas against an injected store, so a shared
// cache can back it in a multi-process deployment.
type Limiter struct {
	store Store
}

// New creates a limiter over the given store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Allow consumes one request from the (clientKey, endpointKey) window.
// Returns a rate-limited failure when the quota is already spent. Store
// errors fail open: losing a counter beats refusing traffic.
func (l *Limiter) Allow(ctx context.Context, clientKey, endpointKey string, cfg Config) error {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return nil
	}
	count, _, err := l.store.Incr(ctx, clientKey+":"+endpointKey, cfg.Window)
	if err != nil {
		return nil
	}
	if count > cfg.Max {
		return apperr.RateLimited("Rate limit exceeded")
	}
	return nil
}

// StartSweep launches a background loop deleting expired records. The
// interval must not exceed the shortest configured window, or memory grows
// unbounded between sweeps. Stops when ctx is cancelled.
func (l *Limiter) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.store.Sweep(ctx, now)
			}
		}
	}()
}
