package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/ids"
	"clasharmies.app/internal/obs"
)

const requestIDHeader = "X-Request-Id"

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestID attaches an id to the request context and echoes it in the
// response header. Client-supplied ids are ignored; the id must be ours so
// log and audit correlation cannot be spoofed.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := ids.New()
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), rid)))
	})
}

// LoggingJSON emits one structured line per request: method, path, status,
// duration, request id.
func LoggingJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		obs.LogRequest(map[string]any{
			"level":       "info",
			"msg":         "request_complete",
			"request_id":  audit.RequestIDFromContext(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.code,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// CORSPolicy controls which browser origins may call the API.
type CORSPolicy struct {
	// AllowedOrigins lists exact origins. "*" allows any origin (without
	// credentials). Empty means same-origin only.
	AllowedOrigins []string
	AllowMethods   []string
	AllowHeaders   []string
	MaxAge         time.Duration
}

// DefaultCORSPolicy covers the app's needs: standard methods plus the auth
// header, preflight cached for ten minutes.
func DefaultCORSPolicy(origins []string) CORSPolicy {
	return CORSPolicy{
		AllowedOrigins: origins,
		AllowMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:   []string{"Content-Type", "Authorization"},
		MaxAge:         10 * time.Minute,
	}
}

func (p CORSPolicy) allows(origin string) (allowed, wildcard bool) {
	for _, o := range p.AllowedOrigins {
		if o == "*" {
			return true, true
		}
		if strings.EqualFold(o, origin) {
			return true, false
		}
	}
	return false, false
}

// CORS applies the policy and short-circuits preflight requests with 204.
func CORS(policy CORSPolicy, next http.Handler) http.Handler {
	methods := strings.Join(policy.AllowMethods, ", ")
	headers := strings.Join(policy.AllowHeaders, ", ")
	maxAge := strconv.Itoa(int(policy.MaxAge.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// methods, headers and max-age are static policy; only the origin
		// echo depends on the caller
		if methods != "" {
			w.Header().Set("Access-Control-Allow-Methods", methods)
		}
		if headers != "" {
			w.Header().Set("Access-Control-Allow-Headers", headers)
		}
		if policy.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", maxAge)
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			if allowed, wildcard := policy.allows(origin); allowed {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				}
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodyBytes caps request body size for every route.
func MaxBodyBytes(next http.Handler, maxBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

type ipBucket struct {
	lim *rate.Limiter
	ts  time.Time
}

// ipBuckets holds one token bucket per client IP. Idle entries are dropped
// lazily while the mutex is already held, so no sweeper goroutine is needed.
type ipBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	perSecond int
	burst     int
	ttl       time.Duration
	sweepEach time.Duration
	lastSweep time.Time
}

func newIPBuckets(perSecond, burst int) *ipBuckets {
	return &ipBuckets{
		buckets:   make(map[string]*ipBucket),
		perSecond: perSecond,
		burst:     burst,
		ttl:       5 * time.Minute,
		sweepEach: time.Minute,
		lastSweep: time.Now(),
	}
}

func (bs *ipBuckets) allow(ip string) bool {
	now := time.Now()
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if now.Sub(bs.lastSweep) >= bs.sweepEach {
		for k, b := range bs.buckets {
			if now.Sub(b.ts) > bs.ttl {
				delete(bs.buckets, k)
			}
		}
		bs.lastSweep = now
	}

	b, ok := bs.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(rate.Limit(bs.perSecond), bs.burst)}
		bs.buckets[ip] = b
	}
	b.ts = now
	return b.lim.Allow()
}

func (bs *ipBuckets) len() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return len(bs.buckets)
}

// GlobalRateLimit is a coarse per-IP token bucket in front of the per-endpoint
// quotas. It absorbs floods independently of the window store, so abuse is
// cut off even when the shared store is degraded.
func GlobalRateLimit(next http.Handler, perSecond, burst int) http.Handler {
	buckets := newIPBuckets(perSecond, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}
		if !buckets.allow(ip) {
			fail(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// first hop in X-Forwarded-For when behind a proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
