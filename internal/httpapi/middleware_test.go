package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clasharmies.app/internal/ratelimit"
)

func TestRequestIDHeaderAndEnvelopeAgree(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodGet, "/healthz", "", nil)
	header := rec.Header().Get("X-Request-Id")
	if header == "" {
		t.Fatal("missing X-Request-Id header")
	}
	if env.RequestID != header {
		t.Fatalf("envelope id %q != header id %q", env.RequestID, header)
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials allowed for an exact origin")
	}
}

func TestCORSDeniedOrigin(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin = %q, want empty", got)
	}
}

func TestCORSStaticHeadersAlwaysPresent(t *testing.T) {
	e := newTestEnv(t)

	// methods, headers and max-age reflect the policy regardless of whether
	// the origin matched
	for _, origin := range []string{"", "https://evil.example.com", "https://app.example.com"} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Fatalf("origin %q: missing allow-methods", origin)
		}
		if rec.Header().Get("Access-Control-Allow-Headers") == "" {
			t.Fatalf("origin %q: missing allow-headers", origin)
		}
		if rec.Header().Get("Access-Control-Max-Age") == "" {
			t.Fatalf("origin %q: missing max-age", origin)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/armies", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("missing allow-methods header")
	}
}

func TestWildcardOriginWithoutCredentials(t *testing.T) {
	policy := DefaultCORSPolicy([]string{"*"})
	handler := CORS(policy, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard origin must not allow credentials")
	}
}

func TestEndpointQuotaExceeded(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t)

	// users.update allows five requests per window; the sixth must be
	// rejected before the handler runs
	for i := 0; i < 5; i++ {
		rec, _ := e.do(t, http.MethodPut, "/v1/users/me", token, map[string]any{"username": "Valid_Name"})
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rejected early", i+1)
		}
	}
	rec, env := e.do(t, http.MethodPut, "/v1/users/me", token, map[string]any{"username": "Valid_Name"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if env.Error.Code != "RATE_LIMIT_EXCEEDED" || env.Error.Message != "Rate limit exceeded" {
		t.Fatalf("error = %+v", env.Error)
	}
}

func TestGlobalWindowSharedAcrossEndpoints(t *testing.T) {
	orig := ratelimit.ConfigGlobal
	ratelimit.ConfigGlobal = ratelimit.Config{Window: time.Minute, Max: 3}
	t.Cleanup(func() { ratelimit.ConfigGlobal = orig })
	e := newTestEnv(t)

	// three requests against three different endpoints drain the shared
	// window together
	for _, path := range []string{"/v1/armies", "/v1/game/units", "/v1/auth/status"} {
		rec, _ := e.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
	rec, env := e.do(t, http.MethodGet, "/v1/armies", "", nil)
	if rec.Code != http.StatusTooManyRequests || env.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("fourth request: %d %+v", rec.Code, env.Error)
	}
}

func TestQuotaIsPerEndpoint(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.newUser(t)

	for i := 0; i < 6; i++ {
		_, _ = e.do(t, http.MethodPut, "/v1/users/me", token, map[string]any{"username": "Valid_Name"})
	}
	// profile reads use a separate window and must still pass
	rec, _ := e.do(t, http.MethodGet, "/v1/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read after write quota exhausted: %d", rec.Code)
	}
}

func TestIPBucketsDropIdleEntries(t *testing.T) {
	bs := newIPBuckets(10, 10)
	bs.ttl = 10 * time.Millisecond
	bs.sweepEach = 10 * time.Millisecond

	bs.allow("203.0.113.7")
	bs.allow("203.0.113.8")
	if bs.len() != 2 {
		t.Fatalf("len = %d, want 2", bs.len())
	}

	time.Sleep(25 * time.Millisecond)
	// the next call sweeps the idle entries before admitting the caller
	bs.allow("203.0.113.9")
	if bs.len() != 1 {
		t.Fatalf("len after sweep = %d, want 1", bs.len())
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:9999"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q", got)
	}
	r.Header.Del("X-Forwarded-For")
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}
}
