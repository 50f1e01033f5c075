// Package httpapi is the app-facing HTTP layer: routing, per-endpoint rate
// quotas, bearer authentication and the response envelope. Handlers return
// errors; the endpoint wrapper classifies and renders them, so status mapping
// lives in exactly one place.
package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/auth"
	"clasharmies.app/internal/domain"
	"clasharmies.app/internal/obs"
	"clasharmies.app/internal/ratelimit"
	"clasharmies.app/internal/transform"
)

// ReadyProbe reports whether the process can serve traffic. A nil DB means
// the in-memory repositories are active and the probe always passes.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Armies     domain.ArmyRepository
	Users      domain.UserRepository
	Auth       *auth.Service
	Limiter    *ratelimit.Limiter
	Transform  transform.Transformer
	ReadyProbe ReadyProbe
	CORS       CORSPolicy
	Version    string
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	armies    domain.ArmyRepository
	users     domain.UserRepository
	auth      *auth.Service
	limiter   *ratelimit.Limiter
	transform transform.Transformer
	ready     ReadyProbe
	cors      CORSPolicy
	version   string
}

func New(deps Deps) *API {
	a := &API{
		mux:       http.NewServeMux(),
		armies:    deps.Armies,
		users:     deps.Users,
		auth:      deps.Auth,
		limiter:   deps.Limiter,
		transform: deps.Transform,
		ready:     deps.ReadyProbe,
		cors:      deps.CORS,
		version:   deps.Version,
	}

	// armies
	a.mux.HandleFunc("GET /v1/armies", a.endpoint("armies.list", ratelimit.ConfigRead, authOptional, a.listArmies))
	a.mux.HandleFunc("POST /v1/armies", a.endpoint("armies.create", ratelimit.ConfigMutation, authRequired, a.createArmy))
	a.mux.HandleFunc("GET /v1/armies/{id}", a.endpoint("armies.get", ratelimit.ConfigDetail, authOptional, a.getArmy))
	a.mux.HandleFunc("PUT /v1/armies/{id}", a.endpoint("armies.update", ratelimit.ConfigMutation, authRequired, a.updateArmy))
	a.mux.HandleFunc("DELETE /v1/armies/{id}", a.endpoint("armies.delete", ratelimit.ConfigMutation, authRequired, a.deleteArmy))

	// votes and bookmarks
	a.mux.HandleFunc("POST /v1/armies/{id}/like", a.endpoint("armies.like", ratelimit.ConfigVote, authRequired, a.likeArmy))
	a.mux.HandleFunc("DELETE /v1/armies/{id}/like", a.endpoint("armies.unlike", ratelimit.ConfigVote, authRequired, a.unlikeArmy))
	a.mux.HandleFunc("POST /v1/armies/{id}/dislike", a.endpoint("armies.dislike", ratelimit.ConfigVote, authRequired, a.dislikeArmy))
	a.mux.HandleFunc("DELETE /v1/armies/{id}/dislike", a.endpoint("armies.undislike", ratelimit.ConfigVote, authRequired, a.undislikeArmy))
	a.mux.HandleFunc("POST /v1/armies/{id}/bookmark", a.endpoint("armies.bookmark", ratelimit.ConfigVote, authRequired, a.bookmarkArmy))
	a.mux.HandleFunc("DELETE /v1/armies/{id}/bookmark", a.endpoint("armies.unbookmark", ratelimit.ConfigVote, authRequired, a.unbookmarkArmy))
	a.mux.HandleFunc("GET /v1/armies/bookmarked", a.endpoint("armies.bookmarked", ratelimit.ConfigList, authRequired, a.bookmarkedArmies))

	// comments
	a.mux.HandleFunc("GET /v1/armies/{id}/comments", a.endpoint("comments.list", ratelimit.ConfigRead, authNone, a.listComments))
	a.mux.HandleFunc("POST /v1/armies/{id}/comments", a.endpoint("comments.create", ratelimit.ConfigMutation, authRequired, a.createComment))
	a.mux.HandleFunc("DELETE /v1/armies/{id}/comments", a.endpoint("comments.delete", ratelimit.ConfigMutation, authRequired, a.deleteComment))

	// auth
	a.mux.HandleFunc("POST /v1/auth/login", a.endpoint("auth.login", ratelimit.ConfigAuth, authNone, a.login))
	a.mux.HandleFunc("POST /v1/auth/refresh", a.endpoint("auth.refresh", ratelimit.ConfigAuth, authNone, a.refresh))
	a.mux.HandleFunc("POST /v1/auth/logout", a.endpoint("auth.logout", ratelimit.ConfigAuth, authRequired, a.logout))
	a.mux.HandleFunc("GET /v1/auth/status", a.endpoint("auth.status", ratelimit.ConfigRead, authOptional, a.authStatus))

	// profile and reference data
	a.mux.HandleFunc("GET /v1/users/me", a.endpoint("users.me", ratelimit.ConfigList, authRequired, a.getProfile))
	a.mux.HandleFunc("PUT /v1/users/me", a.endpoint("users.update", ratelimit.ConfigProfile, authRequired, a.updateProfile))
	a.mux.HandleFunc("GET /v1/game/units", a.endpoint("game.units", ratelimit.ConfigList, authNone, a.gameUnits))

	// health/ready/metrics
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, errRouteNotFound)
	})

	return a
}

// Handler wraps the mux with the shared middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = GlobalRateLimit(h, 10, 50)
	h = CORS(a.cors, h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// endpoint builds the per-route wrapper: quota check, authentication, then
// the handler. Handler errors are classified into the envelope.
func (a *API) endpoint(name string, quota ratelimit.Config, mode authMode, fn func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				fail(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()

		if a.limiter != nil {
			ip := clientIP(r)
			// one shared window across every v1 endpoint, then the
			// endpoint's own quota
			if err := a.limiter.Allow(r.Context(), ip, "global", ratelimit.ConfigGlobal); err != nil {
				fail(w, r, err)
				return
			}
			if err := a.limiter.Allow(r.Context(), ip, name, quota); err != nil {
				fail(w, r, err)
				return
			}
		}

		if mode != authNone {
			var err error
			r, err = authenticate(r, mode == authRequired)
			if err != nil {
				fail(w, r, err)
				return
			}
		}

		if err := fn(w, r); err != nil {
			fail(w, r, err)
		}
	}
}

// --- health ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "clasharmies-api",
		"version": a.version,
	}, "")
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		writeEnvelope(w, http.StatusServiceUnavailable, Envelope{
			Success: false,
			Error: &apperr.Error{
				Code:    "NOT_READY",
				Message: "Service is not ready",
				Status:  http.StatusServiceUnavailable,
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: requestID(r),
		})
		return
	}
	obs.SetReady(true)
	respond(w, r, http.StatusOK, map[string]any{"status": "ready"}, "")
}
