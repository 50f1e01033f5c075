package httpapi

import (
	"errors"
	"net/http"
	"time"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/auth"
	"clasharmies.app/internal/identity"
)

type loginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// sessionResponse is the token-pair payload shared by login and refresh.
type sessionResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	AccessExpiresAt  string `json:"accessExpiresAt"`
	RefreshExpiresAt string `json:"refreshExpiresAt"`
	User             any    `json:"user"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	session, err := a.auth.Login(r.Context(), req.Credential)
	if err != nil {
		if errors.Is(err, identity.ErrVerificationFailed) {
			return apperr.Unauthorized("GOOGLE_AUTH_FAILED", "Google authentication failed")
		}
		return err
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":  session.User.ID,
		"username": session.User.Username,
	})
	respond(w, r, http.StatusOK, a.sessionPayload(session), "Login successful")
	return nil
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) error {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	session, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRefreshRejected) {
			return apperr.Unauthorized("INVALID_REFRESH_TOKEN", "Refresh token is invalid or revoked")
		}
		return err
	}
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": session.User.ID,
	})
	respond(w, r, http.StatusOK, a.sessionPayload(session), "")
	return nil
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}
	if err := a.auth.Logout(r.Context(), claims.UserID); err != nil {
		return err
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"user_id": claims.UserID,
	})
	respond(w, r, http.StatusOK, nil, "Logged out")
	return nil
}

// authStatus tells the client whether its access token is still good without
// costing a full profile fetch.
func (a *API) authStatus(w http.ResponseWriter, r *http.Request) error {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respond(w, r, http.StatusOK, map[string]any{"authenticated": false}, "")
		return nil
	}

	var expiresAt string
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	respond(w, r, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        claims.UserID,
		"username":      claims.Username,
		"roles":         claims.Roles,
		"expiresAt":     expiresAt,
	}, "")
	return nil
}

func (a *API) sessionPayload(session *auth.Session) sessionResponse {
	return sessionResponse{
		AccessToken:      session.AccessToken,
		RefreshToken:     session.RefreshToken,
		AccessExpiresAt:  session.AccessExpiresAt.UTC().Format(time.RFC3339),
		RefreshExpiresAt: session.RefreshExpiresAt.UTC().Format(time.RFC3339),
		User:             a.transform.User(session.User),
	}
}
