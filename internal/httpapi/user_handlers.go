package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/auth"
	"clasharmies.app/internal/domain"
)

type updateProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,handle"`
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}
	user, err := a.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// token outlived the account
			return apperr.Unauthorized(apperr.CodeUnauthorized, "Authentication required")
		}
		return err
	}
	respond(w, r, http.StatusOK, a.transform.User(*user), "")
	return nil
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return err
	}

	if err := a.users.UpdateUsername(r.Context(), claims.UserID, req.Username); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperr.Unauthorized(apperr.CodeUnauthorized, "Authentication required")
		}
		return err
	}
	_ = audit.LogEvent(r.Context(), "user.update_username", map[string]any{
		"username": req.Username,
	})

	user, err := a.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		return err
	}
	respond(w, r, http.StatusOK, a.transform.User(*user), "Profile updated")
	return nil
}
