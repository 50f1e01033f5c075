package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"clasharmies.app/internal/apperr"
)

func ctxWith(userID int64, roles ...string) context.Context {
	return ContextWithClaims(context.Background(), &AccessClaims{UserID: userID, Roles: roles})
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	return appErr.Status
}

func TestRequireAuthenticated(t *testing.T) {
	if _, err := RequireAuthenticated(context.Background()); statusOf(t, err) != http.StatusUnauthorized {
		t.Fatalf("anonymous context: want 401, got %v", err)
	}

	claims, err := RequireAuthenticated(ctxWith(7, "user"))
	if err != nil {
		t.Fatalf("authenticated context: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("claims.UserID = %d, want 7", claims.UserID)
	}
}

func TestRequireRole(t *testing.T) {
	if _, err := RequireRole(ctxWith(7, "user"), "admin"); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("missing role: want 403, got %v", err)
	}
	if _, err := RequireRole(ctxWith(7, "user", "Admin"), "admin"); err != nil {
		t.Fatalf("role match is case-insensitive: %v", err)
	}
	if _, err := RequireRole(context.Background(), "admin"); statusOf(t, err) != http.StatusUnauthorized {
		t.Fatalf("anonymous context: want 401, got %v", err)
	}
}

func TestRequireOwner(t *testing.T) {
	if _, err := RequireOwner(ctxWith(7), 7); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := RequireOwner(ctxWith(7), 8); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("non-owner: want 403, got %v", err)
	}
}
