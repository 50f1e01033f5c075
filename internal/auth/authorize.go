package auth

import (
	"context"

	"clasharmies.app/internal/apperr"
)

// RequireAuthenticated returns the verified claims or an unauthenticated
// failure ready for transport rendering.
func RequireAuthenticated(ctx context.Context) (*AccessClaims, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, apperr.Unauthorized(apperr.CodeUnauthorized, "Authentication required")
	}
	return claims, nil
}

// RequireRole additionally checks role membership.
func RequireRole(ctx context.Context, role string) (*AccessClaims, error) {
	claims, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !claims.HasRole(role) {
		return nil, apperr.Forbidden(apperr.CodeForbidden, "Insufficient permissions")
	}
	return claims, nil
}

// RequireOwner additionally checks the caller owns the resource.
func RequireOwner(ctx context.Context, resourceUserID int64) (*AccessClaims, error) {
	claims, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if claims.UserID != resourceUserID {
		return nil, apperr.Forbidden(apperr.CodeForbidden, "Access denied")
	}
	return claims, nil
}
