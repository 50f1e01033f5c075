package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clasharmies.app/internal/domain"
	"clasharmies.app/internal/identity"
)

// ErrRefreshRejected indicates a refresh token that is syntactically valid
// but revoked: its embedded version no longer matches the stored one.
var ErrRefreshRejected = errors.New("refresh token rejected")

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	User             domain.User
}

// Service drives the identity-provider login flow: credential in, local user
// looked up or created, token pair out.
type Service struct {
	users    domain.UserRepository
	verifier identity.Verifier
}

// NewService wires the login flow to its collaborators.
func NewService(users domain.UserRepository, verifier identity.Verifier) *Service {
	return &Service{users: users, verifier: verifier}
}

// Login exchanges an identity-provider credential for a token pair, creating
// the local account on first sight. No partial user record survives a
// failure: creation and role assignment are one repository call.
func (s *Service) Login(ctx context.Context, credential string) (*Session, error) {
	payload, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByGoogleID(ctx, payload.Subject)
	switch {
	case err == nil:
		if user.GoogleEmail != payload.Email {
			if err := s.users.UpdateGoogleEmail(ctx, user.ID, payload.Email); err != nil {
				return nil, fmt.Errorf("update email: %w", err)
			}
			user.GoogleEmail = payload.Email
		}
	case errors.Is(err, domain.ErrUserNotFound):
		user = &domain.User{
			GoogleID:     payload.Subject,
			GoogleEmail:  payload.Email,
			Roles:        []string{"user"},
			TokenVersion: 1,
		}
		if _, err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return s.issuePair(user)
}

// Refresh exchanges a valid refresh token for a new token pair. The embedded
// token version must match the stored one; otherwise the token was revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrRefreshRejected
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrRefreshRejected
	}

	return s.issuePair(user)
}

// Logout bumps the stored token version, revoking every outstanding refresh
// token for the user.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if _, err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return nil
}

func (s *Service) issuePair(user *domain.User) (*Session, error) {
	access, accessExp, err := IssueAccessToken(user.ID, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := IssueRefreshToken(user.ID, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		User:             *user,
	}, nil
}
