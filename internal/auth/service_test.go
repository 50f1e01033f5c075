package auth

import (
	"context"
	"errors"
	"testing"

	"clasharmies.app/internal/domain"
	"clasharmies.app/internal/identity"
)

func newLoginService(t *testing.T) (*Service, *domain.InMemory) {
	t.Helper()
	setSecrets(t)
	repo := domain.NewInMemory()
	verifier := &identity.Static{Identities: map[string]*identity.Payload{
		"good-credential": {Subject: "goog-1", Email: "one@example.com"},
	}}
	return NewService(repo, verifier), repo
}

func TestLoginCreatesUserOnFirstSight(t *testing.T) {
	svc, repo := newLoginService(t)

	session, err := svc.Login(context.Background(), "good-credential")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if session.User.Username == "" {
		t.Fatal("expected a generated username")
	}

	again, err := svc.Login(context.Background(), "good-credential")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.User.ID != session.User.ID {
		t.Fatalf("second login created a new user: %d vs %d", again.User.ID, session.User.ID)
	}

	user, err := repo.FindByGoogleID(context.Background(), "goog-1")
	if err != nil {
		t.Fatalf("FindByGoogleID: %v", err)
	}
	if user.TokenVersion != 1 {
		t.Fatalf("token version = %d, want 1", user.TokenVersion)
	}
}

func TestLoginRejectsBadCredential(t *testing.T) {
	svc, _ := newLoginService(t)

	if _, err := svc.Login(context.Background(), "bogus"); !errors.Is(err, identity.ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}
}

func TestRefreshIssuesNewPair(t *testing.T) {
	svc, _ := newLoginService(t)

	session, err := svc.Login(context.Background(), "good-credential")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	refreshed, err := svc.Refresh(context.Background(), session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.User.ID != session.User.ID {
		t.Fatal("refresh switched users")
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}
}

func TestLogoutRevokesOutstandingRefreshTokens(t *testing.T) {
	svc, _ := newLoginService(t)

	session, err := svc.Login(context.Background(), "good-credential")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(context.Background(), session.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("err = %v, want ErrRefreshRejected", err)
	}
}

func TestRefreshAfterNewLoginStillWorks(t *testing.T) {
	// a fresh login does not revoke other devices; only logout bumps the
	// version
	svc, _ := newLoginService(t)

	first, err := svc.Login(context.Background(), "good-credential")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Login(context.Background(), "good-credential"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc, _ := newLoginService(t)

	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
