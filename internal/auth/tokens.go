package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "clasharmies-app"

	accessSecretEnv  = "APP_JWT_SECRET"
	refreshSecretEnv = "APP_REFRESH_SECRET"

	// AccessTokenTTL bounds how long a stolen bearer credential stays useful.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is the device session lifetime.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// payload, wrong issuer, expiry. Callers treat it as "no token".
var ErrInvalidToken = errors.New("invalid token")

var errMissingSecret = errors.New("token secret is not configured")

// AccessClaims are embedded in access tokens and prove identity for a single
// request.
type AccessClaims struct {
	UserID   int64    `json:"userId"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry the given role.
func (c *AccessClaims) HasRole(role string) bool {
	role = strings.TrimSpace(strings.ToLower(role))
	for _, r := range c.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// RefreshClaims are embedded in refresh tokens. TokenVersion must match the
// user's stored version; bumping the stored version revokes every
// outstanding refresh token at once.
type RefreshClaims struct {
	UserID       int64 `json:"userId"`
	TokenVersion int   `json:"tokenVersion"`
	jwt.RegisteredClaims
}

type cachedSecret struct {
	value []byte
	err   error
	ready bool
}

var (
	secretMu      sync.Mutex
	accessSecret  cachedSecret
	refreshSecret cachedSecret
)

// IssueAccessToken signs a short-lived access token with HS256.
func IssueAccessToken(userID int64, username string, roles []string) (string, time.Time, error) {
	secret, err := loadSecret(accessSecretEnv, &accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(AccessTokenTTL)
	claims := AccessClaims{
		UserID:   userID,
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a refresh token bound to the user's current token
// version.
func IssueRefreshToken(userID int64, tokenVersion int) (string, time.Time, error) {
	secret, err := loadSecret(refreshSecretEnv, &refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(RefreshTokenTTL)
	claims := RefreshClaims{
		UserID:       userID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies signature, issuer and expiry. Failures are
// reported as ErrInvalidToken, never as a panic or a typed JWT error.
func ParseAccessToken(token string) (*AccessClaims, error) {
	secret, err := loadSecret(accessSecretEnv, &accessSecret)
	if err != nil {
		return nil, err
	}
	claims := &AccessClaims{}
	if err := parseInto(token, claims, secret); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken verifies a refresh token with the same contract as
// ParseAccessToken.
func ParseRefreshToken(token string) (*RefreshClaims, error) {
	secret, err := loadSecret(refreshSecretEnv, &refreshSecret)
	if err != nil {
		return nil, err
	}
	claims := &RefreshClaims{}
	if err := parseInto(token, claims, secret); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseInto(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func loadSecret(envVar string, cache *cachedSecret) ([]byte, error) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if cache.ready {
		return cache.value, cache.err
	}
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		cache.err = errMissingSecret
		cache.ready = true
		return nil, cache.err
	}
	cache.value = []byte(raw)
	cache.ready = true
	return cache.value, nil
}

// ResetSecretsForTests clears the cached secrets. Only intended for test use.
func ResetSecretsForTests() {
	secretMu.Lock()
	defer secretMu.Unlock()
	accessSecret = cachedSecret{}
	refreshSecret = cachedSecret{}
}
