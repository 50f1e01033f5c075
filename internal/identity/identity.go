// Package identity verifies external identity-provider credentials. The
// provider protocol is opaque to the rest of the system: callers hand in the
// raw credential and receive a verified identity or a rejection.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrVerificationFailed indicates the credential was rejected by the
// provider or failed a local consistency check.
var ErrVerificationFailed = errors.New("identity verification failed")

// Payload is the verified identity extracted from a provider credential.
type Payload struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	GivenName     string
	FamilyName    string
}

// Verifier validates a raw identity-provider credential.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Payload, error)
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google ID tokens against the tokeninfo endpoint
// and checks the audience matches the configured client id.
type GoogleVerifier struct {
	ClientID string
	Client   *http.Client
	Endpoint string
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier builds a verifier for the given OAuth client id.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		ClientID: clientID,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Endpoint: googleTokenInfoURL,
	}
}

type tokenInfoResponse struct {
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Payload, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrVerificationFailed
	}
	// without a configured audience a token minted for any other
	// application would pass; fail closed instead
	if v.ClientID == "" {
		return nil, ErrVerificationFailed
	}

	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = googleTokenInfoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint+"?id_token="+url.QueryEscape(credential), nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrVerificationFailed
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, ErrVerificationFailed
	}
	if info.Sub == "" || info.Email == "" {
		return nil, ErrVerificationFailed
	}
	if info.Aud != v.ClientID {
		return nil, ErrVerificationFailed
	}
	if info.EmailVerified != "true" {
		return nil, ErrVerificationFailed
	}

	return &Payload{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: true,
		Name:          info.Name,
		Picture:       info.Picture,
		GivenName:     info.GivenName,
		FamilyName:    info.FamilyName,
	}, nil
}

// Static is a test double mapping credentials to fixed payloads.
type Static struct {
	Identities map[string]*Payload
}

var _ Verifier = (*Static)(nil)

func (s *Static) Verify(ctx context.Context, credential string) (*Payload, error) {
	if p, ok := s.Identities[credential]; ok {
		return p, nil
	}
	return nil, ErrVerificationFailed
}
