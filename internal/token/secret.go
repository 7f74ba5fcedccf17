package token

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsonpkg "gembiz2api/gateway/internal/pkg/json"
)

// DefaultSecretTTL bounds how long a fetched signing key is reused. It must
// stay comfortably above Validity+RefreshMargin so every token derived from
// a cached key expires strictly before the key itself does.
const DefaultSecretTTL = 30 * time.Minute

// Credentials is the cookie material needed to fetch a signing secret.
type Credentials struct {
	SecureSES    string // __Secure-c-SES
	HostOSES     string // __Host-c-OSES
	SessionIndex string // csesidx
	UserAgent    string
}

// Secret is a fetched signing key with its own usable lifetime.
type Secret struct {
	Key       string // base64-encoded HMAC key
	KeyID     string
	ExpiresAt time.Time
}

// SecretSource fetches a signing secret for one account's session.
type SecretSource interface {
	FetchSigningSecret(ctx context.Context, creds Credentials) (Secret, error)
}

// RefreshError reports a failed signing-secret fetch. Callers translate
// auth rejections into an account cooldown.
type RefreshError struct {
	Status int
	Reason string
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("token refresh failed (HTTP %d): %s", e.Status, e.Reason)
	}
	return "token refresh failed: " + e.Reason
}

// AuthRejected reports whether the upstream refused the session cookies.
func (e *RefreshError) AuthRejected() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// HTTPSecretSource fetches signing secrets from the auth endpoint
// ({base}/auth/getoxsrf). The endpoint returns a base64 HMAC key and a key
// id; the bearer token itself is never sent over the wire.
type HTTPSecretSource struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
}

func NewHTTPSecretSource(baseURL string, client *http.Client) *HTTPSecretSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSecretSource{baseURL: baseURL, client: client, ttl: DefaultSecretTTL}
}

type secretResponse struct {
	XSRFToken string `json:"xsrfToken"`
	KeyID     string `json:"keyId"`
}

func (s *HTTPSecretSource) FetchSigningSecret(ctx context.Context, creds Credentials) (Secret, error) {
	reqURL := s.baseURL + "/auth/getoxsrf?csesidx=" + url.QueryEscape(creds.SessionIndex)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Secret{}, &RefreshError{Reason: err.Error()}
	}
	req.Header.Set("Cookie", fmt.Sprintf("__Secure-c-SES=%s; csesidx=%s", creds.SecureSES, creds.SessionIndex))
	req.Header.Set("User-Agent", creds.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Secret{}, &RefreshError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Secret{}, &RefreshError{Reason: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return Secret{}, &RefreshError{Status: resp.StatusCode, Reason: string(body)}
	}

	var out secretResponse
	if err := jsonpkg.Unmarshal(body, &out); err != nil {
		return Secret{}, &RefreshError{Reason: "malformed getoxsrf response: " + err.Error()}
	}
	if out.XSRFToken == "" {
		return Secret{}, &RefreshError{Reason: "xsrfToken missing from getoxsrf response"}
	}

	return Secret{
		Key:       out.XSRFToken,
		KeyID:     out.KeyID,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}
