package token

import (
	"context"
	"sync"
	"time"
)

// RefreshMargin is how long before real expiry a cached token is treated
// as stale, so callers never race the 5-minute window.
const RefreshMargin = 30 * time.Second

// Cache memoizes the derived bearer token for a single account and
// serializes refreshes. Each account owns exactly one Cache; refreshes on
// different accounts never block each other.
type Cache struct {
	identity Identity
	source   SecretSource

	mu        sync.RWMutex
	creds     Credentials
	token     string
	expiresAt time.Time
	secret    Secret

	now func() time.Time
}

func NewCache(identity Identity, creds Credentials, source SecretSource) *Cache {
	return &Cache{
		identity: identity,
		creds:    creds,
		source:   source,
		now:      time.Now,
	}
}

// Token returns a bearer token valid for at least RefreshMargin. A stale
// or missing token triggers a refresh under the per-account lock; racing
// callers wait for that refresh instead of starting their own.
func (c *Cache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	if tok, ok := c.freshLocked(c.now()); ok {
		c.mu.RUnlock()
		return tok, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check: another caller may have refreshed while we waited.
	now := c.now()
	if tok, ok := c.freshLocked(now); ok {
		return tok, nil
	}
	return c.refreshLocked(ctx, now)
}

func (c *Cache) freshLocked(now time.Time) (string, bool) {
	if c.token != "" && now.Before(c.expiresAt.Add(-RefreshMargin)) {
		return c.token, true
	}
	return "", false
}

func (c *Cache) refreshLocked(ctx context.Context, now time.Time) (string, error) {
	// The cached key is only reused if the token derived now will expire
	// strictly before the key does.
	if c.secret.Key == "" || !now.Add(Validity+RefreshMargin).Before(c.secret.ExpiresAt) {
		secret, err := c.source.FetchSigningSecret(ctx, c.creds)
		if err != nil {
			c.clearLocked()
			return "", err
		}
		// A fetched key must outlive the token derived from it.
		if !now.Add(Validity).Before(secret.ExpiresAt) {
			c.clearLocked()
			return "", &RefreshError{Reason: "signing key expires before the derived token would"}
		}
		c.secret = secret
	}

	tok, err := Derive(c.secret.Key, c.identity, now)
	if err != nil {
		c.clearLocked()
		return "", err
	}

	c.token = tok
	c.expiresAt = now.Truncate(time.Second).Add(Validity)
	return tok, nil
}

func (c *Cache) clearLocked() {
	c.token = ""
	c.expiresAt = time.Time{}
	c.secret = Secret{}
}

// Invalidate drops the cached token and signing key, forcing the next
// Token call to refresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// UpdateCredentials swaps the session cookies and invalidates everything
// derived from the old ones.
func (c *Cache) UpdateCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
	c.clearLocked()
}

// Status is the observability projection of one account's token state.
type Status struct {
	HasToken  bool  `json:"has_token"`
	Valid     bool  `json:"is_valid"`
	ExpiresIn int64 `json:"expires_in"`
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" {
		return Status{}
	}
	now := c.now()
	remaining := c.expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		HasToken:  true,
		Valid:     now.Before(c.expiresAt),
		ExpiresIn: int64(remaining / time.Second),
	}
}
