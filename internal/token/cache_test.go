package token

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubSource struct {
	mu      sync.Mutex
	fetches int32
	secret  Secret
	err     error
}

func (s *stubSource) FetchSigningSecret(context.Context, Credentials) (Secret, error) {
	atomic.AddInt32(&s.fetches, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Secret{}, s.err
	}
	return s.secret, nil
}

func (s *stubSource) count() int32 { return atomic.LoadInt32(&s.fetches) }

func newTestCache(src SecretSource, now func() time.Time) *Cache {
	c := NewCache(testIdentity, Credentials{SessionIndex: "idx", SecureSES: "ses", HostOSES: "oses", UserAgent: "ua"}, src)
	c.now = now
	return c
}

func encodedKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestCacheToken_Memoizes(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{secret: Secret{Key: encodedKey(), ExpiresAt: base.Add(DefaultSecretTTL)}}
	c := newTestCache(src, func() time.Time { return base })

	tok1, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	tok2, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if tok1 != tok2 {
		t.Fatalf("cached token changed between calls")
	}
	if got := src.count(); got != 1 {
		t.Fatalf("expected a single secret fetch, got %d", got)
	}
}

func TestCacheToken_RefreshesNearExpiry(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{secret: Secret{Key: encodedKey(), ExpiresAt: base.Add(DefaultSecretTTL)}}

	now := base
	c := newTestCache(src, func() time.Time { return now })

	tok1, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}

	// Inside the refresh margin the cached token must not be reused.
	now = base.Add(Validity - RefreshMargin + time.Second)
	tok2, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if tok1 == tok2 {
		t.Fatalf("stale token was reused inside the refresh margin")
	}
	// The signing key is still usable, so no second fetch.
	if got := src.count(); got != 1 {
		t.Fatalf("expected the cached key to be reused, got %d fetches", got)
	}
}

func TestCacheToken_RefetchesExpiredKey(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{secret: Secret{Key: encodedKey(), ExpiresAt: base.Add(DefaultSecretTTL)}}

	now := base
	c := newTestCache(src, func() time.Time { return now })

	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token error: %v", err)
	}

	// Move past the key's lifetime: deriving again must fetch a new key.
	now = base.Add(DefaultSecretTTL)
	src.mu.Lock()
	src.secret = Secret{Key: encodedKey(), ExpiresAt: now.Add(DefaultSecretTTL)}
	src.mu.Unlock()

	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if got := src.count(); got != 2 {
		t.Fatalf("expected a key refetch after TTL, got %d fetches", got)
	}
}

func TestCacheToken_SingleRefreshUnderContention(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{secret: Secret{Key: encodedKey(), ExpiresAt: base.Add(DefaultSecretTTL)}}
	c := newTestCache(src, func() time.Time { return base })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Token(context.Background()); err != nil {
				t.Errorf("Token error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.count(); got != 1 {
		t.Fatalf("concurrent callers triggered %d fetches, want 1", got)
	}
}

func TestCacheToken_ShortLivedKeyRejected(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{secret: Secret{Key: encodedKey(), ExpiresAt: base.Add(time.Minute)}}
	c := newTestCache(src, func() time.Time { return base })

	_, err := c.Token(context.Background())
	refreshErr, ok := err.(*RefreshError)
	if !ok {
		t.Fatalf("expected *RefreshError for a key shorter than the token lifetime, got %v", err)
	}
	if refreshErr.AuthRejected() {
		t.Fatalf("short-lived key is not an auth rejection")
	}
	if st := c.Status(); st.HasToken {
		t.Fatalf("token derived from an unusable key")
	}
}

func TestCacheToken_FetchFailurePropagates(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{err: &RefreshError{Status: 401, Reason: "cookie rejected"}}
	c := newTestCache(src, func() time.Time { return base })

	_, err := c.Token(context.Background())
	refreshErr, ok := err.(*RefreshError)
	if !ok {
		t.Fatalf("expected *RefreshError, got %v", err)
	}
	if !refreshErr.AuthRejected() {
		t.Fatalf("401 should report auth rejection")
	}
	if st := c.Status(); st.HasToken {
		t.Fatalf("failed refresh left a token behind")
	}
}

func TestCacheUpdateCredentials_Invalidates(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	src := &stubSource{secret: Secret{Key: encodedKey(), ExpiresAt: base.Add(DefaultSecretTTL)}}
	c := newTestCache(src, func() time.Time { return base })

	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	c.UpdateCredentials(Credentials{SessionIndex: "idx2", SecureSES: "ses2", HostOSES: "oses2", UserAgent: "ua"})
	if st := c.Status(); st.HasToken {
		t.Fatalf("credential change did not drop the cached token")
	}
	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if got := src.count(); got != 2 {
		t.Fatalf("expected a fresh fetch after credential change, got %d", got)
	}
}
