package common

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/token"
	"gembiz2api/gateway/internal/upstream"
)

type stubSource struct{}

func (stubSource) FetchSigningSecret(context.Context, token.Credentials) (token.Secret, error) {
	return token.Secret{
		Key:       base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")),
		ExpiresAt: time.Now().Add(token.DefaultSecretTTL),
	}, nil
}

func newRotationPool(t *testing.T, n int) *account.Pool {
	t.Helper()
	defs := make([]account.Definition, 0, n)
	for i := 1; i <= n; i++ {
		defs = append(defs, account.Definition{
			Email:        fmt.Sprintf("user%d@example.com", i),
			TeamID:       fmt.Sprintf("team-%d", i),
			SecureSES:    "ses",
			HostOSES:     "oses",
			SessionIndex: "idx",
			UserAgent:    "ua",
			CreatedAt:    time.Now(),
		})
	}
	p := account.NewPool(stubSource{}, account.DefaultSettings())
	if _, err := p.Apply(defs, account.DefaultSettings()); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	return p
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want account.Outcome
	}{
		{nil, account.OutcomeSuccess},
		{&token.RefreshError{Status: 401}, account.OutcomeAuthError},
		{&token.RefreshError{Status: 403}, account.OutcomeAuthError},
		{&token.RefreshError{Status: 500}, account.OutcomeOtherError},
		{fmt.Errorf("wrap: %w", token.ErrInvalidSecret), account.OutcomeAuthError},
		{&upstream.APIError{Status: 401}, account.OutcomeAuthError},
		{&upstream.APIError{Status: 429}, account.OutcomeRateLimited},
		{&upstream.APIError{Status: 500}, account.OutcomeOtherError},
		{errors.New("connection reset"), account.OutcomeOtherError},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v): got %v want %v", tc.err, got, tc.want)
		}
	}
}

func TestDoWithRotation_RetriesOnRateLimit(t *testing.T) {
	pool := newRotationPool(t, 3)

	var used []string
	got, err := DoWithRotation(context.Background(), pool, 3, func(lease *account.Lease, bearer string) (string, error) {
		used = append(used, lease.AccountID)
		if bearer == "" {
			t.Fatalf("empty bearer token for %s", lease.AccountID)
		}
		if len(used) < 3 {
			return "", &upstream.APIError{Status: 429, Message: "slow down"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("DoWithRotation error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("result: got %q want %q", got, "ok")
	}
	if len(used) != 3 || used[0] == used[1] || used[1] == used[2] {
		t.Fatalf("expected three distinct accounts, got %v", used)
	}

	// Both rate-limited accounts are now cooling down.
	stats := pool.Stats()
	if stats.Cooldown != 2 || stats.Active != 1 {
		t.Fatalf("pool state after rotation: %+v", stats)
	}
}

func TestDoWithRotation_RequestErrorDoesNotRotate(t *testing.T) {
	pool := newRotationPool(t, 3)

	calls := 0
	_, err := DoWithRotation(context.Background(), pool, 3, func(*account.Lease, string) (string, error) {
		calls++
		return "", &upstream.APIError{Status: 500, Message: "boom"}
	})
	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *upstream.APIError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("request-level failure should not rotate, got %d calls", calls)
	}
}

func TestDoWithRotation_AllAccountsExhausted(t *testing.T) {
	pool := newRotationPool(t, 2)

	_, err := DoWithRotation(context.Background(), pool, 5, func(*account.Lease, string) (string, error) {
		return "", &upstream.APIError{Status: 401, Message: "no"}
	})
	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected the last upstream error, got %v", err)
	}
}

func TestDoWithRotation_EmptyPool(t *testing.T) {
	pool := account.NewPool(stubSource{}, account.DefaultSettings())

	_, err := DoWithRotation(context.Background(), pool, 3, func(*account.Lease, string) (string, error) {
		t.Fatalf("op must not run without an account")
		return "", nil
	})
	if !errors.Is(err, account.ErrNoAvailableAccounts) {
		t.Fatalf("expected ErrNoAvailableAccounts, got %v", err)
	}
}
