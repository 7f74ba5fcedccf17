package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gembiz2api/gateway/internal/account"
)

func writeAccountsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadAccounts_Valid(t *testing.T) {
	path := writeAccountsFile(t, `{
  "settings": {
    "auth_cooldown_seconds": 3600,
    "rate_limit_cooldown_seconds": 7200,
    "error_threshold": 3,
    "account_lifetime_days": 14,
    "expiry_warn_days": 2
  },
  "accounts": [
    {
      "email": "a@example.com",
      "team_id": "team-a",
      "secure_c_ses": "ses-a",
      "host_c_oses": "oses-a",
      "csesidx": "idx-a",
      "user_agent": "ua",
      "created_at": "2026-08-01T00:00:00Z"
    },
    {
      "email": "b@example.com",
      "team_id": "team-b",
      "secure_c_ses": "ses-b",
      "host_c_oses": "oses-b",
      "csesidx": "idx-b",
      "user_agent": "ua",
      "created_at": "2026-08-10T08:30:00+02:00",
      "expires_at": "2026-09-10T00:00:00Z"
    }
  ]
}`)

	defs, settings, err := LoadAccounts(path)
	if err != nil {
		t.Fatalf("LoadAccounts error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("definitions: got %d want 2", len(defs))
	}
	if defs[0].TeamID != "team-a" || defs[1].TeamID != "team-b" {
		t.Fatalf("unexpected team ids: %q %q", defs[0].TeamID, defs[1].TeamID)
	}
	if want := time.Date(2026, 8, 10, 6, 30, 0, 0, time.UTC); !defs[1].CreatedAt.Equal(want) {
		t.Fatalf("created_at offset handling: got %v want %v", defs[1].CreatedAt, want)
	}
	if defs[1].ExpiresAt.IsZero() {
		t.Fatalf("explicit expires_at was dropped")
	}

	if settings.AuthCooldown != time.Hour {
		t.Fatalf("auth cooldown: got %s want 1h", settings.AuthCooldown)
	}
	if settings.RateLimitCooldown != 2*time.Hour {
		t.Fatalf("rate limit cooldown: got %s want 2h", settings.RateLimitCooldown)
	}
	if settings.ErrorThreshold != 3 {
		t.Fatalf("error threshold: got %d want 3", settings.ErrorThreshold)
	}
	if settings.Lifetime != 14*24*time.Hour {
		t.Fatalf("lifetime: got %s want 336h", settings.Lifetime)
	}
}

func TestLoadAccounts_DefaultSettings(t *testing.T) {
	path := writeAccountsFile(t, `{
  "accounts": [
    {
      "email": "a@example.com",
      "team_id": "team-a",
      "secure_c_ses": "ses-a",
      "host_c_oses": "oses-a",
      "csesidx": "idx-a",
      "user_agent": "ua",
      "created_at": "2026-08-01T00:00:00Z"
    }
  ]
}`)

	_, settings, err := LoadAccounts(path)
	if err != nil {
		t.Fatalf("LoadAccounts error: %v", err)
	}
	if settings != account.DefaultSettings() {
		t.Fatalf("missing settings block should yield defaults, got %+v", settings)
	}
}

func TestLoadAccounts_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"accounts": [`},
		{"no accounts", `{"accounts": []}`},
		{"missing field", `{"accounts": [{"email": "a@example.com", "team_id": "team-a", "created_at": "2026-08-01T00:00:00Z"}]}`},
		{"bad timestamp", `{"accounts": [{"email": "a@example.com", "team_id": "team-a", "secure_c_ses": "s", "host_c_oses": "h", "csesidx": "i", "user_agent": "u", "created_at": "01/08/2026"}]}`},
		{"bad settings", `{"settings": {"error_threshold": 1000}, "accounts": [{"email": "a@example.com", "team_id": "team-a", "secure_c_ses": "s", "host_c_oses": "h", "csesidx": "i", "user_agent": "u", "created_at": "2026-08-01T00:00:00Z"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeAccountsFile(t, tc.content)
			_, _, err := LoadAccounts(path)
			var cfgErr *account.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *account.ConfigError, got %v", err)
			}
		})
	}
}

func TestLoadAccounts_MissingFile(t *testing.T) {
	_, _, err := LoadAccounts(filepath.Join(t.TempDir(), "nope.json"))
	var cfgErr *account.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *account.ConfigError for missing file, got %v", err)
	}
}
