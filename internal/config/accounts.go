package config

import (
	"fmt"
	"os"
	"time"

	"gembiz2api/gateway/internal/account"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
)

// accountsFile mirrors the on-disk accounts.json layout. Timestamps travel
// as ISO 8601 strings; settings are optional and fall back to defaults.
type accountsFile struct {
	Settings *settingsJSON  `json:"settings,omitempty"`
	Accounts []accountEntry `json:"accounts"`
}

type accountEntry struct {
	Email        string `json:"email"`
	TeamID       string `json:"team_id"`
	SecureSES    string `json:"secure_c_ses"`
	HostOSES     string `json:"host_c_oses"`
	SessionIndex string `json:"csesidx"`
	UserAgent    string `json:"user_agent"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

type settingsJSON struct {
	AuthCooldownSeconds      int `json:"auth_cooldown_seconds,omitempty"`
	RateLimitCooldownSeconds int `json:"rate_limit_cooldown_seconds,omitempty"`
	ErrorThreshold           int `json:"error_threshold,omitempty"`
	AccountLifetimeDays      int `json:"account_lifetime_days,omitempty"`
	ExpiryWarnDays           int `json:"expiry_warn_days,omitempty"`
}

// LoadAccounts reads and validates the account configuration. Any
// violation is reported as *account.ConfigError and nothing is returned,
// so a caller never applies a half-valid file.
func LoadAccounts(path string) ([]account.Definition, account.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, account.Settings{}, &account.ConfigError{Detail: fmt.Sprintf("read %s: %v", path, err)}
	}

	var file accountsFile
	if err := jsonpkg.Unmarshal(data, &file); err != nil {
		return nil, account.Settings{}, &account.ConfigError{Detail: fmt.Sprintf("parse %s: %v", path, err)}
	}

	defs := make([]account.Definition, 0, len(file.Accounts))
	for i, entry := range file.Accounts {
		if entry.UserAgent == "" {
			entry.UserAgent = Get().UserAgent
		}
		createdAt, err := parseTimestamp(entry.CreatedAt)
		if err != nil {
			return nil, account.Settings{}, &account.ConfigError{Detail: fmt.Sprintf("account #%d: created_at: %v", i+1, err)}
		}
		expiresAt, err := parseTimestamp(entry.ExpiresAt)
		if err != nil {
			return nil, account.Settings{}, &account.ConfigError{Detail: fmt.Sprintf("account #%d: expires_at: %v", i+1, err)}
		}
		defs = append(defs, account.Definition{
			Email:        entry.Email,
			TeamID:       entry.TeamID,
			SecureSES:    entry.SecureSES,
			HostOSES:     entry.HostOSES,
			SessionIndex: entry.SessionIndex,
			UserAgent:    entry.UserAgent,
			CreatedAt:    createdAt,
			ExpiresAt:    expiresAt,
		})
	}

	settings := account.DefaultSettings()
	if s := file.Settings; s != nil {
		if s.AuthCooldownSeconds > 0 {
			settings.AuthCooldown = time.Duration(s.AuthCooldownSeconds) * time.Second
		}
		if s.RateLimitCooldownSeconds > 0 {
			settings.RateLimitCooldown = time.Duration(s.RateLimitCooldownSeconds) * time.Second
		}
		if s.ErrorThreshold > 0 {
			settings.ErrorThreshold = s.ErrorThreshold
		}
		if s.AccountLifetimeDays > 0 {
			settings.Lifetime = time.Duration(s.AccountLifetimeDays) * 24 * time.Hour
		}
		if s.ExpiryWarnDays > 0 {
			settings.ExpiryWarnWindow = time.Duration(s.ExpiryWarnDays) * 24 * time.Hour
		}
	}

	if err := account.ValidateDefinitions(defs); err != nil {
		return nil, account.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return nil, account.Settings{}, err
	}

	return defs, settings, nil
}

// parseTimestamp accepts RFC 3339 with either a Z suffix or a numeric
// offset. Empty input is the zero time (field absent).
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an ISO 8601 timestamp: %q", s)
	}
	return t.UTC(), nil
}
