package account

import (
	"fmt"
	"time"
)

// Settings are the pool-wide policy knobs, applied together with the
// account list on every configuration reload.
type Settings struct {
	AuthCooldown      time.Duration `json:"-"`
	RateLimitCooldown time.Duration `json:"-"`
	ErrorThreshold    int           `json:"error_threshold"`
	Lifetime          time.Duration `json:"-"`
	ExpiryWarnWindow  time.Duration `json:"-"`
}

func DefaultSettings() Settings {
	return Settings{
		AuthCooldown:      2 * time.Hour,
		RateLimitCooldown: 4 * time.Hour,
		ErrorThreshold:    5,
		Lifetime:          30 * 24 * time.Hour,
		ExpiryWarnWindow:  3 * 24 * time.Hour,
	}
}

// Validate rejects settings outside sane bounds before anything is applied.
func (s Settings) Validate() error {
	if s.AuthCooldown <= 0 || s.AuthCooldown > 24*time.Hour {
		return &ConfigError{Detail: fmt.Sprintf("auth cooldown %s outside (0, 24h]", s.AuthCooldown)}
	}
	if s.RateLimitCooldown <= 0 || s.RateLimitCooldown > 24*time.Hour {
		return &ConfigError{Detail: fmt.Sprintf("rate limit cooldown %s outside (0, 24h]", s.RateLimitCooldown)}
	}
	if s.ErrorThreshold < 1 || s.ErrorThreshold > 100 {
		return &ConfigError{Detail: fmt.Sprintf("error threshold %d outside [1, 100]", s.ErrorThreshold)}
	}
	if s.Lifetime <= 0 || s.Lifetime > 365*24*time.Hour {
		return &ConfigError{Detail: fmt.Sprintf("account lifetime %s outside (0, 365d]", s.Lifetime)}
	}
	if s.ExpiryWarnWindow <= 0 || s.ExpiryWarnWindow >= s.Lifetime {
		return &ConfigError{Detail: fmt.Sprintf("expiry warn window %s must be positive and below the lifetime", s.ExpiryWarnWindow)}
	}
	return nil
}
