package account

import (
	"sync"
	"time"

	"gembiz2api/gateway/internal/token"
)

// Status is the exclusive lifecycle state of an account. ExpiringSoon is
// deliberately not a Status: it is an advisory flag computed on read and an
// expiring-soon account stays selectable.
type Status string

const (
	StatusActive            Status = "active"
	StatusCooldownAuth      Status = "cooldown_auth"
	StatusCooldownRateLimit Status = "cooldown_rate_limited"
	StatusError             Status = "error"
	StatusExpired           Status = "expired"
)

func (s Status) inCooldown() bool {
	return s == StatusCooldownAuth || s == StatusCooldownRateLimit
}

// Account is one upstream identity: its session cookies, the token cache
// derived from them, and its runtime bookkeeping. Static fields are guarded
// by the pool lock (mutated only during Apply); runtime fields by mu.
type Account struct {
	id        string // team id, the stable join key across reloads
	email     string
	creds     token.Credentials
	createdAt time.Time
	expiresAt time.Time // zero means createdAt + settings.Lifetime

	tokens *token.Cache

	mu                sync.Mutex
	status            Status
	cooldownUntil     time.Time
	requestCount      int64
	failureCount      int64
	consecutiveErrors int
	lastUsedAt        time.Time
}

func (a *Account) ID() string { return a.id }

func (a *Account) effectiveExpiry(lifetime time.Duration) time.Time {
	if !a.expiresAt.IsZero() {
		return a.expiresAt
	}
	return a.createdAt.Add(lifetime)
}

func (a *Account) isExpired(now time.Time, lifetime time.Duration) bool {
	return !now.Before(a.effectiveExpiry(lifetime))
}

func (a *Account) remaining(now time.Time, lifetime time.Duration) time.Duration {
	r := a.effectiveExpiry(lifetime).Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

func (a *Account) remainingDays(now time.Time, lifetime time.Duration) int {
	return int(a.remaining(now, lifetime) / (24 * time.Hour))
}

func (a *Account) ageDays(now time.Time) int {
	age := now.Sub(a.createdAt)
	if age < 0 {
		return 0
	}
	return int(age / (24 * time.Hour))
}

func (a *Account) expiringSoon(now time.Time, s Settings) bool {
	r := a.remaining(now, s.Lifetime)
	return r > 0 && r < s.ExpiryWarnWindow
}

// effectiveStatus computes the status as of now without writing anything.
// Used by Snapshot, which must never mutate state.
func (a *Account) effectiveStatusLocked(now time.Time, s Settings) Status {
	if a.status == StatusExpired || a.isExpired(now, s.Lifetime) {
		return StatusExpired
	}
	if a.status.inCooldown() && !now.Before(a.cooldownUntil) {
		return StatusActive
	}
	return a.status
}

// resolveStatus applies the lazy transitions: validity window elapsed moves
// the record to Expired, a finished cooldown moves it back to Active.
func (a *Account) resolveStatusLocked(now time.Time, s Settings) Status {
	if a.status != StatusExpired && a.isExpired(now, s.Lifetime) {
		a.status = StatusExpired
		a.cooldownUntil = time.Time{}
	}
	if a.status.inCooldown() && !now.Before(a.cooldownUntil) {
		a.status = StatusActive
		a.cooldownUntil = time.Time{}
	}
	return a.status
}

// tryAcquire resolves lazy transitions and, if the account is selectable,
// records the use. Returns false for cooldown, error, and expired records.
func (a *Account) tryAcquire(now time.Time, s Settings) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resolveStatusLocked(now, s) != StatusActive {
		return false
	}
	a.requestCount++
	a.lastUsedAt = now
	return true
}
