package account

import (
	"time"

	"gembiz2api/gateway/internal/token"
)

// View is the read-only observability projection of one account.
type View struct {
	ID                string       `json:"id"`
	Email             string       `json:"email"`
	Status            Status       `json:"status"`
	Available         bool         `json:"is_available"`
	ExpiringSoon      bool         `json:"expiring_soon"`
	AgeDays           int          `json:"age_days"`
	RemainingDays     int          `json:"remaining_days"`
	CooldownRemaining int64        `json:"cooldown_remaining"`
	RequestCount      int64        `json:"request_count"`
	FailureCount      int64        `json:"failure_count"`
	LastUsedAt        *time.Time   `json:"last_used_at,omitempty"`
	Token             token.Status `json:"token_status"`
}

func (a *Account) view(now time.Time, s Settings) View {
	a.mu.Lock()
	status := a.effectiveStatusLocked(now, s)

	var cooldownRemaining int64
	if status.inCooldown() {
		cooldownRemaining = int64(a.cooldownUntil.Sub(now) / time.Second)
	}

	var lastUsed *time.Time
	if !a.lastUsedAt.IsZero() {
		t := a.lastUsedAt
		lastUsed = &t
	}

	v := View{
		ID:                a.id,
		Email:             a.email,
		Status:            status,
		Available:         status == StatusActive,
		ExpiringSoon:      status != StatusExpired && a.expiringSoon(now, s),
		AgeDays:           a.ageDays(now),
		RemainingDays:     a.remainingDays(now, s.Lifetime),
		CooldownRemaining: cooldownRemaining,
		RequestCount:      a.requestCount,
		FailureCount:      a.failureCount,
		LastUsedAt:        lastUsed,
	}
	a.mu.Unlock()

	// Token status takes the cache's own lock; never nest it under mu.
	v.Token = a.tokens.Status()
	return v
}

// Stats are the pool-level aggregates served by the stats endpoint.
type Stats struct {
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	Cooldown      int     `json:"cooldown"`
	Errored       int     `json:"errored"`
	Expired       int     `json:"expired"`
	ExpiringSoon  int     `json:"expiring_soon"`
	TotalRequests int64   `json:"total_requests"`
	TotalFailures int64   `json:"total_failures"`
	SuccessRate   float64 `json:"success_rate"`
	AverageAge    float64 `json:"average_age_days"`
}

func summarize(views []View) Stats {
	var s Stats
	s.Total = len(views)

	var ageSum int
	for _, v := range views {
		switch {
		case v.Status == StatusActive:
			s.Active++
		case v.Status.inCooldown():
			s.Cooldown++
		case v.Status == StatusError:
			s.Errored++
		case v.Status == StatusExpired:
			s.Expired++
		}
		if v.ExpiringSoon {
			s.ExpiringSoon++
		}
		s.TotalRequests += v.RequestCount
		s.TotalFailures += v.FailureCount
		ageSum += v.AgeDays
	}

	if s.Total > 0 {
		s.AverageAge = float64(ageSum) / float64(s.Total)
	}
	if s.TotalRequests > 0 {
		s.SuccessRate = float64(s.TotalRequests-s.TotalFailures) / float64(s.TotalRequests) * 100
	}
	return s
}
