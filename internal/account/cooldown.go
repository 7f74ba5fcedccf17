package account

import "time"

// Outcome classifies one upstream call made with a leased account.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAuthError
	OutcomeRateLimited
	OutcomeOtherError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthError:
		return "auth_error"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "other_error"
	}
}

// applyOutcome drives the cooldown state machine. Auth rejections and rate
// limits start a timed cooldown; other errors only accumulate toward the
// terminal Error state. Error and Expired records only leave those states
// through clearCooldown or a config reload, never through an outcome: a
// stale lease acquired before the record went terminal must not revive it.
func (a *Account) applyOutcome(outcome Outcome, s Settings, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == StatusExpired {
		return
	}

	switch outcome {
	case OutcomeSuccess:
		a.consecutiveErrors = 0
	case OutcomeAuthError:
		a.failureCount++
		if a.status == StatusError {
			return
		}
		a.status = StatusCooldownAuth
		a.cooldownUntil = now.Add(s.AuthCooldown)
	case OutcomeRateLimited:
		a.failureCount++
		if a.status == StatusError {
			return
		}
		a.status = StatusCooldownRateLimit
		a.cooldownUntil = now.Add(s.RateLimitCooldown)
	case OutcomeOtherError:
		a.failureCount++
		a.consecutiveErrors++
		if a.consecutiveErrors >= s.ErrorThreshold && a.status == StatusActive {
			a.status = StatusError
		}
	}
}

// clearCooldown is the administrative override: it returns a cooling-down
// or errored record to Active immediately. Expired records stay expired.
func (a *Account) clearCooldown() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.status {
	case StatusCooldownAuth, StatusCooldownRateLimit, StatusError:
		a.status = StatusActive
		a.cooldownUntil = time.Time{}
		a.consecutiveErrors = 0
		return true
	default:
		return false
	}
}
