package common

import (
	"context"
	"errors"
	"net/http"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/token"
	"gembiz2api/gateway/internal/upstream"
)

// Classify maps an operation error to the outcome reported to the pool.
// Callers must always report, including on cancellation, so failure counts
// stay meaningful.
func Classify(err error) account.Outcome {
	if err == nil {
		return account.OutcomeSuccess
	}

	var refreshErr *token.RefreshError
	if errors.As(err, &refreshErr) {
		if refreshErr.AuthRejected() {
			return account.OutcomeAuthError
		}
		return account.OutcomeOtherError
	}
	if errors.Is(err, token.ErrInvalidSecret) {
		return account.OutcomeAuthError
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return account.OutcomeAuthError
		case http.StatusTooManyRequests:
			return account.OutcomeRateLimited
		}
	}
	return account.OutcomeOtherError
}

// ShouldRetryWithNextAccount reports whether the error is an account-level
// signal (auth rejection or rate limit) worth retrying on a different
// account, as opposed to a request-level failure.
func ShouldRetryWithNextAccount(err error) bool {
	switch Classify(err) {
	case account.OutcomeAuthError, account.OutcomeRateLimited:
		return true
	default:
		return false
	}
}

// DoWithRotation runs op against up to maxAttempts distinct leased
// accounts: acquire, derive a bearer token, run, report. Account-level
// failures rotate to the next account; anything else is returned as-is.
func DoWithRotation[T any](ctx context.Context, pool *account.Pool, maxAttempts int, op func(lease *account.Lease, bearer string) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		lease, err := pool.Acquire()
		if err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		bearer, err := lease.Token(ctx)
		if err != nil {
			pool.ReportOutcome(lease, Classify(err))
			lastErr = err
			if ShouldRetryWithNextAccount(err) {
				continue
			}
			return zero, err
		}

		v, err := op(lease, bearer)
		pool.ReportOutcome(lease, Classify(err))
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !ShouldRetryWithNextAccount(err) {
			return zero, err
		}
	}

	return zero, lastErr
}
