package common

import (
	"context"
	"errors"
	"net/http"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/token"
	"gembiz2api/gateway/internal/upstream"
)

// ErrorStatus maps a rotation error to the HTTP status and message the
// gateway fronts return to their clients.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, account.ErrNoAvailableAccounts):
		return http.StatusServiceUnavailable, "no available accounts (all in cooldown or expired)"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 499, "client closed request"
	}

	var refreshErr *token.RefreshError
	if errors.As(err, &refreshErr) {
		return http.StatusBadGateway, "upstream session rejected, account set cooling down"
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusBadGateway, "upstream authentication failed"
		case http.StatusTooManyRequests:
			return http.StatusServiceUnavailable, "upstream rate limit exceeded"
		default:
			return http.StatusBadGateway, apiErr.Message
		}
	}

	return http.StatusInternalServerError, err.Error()
}
