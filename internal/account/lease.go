package account

import (
	"context"

	"gembiz2api/gateway/internal/token"
)

// Lease identifies which account a caller should use for one upstream
// call. It copies the fields it needs, so a request already in flight can
// finish even if a reload removes the account underneath it.
type Lease struct {
	AccountID   string
	Email       string
	Credentials token.Credentials

	tokens *token.Cache
}

func newLease(acc *Account) *Lease {
	return &Lease{
		AccountID:   acc.id,
		Email:       acc.email,
		Credentials: acc.creds,
		tokens:      acc.tokens,
	}
}

// Token returns a bearer token for the leased account, deriving a fresh
// one if the cached token is stale.
func (l *Lease) Token(ctx context.Context) (string, error) {
	return l.tokens.Token(ctx)
}
