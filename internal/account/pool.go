package account

import (
	"errors"
	"sync"
	"time"

	"gembiz2api/gateway/internal/logger"
	"gembiz2api/gateway/internal/token"
)

var (
	// ErrNoAvailableAccounts means a full rotation found nothing selectable.
	// An empty pool reports the same condition: callers treat both as 503.
	ErrNoAvailableAccounts = errors.New("no available accounts")

	// ErrAccountNotFound reports an unknown account id.
	ErrAccountNotFound = errors.New("account not found")
)

// Pool is the single source of truth for which accounts exist and which is
// dispatched next. The pool lock guards the slice, the rotation cursor and
// the static account fields; per-account runtime state has its own lock.
type Pool struct {
	source token.SecretSource

	mu       sync.Mutex
	accounts []*Account
	cursor   int
	settings Settings

	now func() time.Time
}

func NewPool(source token.SecretSource, settings Settings) *Pool {
	return &Pool{
		source:   source,
		settings: settings,
		now:      time.Now,
	}
}

// Acquire returns a lease on the next selectable account in rotation
// order. The cursor always advances past the scanned account, so two
// racing callers get distinct accounts whenever more than one is Active.
func (p *Pool) Acquire() (*Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.accounts)
	if n == 0 {
		return nil, ErrNoAvailableAccounts
	}

	now := p.now()
	for attempts := 0; attempts < n; attempts++ {
		acc := p.accounts[p.cursor]
		p.cursor = (p.cursor + 1) % n

		if acc.tryAcquire(now, p.settings) {
			return newLease(acc), nil
		}
	}

	return nil, ErrNoAvailableAccounts
}

// ReportOutcome records how the upstream call made with a lease went and
// drives the cooldown state machine. A lease whose account was removed by
// a reload is a benign no-op.
func (p *Pool) ReportOutcome(lease *Lease, outcome Outcome) {
	if lease == nil {
		return
	}

	p.mu.Lock()
	acc := p.lookupLocked(lease.AccountID)
	settings := p.settings
	p.mu.Unlock()

	if acc == nil {
		return
	}

	acc.applyOutcome(outcome, settings, p.now())

	switch outcome {
	case OutcomeAuthError:
		logger.Warn("account %s: auth rejected, cooling down for %s", lease.AccountID, settings.AuthCooldown)
	case OutcomeRateLimited:
		logger.Warn("account %s: rate limited, cooling down for %s", lease.AccountID, settings.RateLimitCooldown)
	case OutcomeOtherError:
		acc.mu.Lock()
		errored := acc.status == StatusError
		acc.mu.Unlock()
		if errored {
			logger.Error("account %s: disabled after %d consecutive failures", lease.AccountID, settings.ErrorThreshold)
		}
	}
}

// ClearCooldown is the administrative override: it makes a cooling-down or
// errored account immediately selectable again.
func (p *Pool) ClearCooldown(id string) error {
	p.mu.Lock()
	acc := p.lookupLocked(id)
	p.mu.Unlock()

	if acc == nil {
		return ErrAccountNotFound
	}
	if acc.clearCooldown() {
		logger.Info("account %s: cooldown cleared by operator", id)
	}
	return nil
}

// Snapshot is a read-only projection of every account for monitoring. It
// computes effective statuses without performing the lazy transitions.
func (p *Pool) Snapshot() []View {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	views := make([]View, 0, len(p.accounts))
	for _, acc := range p.accounts {
		views = append(views, acc.view(now, p.settings))
	}
	return views
}

// Stats aggregates the snapshot for the health and stats endpoints.
func (p *Pool) Stats() Stats {
	return summarize(p.Snapshot())
}

// WarnExpiring logs every account inside the expiry warning window and
// returns their ids. Called after load/reload.
func (p *Pool) WarnExpiring() []string {
	var ids []string
	for _, v := range p.Snapshot() {
		if v.Status == StatusExpired {
			logger.Warn("account %s (%s) is expired and will not be selected", v.ID, v.Email)
			continue
		}
		if !v.ExpiringSoon {
			continue
		}
		ids = append(ids, v.ID)
		switch v.RemainingDays {
		case 0:
			logger.Error("account %s (%s) expires today, replace it now", v.ID, v.Email)
		case 1:
			logger.Error("account %s (%s) expires tomorrow", v.ID, v.Email)
		default:
			logger.Warn("account %s (%s) expiring soon: %d day(s) left", v.ID, v.Email, v.RemainingDays)
		}
	}
	return ids
}

func (p *Pool) lookupLocked(id string) *Account {
	for _, acc := range p.accounts {
		if acc.id == id {
			return acc
		}
	}
	return nil
}

func (p *Pool) newAccount(def Definition, now time.Time) *Account {
	createdAt := def.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	creds := def.credentials()
	identity := token.Identity{
		Issuer:   token.DefaultIssuer,
		Audience: token.DefaultAudience,
		Subject:  def.TeamID,
	}
	return &Account{
		id:        def.TeamID,
		email:     def.Email,
		creds:     creds,
		createdAt: createdAt,
		expiresAt: def.ExpiresAt,
		tokens:    token.NewCache(identity, creds, p.source),
		status:    StatusActive,
	}
}
