package account

import (
	"fmt"
	"time"

	"gembiz2api/gateway/internal/logger"
	"gembiz2api/gateway/internal/token"
)

// ConfigError rejects a candidate configuration. The live pool is never
// touched when Apply returns one.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Detail }

// Definition is one candidate account record from configuration.
type Definition struct {
	Email        string    `json:"email"`
	TeamID       string    `json:"team_id"`
	SecureSES    string    `json:"secure_c_ses"`
	HostOSES     string    `json:"host_c_oses"`
	SessionIndex string    `json:"csesidx"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

func (d Definition) credentials() token.Credentials {
	return token.Credentials{
		SecureSES:    d.SecureSES,
		HostOSES:     d.HostOSES,
		SessionIndex: d.SessionIndex,
		UserAgent:    d.UserAgent,
	}
}

// ValidateDefinitions checks the whole candidate set before any mutation:
// required fields present, team ids unique, timestamps coherent.
func ValidateDefinitions(defs []Definition) error {
	if len(defs) == 0 {
		return &ConfigError{Detail: "no accounts configured"}
	}

	seen := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		for field, value := range map[string]string{
			"email":        def.Email,
			"team_id":      def.TeamID,
			"secure_c_ses": def.SecureSES,
			"host_c_oses":  def.HostOSES,
			"csesidx":      def.SessionIndex,
			"user_agent":   def.UserAgent,
		} {
			if value == "" {
				return &ConfigError{Detail: fmt.Sprintf("account #%d: missing required field %q", i+1, field)}
			}
		}
		if _, dup := seen[def.TeamID]; dup {
			return &ConfigError{Detail: fmt.Sprintf("account #%d: duplicate team_id %q", i+1, def.TeamID)}
		}
		seen[def.TeamID] = struct{}{}

		if !def.ExpiresAt.IsZero() && !def.CreatedAt.IsZero() && !def.ExpiresAt.After(def.CreatedAt) {
			return &ConfigError{Detail: fmt.Sprintf("account #%d: expires_at is not after created_at", i+1)}
		}
	}
	return nil
}

// ApplyResult summarizes one configuration apply.
type ApplyResult struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Kept      int `json:"kept"`
	Refreshed int `json:"refreshed"` // kept, but cookies changed
}

// Apply replaces the pool's account set with the candidate list,
// all-or-nothing. Records kept by id keep their runtime state; a cookie
// change only invalidates the cached token — credentials changing says
// nothing about the account's health. Applying the same candidates twice
// is a no-op the second time.
func (p *Pool) Apply(defs []Definition, settings Settings) (ApplyResult, error) {
	if err := ValidateDefinitions(defs); err != nil {
		return ApplyResult{}, err
	}
	if err := settings.Validate(); err != nil {
		return ApplyResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	existing := make(map[string]*Account, len(p.accounts))
	for _, acc := range p.accounts {
		existing[acc.id] = acc
	}

	var res ApplyResult
	now := p.now()
	next := make([]*Account, 0, len(defs))

	for _, def := range defs {
		acc, ok := existing[def.TeamID]
		if !ok {
			next = append(next, p.newAccount(def, now))
			res.Added++
			continue
		}

		if creds := def.credentials(); acc.creds != creds {
			acc.creds = creds
			acc.tokens.UpdateCredentials(creds)
			res.Refreshed++
		} else {
			res.Kept++
		}

		// Non-credential statics follow the configuration: operators may
		// correct an email or extend an explicit expiry in place.
		acc.email = def.Email
		if !def.CreatedAt.IsZero() {
			acc.createdAt = def.CreatedAt
		}
		acc.expiresAt = def.ExpiresAt

		next = append(next, acc)
	}

	res.Removed = len(p.accounts) - res.Kept - res.Refreshed
	p.accounts = next
	if p.cursor >= len(next) {
		p.cursor = 0
	}
	p.settings = settings

	logger.Info("configuration applied: %d added, %d removed, %d kept, %d credential refresh(es)",
		res.Added, res.Removed, res.Kept, res.Refreshed)
	return res, nil
}
