package manager

import (
	"errors"
	"net/http"
	"strings"

	"gembiz2api/gateway/internal/account"
	httppkg "gembiz2api/gateway/internal/pkg/http"
)

// Reloader is the slice of the config reloader the admin API needs.
type Reloader interface {
	ReloadNow() error
}

// Handler is the JSON admin surface: account snapshots, pool stats,
// cooldown overrides and forced reloads.
type Handler struct {
	pool     *account.Pool
	reloader Reloader
}

func NewHandler(pool *account.Pool, reloader Reloader) *Handler {
	return &Handler{pool: pool, reloader: reloader}
}

func (h *Handler) HandleAccounts(w http.ResponseWriter, _ *http.Request) {
	httppkg.WriteJSON(w, http.StatusOK, h.pool.Snapshot())
}

func (h *Handler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	httppkg.WriteJSON(w, http.StatusOK, h.pool.Stats())
}

// HandleClearCooldown serves POST /manager/api/accounts/{id}/clear-cooldown.
func (h *Handler) HandleClearCooldown(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/manager/api/accounts/")
	accountID, ok := strings.CutSuffix(rest, "/clear-cooldown")
	if !ok || accountID == "" {
		httppkg.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "unknown endpoint"})
		return
	}

	if err := h.pool.ClearCooldown(accountID); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			httppkg.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "account not found: " + accountID})
			return
		}
		httppkg.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	httppkg.WriteJSON(w, http.StatusOK, map[string]string{"message": "cooldown cleared", "id": accountID})
}

func (h *Handler) HandleReload(w http.ResponseWriter, _ *http.Request) {
	if err := h.reloader.ReloadNow(); err != nil {
		var cfgErr *account.ConfigError
		if errors.As(err, &cfgErr) {
			httppkg.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": cfgErr.Error()})
			return
		}
		httppkg.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	httppkg.WriteJSON(w, http.StatusOK, map[string]string{"message": "configuration reloaded"})
}

// HandleHealth grades the service by the share of selectable accounts:
// at least half active is healthy, any active is degraded, none is
// unhealthy.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := h.pool.Stats()

	status := "unhealthy"
	switch {
	case stats.Total > 0 && stats.Active*2 >= stats.Total:
		status = "healthy"
	case stats.Active > 0:
		status = "degraded"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	httppkg.WriteJSON(w, code, map[string]any{
		"status":          status,
		"accounts_total":  stats.Total,
		"accounts_active": stats.Active,
	})
}
