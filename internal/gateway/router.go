package gateway

import (
	"context"
	"errors"
	"net/http"

	"gembiz2api/gateway/internal/gateway/claude"
	"gembiz2api/gateway/internal/gateway/gemini"
	"gembiz2api/gateway/internal/gateway/manager"
	"gembiz2api/gateway/internal/gateway/openai"
	"gembiz2api/gateway/internal/middleware"
)

// Handlers bundles the per-surface handlers the router dispatches to.
type Handlers struct {
	OpenAI  *openai.Handler
	Claude  *claude.Handler
	Gemini  *gemini.Handler
	Manager *manager.Handler
}

func NewRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()

	// NOTE: Keep routing compatible with Go 1.21's ServeMux behavior.
	mux.HandleFunc("/health", allowMethods(h.Manager.HandleHealth, http.MethodGet, http.MethodHead))

	mux.HandleFunc("/v1/models", allowMethods(h.OpenAI.HandleListModels, http.MethodGet, http.MethodHead))
	mux.HandleFunc("/v1/chat/completions", allowMethods(h.OpenAI.HandleChatCompletions, http.MethodPost))
	mux.HandleFunc("/v1/chat/completions/", allowMethods(h.OpenAI.HandleChatCompletions, http.MethodPost))

	mux.HandleFunc("/v1/messages", allowMethods(h.Claude.HandleMessages, http.MethodPost))

	// Gemini endpoints include a variable model segment.
	mux.HandleFunc("/v1beta/models/", h.Gemini.HandleModels)
	// Provide a stable non-redirect entrypoint for list.
	mux.HandleFunc("/v1beta/models", allowMethods(h.Gemini.HandleListModels, http.MethodGet, http.MethodHead))

	mux.HandleFunc("/manager/api/accounts", allowMethods(h.Manager.HandleAccounts, http.MethodGet, http.MethodHead))
	mux.HandleFunc("/manager/api/accounts/", allowMethods(h.Manager.HandleClearCooldown, http.MethodPost))
	mux.HandleFunc("/manager/api/stats", allowMethods(h.Manager.HandleStats, http.MethodGet, http.MethodHead))
	mux.HandleFunc("/manager/api/reload", allowMethods(h.Manager.HandleReload, http.MethodPost))

	handler := middleware.Recovery(mux)
	handler = middleware.Logging(handler)
	handler = middleware.Auth(handler)

	return handler
}

func allowMethods(h http.HandlerFunc, methods ...string) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := allowed[r.Method]; ok {
			h(w, r)
			return
		}
		if errors.Is(r.Context().Err(), context.Canceled) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":{"message":"method not allowed for this endpoint","type":"invalid_request_error"}}`))
	}
}
