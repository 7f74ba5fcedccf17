package claude

import (
	"io"
	"net/http"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/gateway/common"
	httppkg "gembiz2api/gateway/internal/pkg/http"
	"gembiz2api/gateway/internal/pkg/id"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
	"gembiz2api/gateway/internal/upstream"
)

type MessagesRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Handler struct {
	pool        *account.Pool
	client      *upstream.Client
	maxAttempts int
}

func NewHandler(pool *account.Pool, client *upstream.Client, maxAttempts int) *Handler {
	return &Handler{pool: pool, client: client, maxAttempts: maxAttempts}
}

func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		httppkg.WriteClaudeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req MessagesRequest
	if err := jsonpkg.Unmarshal(body, &req); err != nil {
		httppkg.WriteClaudeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt := lastUserMessage(req.Messages)
	if prompt == "" {
		httppkg.WriteClaudeError(w, http.StatusBadRequest, "no user message found")
		return
	}

	resp, err := common.DoWithRotation(r.Context(), h.pool, h.maxAttempts,
		func(lease *account.Lease, bearer string) (*upstream.ChatResponse, error) {
			return h.client.SendMessage(r.Context(), lease, bearer, &upstream.ChatRequest{
				Message:   prompt,
				MaxTokens: req.MaxTokens,
			})
		})
	if err != nil {
		status, msg := common.ErrorStatus(err)
		httppkg.WriteClaudeError(w, status, msg)
		return
	}

	if req.Stream {
		h.writeStream(w, req.Model, prompt, resp.Response)
		return
	}

	httppkg.WriteJSON(w, http.StatusOK, &MessagesResponse{
		ID:         id.MessageID(),
		Type:       "message",
		Role:       "assistant",
		Model:      req.Model,
		Content:    []ContentBlock{{Type: "text", Text: resp.Response}},
		StopReason: "end_turn",
		Usage: Usage{
			InputTokens:  len(prompt) / 4,
			OutputTokens: len(resp.Response) / 4,
		},
	})
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		switch v := messages[i].Content.(type) {
		case string:
			return v
		case []any:
			var out string
			for _, item := range v {
				block, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if block["type"] == "text" {
					if text, ok := block["text"].(string); ok {
						out += text
					}
				}
			}
			return out
		}
		return ""
	}
	return ""
}
