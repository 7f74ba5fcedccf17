package openai

import (
	"io"
	"net/http"
	"time"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/gateway/common"
	httppkg "gembiz2api/gateway/internal/pkg/http"
	"gembiz2api/gateway/internal/pkg/id"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
	"gembiz2api/gateway/internal/upstream"
)

const defaultModel = "gemini-business"

type Handler struct {
	pool        *account.Pool
	client      *upstream.Client
	maxAttempts int
}

func NewHandler(pool *account.Pool, client *upstream.Client, maxAttempts int) *Handler {
	return &Handler{pool: pool, client: client, maxAttempts: maxAttempts}
}

func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		httppkg.WriteOpenAIError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req ChatCompletionRequest
	if err := jsonpkg.Unmarshal(body, &req); err != nil {
		httppkg.WriteOpenAIError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt := lastUserMessage(req.Messages)
	if prompt == "" {
		httppkg.WriteOpenAIError(w, http.StatusBadRequest, "no user message found")
		return
	}

	resp, err := common.DoWithRotation(r.Context(), h.pool, h.maxAttempts,
		func(lease *account.Lease, bearer string) (*upstream.ChatResponse, error) {
			return h.client.SendMessage(r.Context(), lease, bearer, &upstream.ChatRequest{
				Message:     prompt,
				Temperature: req.Temperature,
				MaxTokens:   req.MaxTokens,
			})
		})
	if err != nil {
		status, msg := common.ErrorStatus(err)
		httppkg.WriteOpenAIError(w, status, msg)
		return
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	if req.Stream {
		h.writeStream(w, model, resp.Response)
		return
	}

	promptTokens := len(prompt) / 4
	completionTokens := len(resp.Response) / 4
	stop := "stop"
	httppkg.WriteJSON(w, http.StatusOK, &ChatCompletionResponse{
		ID:      id.ChatCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index:        0,
			Message:      &ChoiceMessage{Role: "assistant", Content: resp.Response},
			FinishReason: &stop,
		}},
		Usage: &Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

func (h *Handler) HandleListModels(w http.ResponseWriter, _ *http.Request) {
	created := time.Now().Unix()
	httppkg.WriteJSON(w, http.StatusOK, &ModelList{
		Object: "list",
		Data: []Model{
			{ID: "gemini-business", Object: "model", Created: created, OwnedBy: "google"},
			{ID: "gemini-2.0-flash", Object: "model", Created: created, OwnedBy: "google"},
		},
	})
}

// lastUserMessage extracts the text of the most recent user turn. Part
// lists keep only their text parts.
func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		return flattenContent(messages[i].Content)
	}
	return ""
}

func flattenContent(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var out string
		for _, item := range v {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if part["type"] == "text" {
				if text, ok := part["text"].(string); ok {
					out += text
				}
			}
		}
		return out
	default:
		return ""
	}
}
