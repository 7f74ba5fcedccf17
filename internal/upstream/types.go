package upstream

import "fmt"

// ChatRequest is the Gemini Business chat API payload.
type ChatRequest struct {
	Message        string   `json:"message"`
	TeamID         string   `json:"team_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// APIError carries the upstream HTTP status so callers can classify the
// outcome (auth cooldown, rate limit, or plain failure).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
}
