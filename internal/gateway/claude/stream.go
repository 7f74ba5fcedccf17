package claude

import (
	"fmt"
	"net/http"

	httppkg "gembiz2api/gateway/internal/pkg/http"
	"gembiz2api/gateway/internal/pkg/id"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
)

const streamChunkRunes = 16

// writeStream re-frames the full upstream reply as Anthropic SSE events:
// message_start, one text content block, message_delta, message_stop.
func (h *Handler) writeStream(w http.ResponseWriter, model, prompt, text string) {
	httppkg.SetSSEHeaders(w)
	flusher, _ := w.(http.Flusher)

	writeEvent := func(event string, payload any) {
		b, err := jsonpkg.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
		if flusher != nil {
			flusher.Flush()
		}
	}

	msgID := id.MessageID()
	writeEvent("message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":      msgID,
			"type":    "message",
			"role":    "assistant",
			"model":   model,
			"content": []any{},
			"usage":   map[string]int{"input_tokens": len(prompt) / 4, "output_tokens": 0},
		},
	})
	writeEvent("content_block_start", map[string]any{
		"type":          "content_block_start",
		"index":         0,
		"content_block": map[string]any{"type": "text", "text": ""},
	})

	runes := []rune(text)
	for i := 0; i < len(runes); i += streamChunkRunes {
		end := i + streamChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		writeEvent("content_block_delta", map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": string(runes[i:end])},
		})
	}

	writeEvent("content_block_stop", map[string]any{"type": "content_block_stop", "index": 0})
	writeEvent("message_delta", map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": "end_turn"},
		"usage": map[string]int{"output_tokens": len(text) / 4},
	})
	writeEvent("message_stop", map[string]any{"type": "message_stop"})
}
