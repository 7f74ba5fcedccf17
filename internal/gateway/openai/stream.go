package openai

import (
	"fmt"
	"net/http"
	"time"

	httppkg "gembiz2api/gateway/internal/pkg/http"
	"gembiz2api/gateway/internal/pkg/id"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
)

// streamChunkRunes is how much reply text each SSE chunk carries. The
// upstream returns the full reply at once; the gateway re-frames it.
const streamChunkRunes = 16

func (h *Handler) writeStream(w http.ResponseWriter, model, text string) {
	httppkg.SetSSEHeaders(w)
	flusher, _ := w.(http.Flusher)

	completionID := id.ChatCompletionID()
	created := time.Now().Unix()

	writeChunk := func(delta map[string]any, finish *string) {
		chunk := &ChatCompletionResponse{
			ID:      completionID,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []Choice{{Index: 0, Delta: &delta, FinishReason: finish}},
		}
		b, err := jsonpkg.Marshal(chunk)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", b)
		if flusher != nil {
			flusher.Flush()
		}
	}

	writeChunk(map[string]any{"role": "assistant"}, nil)

	runes := []rune(text)
	for i := 0; i < len(runes); i += streamChunkRunes {
		end := i + streamChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		writeChunk(map[string]any{"content": string(runes[i:end])}, nil)
	}

	stop := "stop"
	writeChunk(map[string]any{}, &stop)
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
