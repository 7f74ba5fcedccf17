package gemini

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/gateway/common"
	httppkg "gembiz2api/gateway/internal/pkg/http"
	jsonpkg "gembiz2api/gateway/internal/pkg/json"
	"gembiz2api/gateway/internal/upstream"
)

type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
	Index        int     `json:"index"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type Handler struct {
	pool        *account.Pool
	client      *upstream.Client
	maxAttempts int
}

func NewHandler(pool *account.Pool, client *upstream.Client, maxAttempts int) *Handler {
	return &Handler{pool: pool, client: client, maxAttempts: maxAttempts}
}

// HandleModels dispatches /v1beta/models/{model}:{action} requests. The
// model segment is variable, so the route cannot be fixed in the mux.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1beta/models/")
	model, action, found := strings.Cut(rest, ":")
	if !found {
		httppkg.WriteGeminiError(w, http.StatusNotFound, "unknown endpoint")
		return
	}
	if r.Method != http.MethodPost {
		httppkg.WriteGeminiError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	switch action {
	case "generateContent":
		h.handleGenerate(w, r, model, false)
	case "streamGenerateContent":
		h.handleGenerate(w, r, model, true)
	default:
		httppkg.WriteGeminiError(w, http.StatusNotFound, "unsupported action: "+action)
	}
}

func (h *Handler) HandleListModels(w http.ResponseWriter, _ *http.Request) {
	httppkg.WriteJSON(w, http.StatusOK, map[string]any{
		"models": []map[string]any{
			{"name": "models/gemini-business", "supportedGenerationMethods": []string{"generateContent", "streamGenerateContent"}},
		},
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request, model string, stream bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		httppkg.WriteGeminiError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req GenerateRequest
	if err := jsonpkg.Unmarshal(body, &req); err != nil {
		httppkg.WriteGeminiError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt := lastUserContent(req.Contents)
	if prompt == "" {
		httppkg.WriteGeminiError(w, http.StatusBadRequest, "no user content found")
		return
	}

	resp, err := common.DoWithRotation(r.Context(), h.pool, h.maxAttempts,
		func(lease *account.Lease, bearer string) (*upstream.ChatResponse, error) {
			return h.client.SendMessage(r.Context(), lease, bearer, &upstream.ChatRequest{Message: prompt})
		})
	if err != nil {
		status, msg := common.ErrorStatus(err)
		httppkg.WriteGeminiError(w, status, msg)
		return
	}

	out := &GenerateResponse{
		ModelVersion: model,
		Candidates: []Candidate{{
			Content:      Content{Role: "model", Parts: []Part{{Text: resp.Response}}},
			FinishReason: "STOP",
		}},
		UsageMetadata: &UsageMetadata{
			PromptTokenCount:     len(prompt) / 4,
			CandidatesTokenCount: len(resp.Response) / 4,
			TotalTokenCount:      (len(prompt) + len(resp.Response)) / 4,
		},
	}

	if stream {
		h.writeStream(w, out)
		return
	}
	httppkg.WriteJSON(w, http.StatusOK, out)
}

// writeStream emits the reply as a short SSE sequence, the shape the
// Google SDKs expect from streamGenerateContent with ?alt=sse.
func (h *Handler) writeStream(w http.ResponseWriter, resp *GenerateResponse) {
	httppkg.SetSSEHeaders(w)
	b, err := jsonpkg.Marshal(resp)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func lastUserContent(contents []Content) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role != "" && contents[i].Role != "user" {
			continue
		}
		var out string
		for _, part := range contents[i].Parts {
			out += part.Text
		}
		if out != "" {
			return out
		}
	}
	return ""
}
