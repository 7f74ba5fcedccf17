package claude

import (
	"testing"

	jsonpkg "gembiz2api/gateway/internal/pkg/json"
)

func TestLastUserMessage_Blocks(t *testing.T) {
	var req MessagesRequest
	body := `{"model":"claude-3","messages":[
		{"role":"user","content":"earlier"},
		{"role":"assistant","content":"reply"},
		{"role":"user","content":[
			{"type":"text","text":"split "},
			{"type":"text","text":"prompt"}
		]}
	]}`
	if err := jsonpkg.UnmarshalString(body, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := lastUserMessage(req.Messages); got != "split prompt" {
		t.Fatalf("lastUserMessage: got %q want %q", got, "split prompt")
	}
}

func TestLastUserMessage_StringAndMissing(t *testing.T) {
	msgs := []Message{{Role: "user", Content: "plain"}}
	if got := lastUserMessage(msgs); got != "plain" {
		t.Fatalf("string content: got %q", got)
	}
	if got := lastUserMessage([]Message{{Role: "assistant", Content: "x"}}); got != "" {
		t.Fatalf("expected empty prompt, got %q", got)
	}
}
