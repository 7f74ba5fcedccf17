package gemini

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLastUserContent(t *testing.T) {
	contents := []Content{
		{Role: "user", Parts: []Part{{Text: "first"}}},
		{Role: "model", Parts: []Part{{Text: "reply"}}},
		{Role: "user", Parts: []Part{{Text: "sec"}, {Text: "ond"}}},
	}
	if got := lastUserContent(contents); got != "second" {
		t.Fatalf("lastUserContent: got %q want %q", got, "second")
	}

	// A missing role counts as a user turn.
	bare := []Content{{Parts: []Part{{Text: "bare"}}}}
	if got := lastUserContent(bare); got != "bare" {
		t.Fatalf("lastUserContent: got %q want %q", got, "bare")
	}

	if got := lastUserContent([]Content{{Role: "model", Parts: []Part{{Text: "x"}}}}); got != "" {
		t.Fatalf("expected empty prompt, got %q", got)
	}
}

func TestHandleModels_PathDispatch(t *testing.T) {
	h := &Handler{}

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/v1beta/models/gemini-business", http.StatusNotFound},
		{http.MethodGet, "/v1beta/models/gemini-business:generateContent", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1beta/models/gemini-business:embedContent", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.HandleModels(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: got %d want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}
