package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cv-tailor/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o-mini", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, func() map[string]any) {
	t.Helper()
	var mu sync.Mutex
	var last map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		last = payload
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, func() map[string]any {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestCompleteSendsSystemUserAndJSONFormat(t *testing.T) {
	server, lastBody := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"content":" {\"ok\":true} "}}]}`)

	client, err := NewClient("test-key", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.WithBaseURL(server.URL)

	out, err := client.Complete(context.Background(), llm.Request{
		System:      "sys",
		User:        "usr",
		Temperature: 0.5,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected content %q", out)
	}

	body := lastBody()
	if body["model"] != DefaultModel {
		t.Fatalf("expected default model, got %v", body["model"])
	}
	if temp, ok := body["temperature"].(float64); !ok || temp != 0.5 {
		t.Fatalf("expected temperature 0.5, got %v", body["temperature"])
	}
	format, ok := body["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", body["response_format"])
	}
	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %v", body["messages"])
	}
}

func TestCompleteOmitsTemperatureForGPT5(t *testing.T) {
	server, lastBody := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`)

	client, err := NewClient("test-key", "gpt-5-mini")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.WithBaseURL(server.URL)

	if _, err := client.Complete(context.Background(), llm.Request{User: "u", Temperature: 0.1}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	body := lastBody()
	if _, has := body["temperature"]; has {
		t.Fatalf("expected temperature to be omitted for gpt-5 models")
	}
	if _, has := body["response_format"]; has {
		t.Fatalf("expected no response_format when JSON is false")
	}
}

func TestCompleteReportsHTTPStatus(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadGateway, `upstream down`)

	client, err := NewClient("test-key", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.WithBaseURL(server.URL)

	_, err = client.Complete(context.Background(), llm.Request{User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "openai http status 502") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(" ", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
