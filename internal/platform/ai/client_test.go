package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		got := stripCodeFence(tt.input)
		if got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  a short summary  "}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second, zerolog.Nop())
	if !c.Enabled() {
		t.Fatal("expected client with key to be enabled")
	}

	reply, err := c.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "a short summary" {
		t.Errorf("reply = %q, want trimmed summary", reply)
	}
}

func TestClient_CompleteJSON_FencedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"role":    "assistant",
					"content": "```json\n{\"urgency\":\"routine\"}\n```",
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second, zerolog.Nop())

	var out struct {
		Urgency string `json:"urgency"`
	}
	if err := c.CompleteJSON(context.Background(), "system", "user", &out); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out.Urgency != "routine" {
		t.Errorf("urgency = %q, want routine", out.Urgency)
	}
}

func TestClient_Complete_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second, zerolog.Nop())

	if _, err := c.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("expected error for provider failure")
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "gpt-4o-mini", 20*time.Millisecond, zerolog.Nop())

	if _, err := c.Complete(context.Background(), "system", "user"); err == nil {
		t.Error("expected timeout error")
	}
}

func TestClient_DisabledWithoutKey(t *testing.T) {
	c := New("https://api.openai.com/v1", "", "gpt-4o-mini", 5*time.Second, zerolog.Nop())
	if c.Enabled() {
		t.Error("expected client without key to be disabled")
	}
}
