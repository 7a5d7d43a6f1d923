package enhancer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fixedEnhancer string

func (f fixedEnhancer) Enhance(context.Context, string) string { return string(f) }

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "tinyllama",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMEnhancerUsesCompletion(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, "<|system|>ignored<|assistant|>  A car that flies.  ", &seen)

	var fellBack bool
	e := NewLLMEnhancer(LLMOptions{
		BaseURL:     srv.URL + "/v1",
		Model:       "tinyllama",
		MaxTokens:   200,
		Temperature: 0.7,
		Fallback:    fixedEnhancer("template"),
		OnFallback:  func(string, error) { fellBack = true },
		Logger:      zerolog.Nop(),
	})

	got := e.Enhance(context.Background(), "a car")
	if got != "A car that flies." {
		t.Fatalf("unexpected enhancement %q", got)
	}
	if fellBack {
		t.Fatalf("fallback should not have been used")
	}
	if seen.Model != "tinyllama" || seen.MaxTokens != 200 {
		t.Fatalf("unexpected request %+v", seen)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" || seen.Messages[0].Content != systemPrompt {
		t.Fatalf("unexpected system message %+v", seen.Messages)
	}
	if seen.Messages[1].Content != "How will this object look in 20 years: a car" {
		t.Fatalf("unexpected user message %q", seen.Messages[1].Content)
	}
}

func TestLLMEnhancerFallbacks(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	cases := []struct {
		name    string
		baseURL string
		timeout time.Duration
		reason  string
	}{
		{name: "no base url", baseURL: "", reason: "missing_base_url"},
		{name: "server error", baseURL: failing.URL, reason: "request_failed"},
		{name: "timeout", baseURL: slow.URL, timeout: 50 * time.Millisecond, reason: "request_failed"},
		{name: "blank reply", baseURL: chatServer(t, "<|assistant|>   ", nil).URL, reason: "empty_response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var reason string
			e := NewLLMEnhancer(LLMOptions{
				BaseURL:    tc.baseURL,
				Model:      "tinyllama",
				Timeout:    tc.timeout,
				Fallback:   fixedEnhancer("template"),
				OnFallback: func(r string, _ error) { reason = r },
				Logger:     zerolog.Nop(),
			})
			if got := e.Enhance(context.Background(), "a car"); got != "template" {
				t.Fatalf("expected fallback text, got %q", got)
			}
			if reason != tc.reason {
				t.Fatalf("reason = %q, want %q", reason, tc.reason)
			}
		})
	}
}

func TestCleanCompletion(t *testing.T) {
	cases := map[string]string{
		"plain":                           "plain",
		"a<|assistant|>b<|assistant|> c ": "c",
		"  <|assistant|>":                 "",
	}
	for in, want := range cases {
		if got := cleanCompletion(in); got != want {
			t.Fatalf("cleanCompletion(%q) = %q, want %q", in, got, want)
		}
	}
}
