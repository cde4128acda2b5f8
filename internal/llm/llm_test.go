package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/resilient"
)

func TestFactoryReturnsProviderCompleter(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.LlmConfig
		want string
	}{
		{name: "default openai", cfg: config.LlmConfig{Model: "gpt-4o-mini", APIKey: "k"}, want: "*llm.OpenAICompleter"},
		{name: "local", cfg: config.LlmConfig{Model: "qwen2.5", UseLocalProvider: true, EndpointURL: "http://ollama:11434"}, want: "*llm.OpenAICompleter"},
		{name: "anthropic", cfg: config.LlmConfig{Provider: "anthropic", Model: "claude-haiku-4-5", APIKey: "k"}, want: "*llm.AnthropicCompleter"},
		{name: "gemini", cfg: config.LlmConfig{Provider: "gemini", Model: "gemini-2.5-flash", APIKey: "k"}, want: "*llm.GeminiCompleter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Factory(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("Factory() error = %v", err)
			}
			if got := typeName(c); got != tt.want {
				t.Errorf("Factory() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(c Completer) string {
	switch c.(type) {
	case *OpenAICompleter:
		return "*llm.OpenAICompleter"
	case *AnthropicCompleter:
		return "*llm.AnthropicCompleter"
	case *GeminiCompleter:
		return "*llm.GeminiCompleter"
	default:
		return "unknown"
	}
}

func TestFactoryRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	tests := []config.LlmConfig{
		{APIKey: "k"},
		{Model: "m"},
		{Provider: "unknown", Model: "m", APIKey: "k"},
		{Model: "m", UseLocalProvider: true},
	}
	for _, cfg := range tests {
		if _, err := Factory(ctx, cfg); err == nil {
			t.Errorf("Factory(%+v) expected error", cfg)
		}
	}
}

func TestLocalBaseURL(t *testing.T) {
	tests := map[string]string{
		"http://ollama:11434":    "http://ollama:11434/v1/",
		"http://ollama:11434/":   "http://ollama:11434/v1/",
		"http://ollama:11434/v1": "http://ollama:11434/v1/",
		" http://host/v1/ ":      "http://host/v1/",
	}
	for in, want := range tests {
		if got := localBaseURL(in); got != want {
			t.Errorf("localBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanResponse(t *testing.T) {
	tests := map[string]string{
		"  plain  ":                        "plain",
		"```\n0: fixed\n```":               "0: fixed",
		"```text\nline one\nline two\n```": "line one\nline two",
	}
	for in, want := range tests {
		if got := CleanResponse(in); got != want {
			t.Errorf("CleanResponse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenAICompleterLocalEndpoint(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"qwen2.5",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"` + "```\\n" + `hola\n` + "```" + `"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter(config.LlmConfig{Model: "qwen2.5", UseLocalProvider: true, EndpointURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAICompleter() error = %v", err)
	}
	got, err := c.Complete(context.Background(), Request{System: "sys", User: "hello", Temperature: Temperature(0.7)})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hola" {
		t.Errorf("Complete() = %q, want hola", got)
	}
	if body["model"] != "qwen2.5" {
		t.Errorf("model = %v", body["model"])
	}
	if body["temperature"] != 0.7 {
		t.Errorf("temperature = %v", body["temperature"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", body["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role = %v", first["role"])
	}
}

func TestOpenAICompleterEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  "}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter(config.LlmConfig{Model: "m", UseLocalProvider: true, EndpointURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAICompleter() error = %v", err)
	}
	got, err := c.Complete(context.Background(), Request{User: "nothing to fix"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "" {
		t.Errorf("Complete() = %q, want empty", got)
	}
}

func TestAnthropicCompleter(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("path = %q", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5",
			"content":[{"type":"text","text":"Intro Chapter"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":1,"output_tokens":2}}`))
	}))
	defer srv.Close()

	c, err := NewAnthropicCompleter(config.LlmConfig{Provider: "anthropic", Model: "claude-haiku-4-5", APIKey: "k", EndpointURL: srv.URL})
	if err != nil {
		t.Fatalf("NewAnthropicCompleter() error = %v", err)
	}
	got, err := c.Complete(context.Background(), Request{System: "title", User: "content"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Intro Chapter" {
		t.Errorf("Complete() = %q", got)
	}
	if _, ok := body["system"]; !ok {
		t.Error("system prompt not sent")
	}
	if _, ok := body["temperature"]; ok {
		t.Error("temperature should be omitted when unset")
	}
}

func TestGeminiCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"bonjour"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiCompleter(context.Background(), config.LlmConfig{Provider: "gemini", Model: "gemini-2.5-flash", APIKey: "k", EndpointURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiCompleter() error = %v", err)
	}
	got, err := c.Complete(context.Background(), Request{User: "hello", Temperature: Temperature(0.4)})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "bonjour" {
		t.Errorf("Complete() = %q", got)
	}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	flaky := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("rate limited")
		}
		return "ok:" + req.User, nil
	})
	retrier := resilient.NewRetrier(resilient.Policy{MaxAttempts: 3}, resilient.WithSleeper(func(time.Duration) {}))

	got, err := WithRetry(flaky, retrier, "correct").Complete(context.Background(), Request{User: "x"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "ok:x" || calls != 2 {
		t.Errorf("got %q after %d calls", got, calls)
	}

	calls = 0
	broken := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", errors.New("down")
	})
	_, err = WithRetry(broken, retrier, "translate").Complete(context.Background(), Request{})
	var exhausted *resilient.ExhaustedRetriesError
	if !errors.As(err, &exhausted) || exhausted.Op != "translate" {
		t.Fatalf("error = %v, want exhausted translate", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
