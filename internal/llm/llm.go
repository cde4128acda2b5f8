package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/resilient"
)

// one system + user exchange
type Request struct {
	System      string
	User        string
	Temperature *float64
}

// interface for single-shot text completion
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Temperature returns a pointer suitable for Request.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

// creates Completer based on provider
func Factory(ctx context.Context, cfg config.LlmConfig) (Completer, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	switch cfg.ProviderName() {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(cfg)
	case config.ProviderAnthropic:
		return NewAnthropicCompleter(cfg)
	case config.ProviderGemini:
		return NewGeminiCompleter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

type retryingCompleter struct {
	next    Completer
	retrier *resilient.Retrier
	purpose string
}

// WithRetry routes every call of next through the retrier's attempt budget.
func WithRetry(next Completer, retrier *resilient.Retrier, purpose string) Completer {
	if retrier == nil {
		return next
	}
	return &retryingCompleter{next: next, retrier: retrier, purpose: purpose}
}

func (c *retryingCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var out string
	err := c.retrier.Do(ctx, c.purpose, func(ctx context.Context) error {
		text, err := c.next.Complete(ctx, req)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var codeFenceRegex = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")

// strips surrounding whitespace and markdown code fences from a reply
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = codeFenceRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// local OpenAI-compatible servers (Ollama) serve the API under /v1
func localBaseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.HasSuffix(endpoint, "/v1") {
		endpoint += "/v1"
	}
	return endpoint + "/"
}
