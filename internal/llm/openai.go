package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgpai22/libersonora/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Completer using the OpenAI chat completions API or any
// compatible server
type OpenAICompleter struct {
	client openai.Client
	model  string
}

func NewOpenAICompleter(cfg config.LlmConfig) (*OpenAICompleter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	switch {
	case cfg.UseLocalProvider:
		if strings.TrimSpace(cfg.EndpointURL) == "" {
			return nil, fmt.Errorf("endpoint URL is required for a local provider")
		}
		if apiKey == "" {
			apiKey = "local"
		}
		opts = append(opts, option.WithBaseURL(localBaseURL(cfg.EndpointURL)))
	case apiKey == "":
		return nil, fmt.Errorf("API key is required")
	case strings.TrimSpace(cfg.EndpointURL) != "":
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.EndpointURL, "/")+"/"))
	}
	opts = append(opts, option.WithAPIKey(apiKey))

	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	// an empty message is a valid answer; callers decide whether they need text
	return CleanResponse(completion.Choices[0].Message.Content), nil
}
