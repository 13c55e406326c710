package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// CompletionConfig holds the chat model settings used for answers.
type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Completer answers prompts with a chat model.
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewCompleter creates a chat completion adapter.
func NewCompleter(cfg *CompletionConfig) *Completer {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Completer{
		client:      newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:       model,
		temperature: cfg.Temperature,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", parseAPIError("completion", err, domain.ErrCompletionUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
