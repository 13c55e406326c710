package openai

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const ocrPrompt = "Transcribe every piece of legible text in this image, in reading order, " +
	"separated by single spaces. Reply with the text only. If there is no legible text, reply with NONE."

const noText = "NONE"

// OCRConfig holds the vision model settings used for text extraction.
type OCRConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// TextExtractor recognizes text in images with a vision chat model.
type TextExtractor struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewTextExtractor creates a vision-model OCR adapter.
func NewTextExtractor(cfg *OCRConfig) *TextExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &TextExtractor{
		client:    newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// ExtractText implements domain.TextExtractor. Recognition failures are
// logged and reported as ok=false.
func (x *TextExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, bool) {
	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       x.model,
		MaxTokens:   x.maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: ocrPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(data, contentType),
					Detail: openai.ImageURLDetailHigh,
				}},
			},
		}},
	})
	if err != nil {
		x.logger.Warn("ocr failed", zap.String("model", x.model), zap.Error(err))
		return "", false
	}
	if len(resp.Choices) == 0 {
		return "", false
	}
	return normalizeOCR(resp.Choices[0].Message.Content)
}

func normalizeOCR(s string) (string, bool) {
	text := strings.Join(strings.Fields(s), " ")
	if text == "" || strings.EqualFold(text, noText) {
		return "", false
	}
	return text, true
}
