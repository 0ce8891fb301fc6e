// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// AnthropicClient calls the Anthropic Messages API through the SDK.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
	model  string
	logger *zap.Logger
}

// NewAnthropicClient builds a client for endpoint, which may be the full
// messages URL (https://api.anthropic.com/v1/messages) or a bare base URL.
// The SDK's own retries are disabled.
func NewAnthropicClient(apiKey, model, endpoint string, httpClient *http.Client, logger *zap.Logger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if base := anthropicBaseURL(endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := anthropic.NewClient(opts...)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicClient{client: &client, apiKey: apiKey, model: model, logger: logger}
}

func anthropicBaseURL(endpoint string) string {
	base := strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	base = strings.TrimSuffix(base, "/v1/messages")
	if base == "" {
		return ""
	}
	return base + "/"
}

// GenerateText sends one Messages request and returns the first text block.
func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotInitialized
	}
	opts = opts.withDefaults()

	c.logger.Debug("Generating text with AI model",
		zap.String("model", c.model), zap.String("prompt", preview(prompt)))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(opts.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(opts.Temperature),
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			mapped := &APIError{StatusCode: apierr.StatusCode, Message: anthropicMessage(apierr)}
			c.logger.Error("Failed to generate text with AI model",
				zap.Int("status", apierr.StatusCode), zap.Error(mapped))
			return "", mapped
		}
		c.logger.Error("Failed to generate text with AI model", zap.Error(err))
		return "", fmt.Errorf("calling AI API: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			c.logger.Debug("Text generated successfully",
				zap.Int64("input_tokens", message.Usage.InputTokens),
				zap.Int64("output_tokens", message.Usage.OutputTokens))
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in AI response")
}

// anthropicMessage pulls error.message out of the raw error body.
func anthropicMessage(apierr *anthropic.Error) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(apierr.RawJSON()), &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	if text := http.StatusText(apierr.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", apierr.StatusCode)
}
