// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/httputil"
	"github.com/pdiddy/picozot/internal/logging"
)

// ChatClient calls an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   *http.Client
	Logger   *zap.Logger
}

// chatRequest is the request body for the chat-completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatMessage is a single message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse captures the fields we read from a completion.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateText sends one chat-completion request and returns the first
// choice's message content.
func (c *ChatClient) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotInitialized
	}
	logger := logging.OrNop(c.Logger)
	opts = opts.withDefaults()

	logger.Debug("Generating text with AI model",
		zap.String("model", c.Model), zap.String("prompt", preview(prompt)))

	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	resp, err := httputil.PostJSON(ctx, c.Client, c.Endpoint, reqBody, map[string]string{
		"Authorization": "Bearer " + c.APIKey,
	})
	if err != nil {
		logger.Error("Failed to generate text with AI model", zap.Error(err))
		return "", fmt.Errorf("calling AI API: %w", err)
	}
	defer resp.Body.Close()

	if !httputil.IsSuccess(resp.StatusCode) {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: httputil.ErrorMessage(resp)}
		logger.Error("Failed to generate text with AI model",
			zap.Int("status", resp.StatusCode), zap.Error(apiErr))
		return "", apiErr
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding AI response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("AI API returned no choices")
	}

	logger.Debug("Text generated successfully")
	return cr.Choices[0].Message.Content, nil
}
