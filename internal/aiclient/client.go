// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aiclient issues single request/response calls to a remote
// text-generation endpoint. Two backends share the Generator interface:
// an OpenAI-compatible chat-completions client over net/http and an
// Anthropic Messages client built on the official SDK.
package aiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/pkg/types"
)

// SystemPrompt frames every request.
const SystemPrompt = "You are a helpful assistant specializing in medical research and PICO analysis."

// Sampling defaults applied when Options leaves a field at zero.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000

	// ReviewMaxTokens is the extended budget for literature reviews.
	ReviewMaxTokens = 8000
)

// ErrNotInitialized is returned when no API key is configured.
var ErrNotInitialized = errors.New("AI service not initialized: API key not configured")

// APIError is a non-success response from the generation endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AI API error: %s", e.Message)
}

// Options are per-call sampling parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
}

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
}

// Option customises a client built by New.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// New returns the backend matching cfg.Endpoint: Anthropic endpoints use
// the SDK client, everything else the chat-completions client. A missing
// API key is not an error here; GenerateText reports ErrNotInitialized.
func New(cfg types.Config, opts ...Option) Generator {
	var s settings
	for _, o := range opts {
		o(&s)
	}
	logger := logging.OrNop(s.logger)

	if isAnthropicEndpoint(cfg.Endpoint) {
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.Endpoint, s.httpClient, logger)
	}
	return &ChatClient{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Endpoint: cfg.Endpoint,
		Client:   s.httpClient,
		Logger:   logger,
	}
}

func isAnthropicEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Hostname(), "anthropic.com")
}

// preview shortens a prompt for debug logging.
func preview(s string) string {
	const n = 100
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
