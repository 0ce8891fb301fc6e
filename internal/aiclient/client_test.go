// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/picozot/pkg/types"
)

func TestChatClient_GenerateText(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, SystemPrompt, req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "Test prompt", req.Messages[1].Content)
		assert.Equal(t, DefaultTemperature, req.Temperature)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Generated text response"}}]}`))
	}))
	defer ts.Close()

	c := &ChatClient{APIKey: "test-key", Model: "gpt-4", Endpoint: ts.URL, Client: ts.Client()}
	got, err := c.GenerateText(context.Background(), "Test prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Generated text response", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChatClient_CustomOptions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, ReviewMaxTokens, req.MaxTokens)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer ts.Close()

	c := &ChatClient{APIKey: "k", Model: "m", Endpoint: ts.URL, Client: ts.Client()}
	_, err := c.GenerateText(context.Background(), "p", Options{Temperature: 0.2, MaxTokens: ReviewMaxTokens})
	require.NoError(t, err)
}

func TestChatClient_NotInitialized(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	c := &ChatClient{Model: "gpt-4", Endpoint: ts.URL, Client: ts.Client()}
	_, err := c.GenerateText(context.Background(), "Test prompt", Options{})
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no request without an API key")
}

func TestChatClient_APIError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
	}))
	defer ts.Close()

	c := &ChatClient{APIKey: "bad", Model: "gpt-4", Endpoint: ts.URL, Client: ts.Client(), Logger: zap.New(core)}
	_, err := c.GenerateText(context.Background(), "Test prompt", Options{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid API key", apiErr.Message)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "errors are not retried")
	assert.Equal(t, 1, logs.FilterMessage("Failed to generate text with AI model").Len())
}

func TestChatClient_StatusTextFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := &ChatClient{APIKey: "k", Model: "m", Endpoint: ts.URL, Client: ts.Client()}
	_, err := c.GenerateText(context.Background(), "p", Options{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}

func TestChatClient_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	c := &ChatClient{APIKey: "k", Model: "m", Endpoint: ts.URL, Client: ts.Client()}
	_, err := c.GenerateText(context.Background(), "p", Options{})
	assert.Error(t, err)
}

func TestChatClient_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &ChatClient{APIKey: "k", Model: "m", Endpoint: ts.URL, Client: ts.Client()}
	_, err := c.GenerateText(ctx, "p", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnthropicClient_GenerateText(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet-4-5", req["model"])
		assert.Equal(t, float64(DefaultMaxTokens), req["max_tokens"])
		assert.Equal(t, DefaultTemperature, req["temperature"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Generated text response"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer ts.Close()

	c := NewAnthropicClient("test-key", "claude-sonnet-4-5", ts.URL+"/v1/messages", ts.Client(), nil)
	got, err := c.GenerateText(context.Background(), "Test prompt", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Generated text response", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnthropicClient_APIError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer ts.Close()

	c := NewAnthropicClient("bad", "claude-sonnet-4-5", ts.URL, ts.Client(), nil)
	_, err := c.GenerateText(context.Background(), "p", Options{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid x-api-key", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "errors are not retried")
}

func TestAnthropicClient_NotInitialized(t *testing.T) {
	c := NewAnthropicClient("", "m", "https://api.anthropic.com/v1/messages", nil, nil)
	_, err := c.GenerateText(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNew_SelectsBackend(t *testing.T) {
	tests := []struct {
		endpoint string
		want     any
	}{
		{"https://api.openai.com/v1/chat/completions", &ChatClient{}},
		{"http://localhost:11434/v1/chat/completions", &ChatClient{}},
		{"https://api.anthropic.com/v1/messages", &AnthropicClient{}},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			g := New(types.Config{APIKey: "k", Model: "m", Endpoint: tt.endpoint})
			assert.IsType(t, tt.want, g)
		})
	}
}

func TestAnthropicBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.anthropic.com/", anthropicBaseURL("https://api.anthropic.com/v1/messages"))
	assert.Equal(t, "https://api.anthropic.com/", anthropicBaseURL("https://api.anthropic.com/"))
	assert.Equal(t, "", anthropicBaseURL(""))
}

func TestPreview(t *testing.T) {
	short := "short prompt"
	if got := preview(short); got != short {
		t.Errorf("preview(%q) = %q", short, got)
	}
	long := string(make([]byte, 150))
	if got := preview(long); len(got) != 103 {
		t.Errorf("preview length = %d, want 103", len(got))
	}

	// byte 100 falls inside a two-byte rune
	accented := "a" + strings.Repeat("é", 80)
	got := preview(accented)
	assert.True(t, utf8.ValidString(got), "preview split a rune: %q", got)
	assert.Equal(t, "a"+strings.Repeat("é", 49)+"...", got)
}
