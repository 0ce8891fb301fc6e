// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides JSON-over-HTTP helpers shared by the API
// clients. Requests are issued exactly once; nothing here retries.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when the caller supplies no client.
const DefaultTimeout = 5 * time.Minute

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

var defaultClient = &http.Client{Timeout: DefaultTimeout}

// Client returns c, or a shared client with DefaultTimeout when c is nil.
func Client(c *http.Client) *http.Client {
	if c == nil {
		return defaultClient
	}
	return c
}

// PostJSON marshals body and POSTs it to url with the given extra headers.
// The caller owns the response body.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return Client(client).Do(req)
}

// GetJSON issues a GET and decodes a 200 response into out. Any other
// status is an error carrying ErrorMessage.
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := Client(client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, ErrorMessage(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// IsSuccess reports whether the status code is 2xx.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// ErrorMessage reads a failed response and returns the server-reported
// message from {"error":{"message":...}} or {"error":"..."}, falling back to
// the HTTP status text. It consumes the body.
func ErrorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	return statusText(resp)
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	if s := strings.TrimSpace(resp.Status); s != "" {
		return s
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
