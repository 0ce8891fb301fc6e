// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key name and the trimmed
// file contents are the value.
//
// Recognised key files: ai-api-key, openai-api-key, anthropic-api-key,
// openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/logging"
)

// Key file names.
const (
	KeyAIAPIKey        = "ai-api-key"
	KeyOpenAIAPIKey    = "openai-api-key"
	KeyAnthropicAPIKey = "anthropic-api-key"
	KeyOpenAlexEmail   = "openalex-email"
)

// Secrets maps key file names to their values.
type Secrets map[string]string

// Load reads all regular, non-hidden files in dir. A missing directory is
// not an error and yields an empty map. Unreadable files are logged and
// skipped.
func Load(dir string, logger *zap.Logger) (Secrets, error) {
	logger = logging.OrNop(logger)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("Could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// APIKey returns the text generation key for endpoint. The generic
// ai-api-key wins; otherwise the provider-specific file is used.
func (s Secrets) APIKey(endpoint string) string {
	if v := s[KeyAIAPIKey]; v != "" {
		return v
	}
	if strings.Contains(endpoint, "anthropic.com") {
		return s[KeyAnthropicAPIKey]
	}
	return s[KeyOpenAIAPIKey]
}
