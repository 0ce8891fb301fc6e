// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/picozot/pkg/types"
)

func TestViperStoreMissingFile(t *testing.T) {
	s, err := NewViperStore(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)
	assert.False(t, s.Has(Namespace+types.KeyModel))
}

func TestViperStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	s, err := NewViperStore(path)
	require.NoError(t, err)
	p := NewProvider(s, nil)
	require.True(t, p.Save(map[string]any{
		types.KeyAPIKey:      "sk-abc",
		types.KeyShowSidebar: false,
	}))

	reopened, err := NewViperStore(path)
	require.NoError(t, err)
	cfg := NewProvider(reopened, nil).Config()
	assert.Equal(t, "sk-abc", cfg.APIKey)
	assert.False(t, cfg.ShowSidebar)
	assert.Equal(t, "gpt-4", cfg.Model)
}

func TestViperStoreReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	content := "extensions:\n  picozot:\n    aiModel: gpt-4o-mini\n    logLevel: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := NewViperStore(path)
	require.NoError(t, err)
	cfg := NewProvider(s, nil).Config()
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestViperStoreUnparseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::not yaml\n\t- ["), 0o644))

	s, err := NewViperStore(path)
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, types.DefaultConfigValues(), NewProvider(s, nil).Load())
}
