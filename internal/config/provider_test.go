// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/picozot/pkg/types"
)

// memStore is an in-memory PreferenceStore that counts reads and can fail.
type memStore struct {
	values   map[string]any
	hasCalls int
	setErr   error
	flushErr error
	flushes  int
}

func newMemStore(values map[string]any) *memStore {
	if values == nil {
		values = map[string]any{}
	}
	return &memStore{values: values}
}

func (m *memStore) Has(key string) bool {
	m.hasCalls++
	_, ok := m.values[key]
	return ok
}

func (m *memStore) Get(key string) any { return m.values[key] }

func (m *memStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memStore) Flush() error {
	m.flushes++
	return m.flushErr
}

func TestLoadDefaults(t *testing.T) {
	p := NewProvider(newMemStore(nil), nil)

	got := p.Load()
	assert.Equal(t, types.DefaultConfigValues(), got)

	cfg := p.Config()
	assert.Equal(t, "gpt-4", cfg.Model)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.Endpoint)
	assert.True(t, cfg.ShowSidebar)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadNilStoreUsesDefaults(t *testing.T) {
	p := NewProvider(nil, nil)
	assert.Equal(t, types.DefaultConfigValues(), p.Load())
	assert.False(t, p.Save(map[string]any{types.KeyModel: "x"}))
}

func TestLoadOverlaysMatchingTypes(t *testing.T) {
	store := newMemStore(map[string]any{
		Namespace + types.KeyAPIKey:      "sk-test",
		Namespace + types.KeyModel:       "gpt-4o",
		Namespace + types.KeyShowSidebar: "yes", // wrong kind, ignored
		Namespace + types.KeyLogLevel:    42,    // wrong kind, ignored
	})
	p := NewProvider(store, nil)

	got := p.Load()
	assert.Equal(t, "sk-test", got[types.KeyAPIKey])
	assert.Equal(t, "gpt-4o", got[types.KeyModel])
	assert.Equal(t, true, got[types.KeyShowSidebar])
	assert.Equal(t, "info", got[types.KeyLogLevel])
}

func TestLoadIsCached(t *testing.T) {
	store := newMemStore(nil)
	p := NewProvider(store, nil)

	p.Load()
	calls := store.hasCalls
	p.Load()
	p.Get()
	assert.Equal(t, calls, store.hasCalls, "second load should hit the cache")
}

func TestLoadReturnsCopy(t *testing.T) {
	p := NewProvider(newMemStore(nil), nil)
	got := p.Load()
	got[types.KeyModel] = "mutated"
	assert.Equal(t, "gpt-4", p.Load()[types.KeyModel])
}

type panicStore struct{ memStore }

func (p *panicStore) Has(string) bool { panic("boom") }

func TestLoadRecoversFromPanickingStore(t *testing.T) {
	p := NewProvider(&panicStore{}, nil)
	assert.Equal(t, types.DefaultConfigValues(), p.Load())
}

func TestSaveMergesAndPersists(t *testing.T) {
	store := newMemStore(nil)
	p := NewProvider(store, nil)

	ok := p.Save(map[string]any{types.KeyAPIKey: "sk-new", "unknown": "ignored"})
	require.True(t, ok)

	assert.Equal(t, 1, store.flushes)
	for _, key := range types.ConfigKeys {
		_, present := store.values[Namespace+key]
		assert.True(t, present, "key %s should be persisted", key)
	}
	assert.NotContains(t, store.values, Namespace+"unknown")
	assert.Equal(t, "sk-new", p.Get()[types.KeyAPIKey])
	assert.Equal(t, "gpt-4", p.Get()[types.KeyModel])
}

func TestSaveFailureKeepsCache(t *testing.T) {
	tests := []struct {
		name  string
		store *memStore
	}{
		{"set error", &memStore{values: map[string]any{}, setErr: errors.New("read-only")}},
		{"flush error", &memStore{values: map[string]any{}, flushErr: errors.New("disk full")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.store, nil)
			assert.False(t, p.Save(map[string]any{types.KeyModel: "other"}))
			assert.Equal(t, "gpt-4", p.Get()[types.KeyModel])
		})
	}
}

func TestGetValueAndSetValue(t *testing.T) {
	p := NewProvider(newMemStore(nil), nil)

	assert.Equal(t, "gpt-4", p.GetValue(types.KeyModel, "fallback"))
	assert.Equal(t, "fallback", p.GetValue("missing", "fallback"))

	require.True(t, p.SetValue(types.KeyLogLevel, "debug"))
	assert.Equal(t, "debug", p.GetValue(types.KeyLogLevel, nil))
}

func TestReset(t *testing.T) {
	p := NewProvider(newMemStore(nil), nil)
	require.True(t, p.SetValue(types.KeyModel, "gpt-4o"))
	require.True(t, p.Reset())
	assert.Equal(t, types.DefaultConfigValues(), p.Get())
}
