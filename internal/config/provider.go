// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves picozot preferences: defaults, persisted values
// from a PreferenceStore, and an in-memory cache replaced on every save.
package config

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/pkg/types"
)

// Namespace prefixes every persisted preference key.
const Namespace = "extensions.picozot."

// Provider loads, caches and saves the preference map.
type Provider struct {
	store  PreferenceStore
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]any
}

// NewProvider returns a provider over store. A nil store means defaults
// only; saves then fail.
func NewProvider(store PreferenceStore, logger *zap.Logger) *Provider {
	return &Provider{store: store, logger: logging.OrNop(logger)}
}

// Load returns the cached preferences, building them on first use from the
// defaults overlaid with persisted values of the same kind. It never fails.
func (p *Provider) Load() map[string]any {
	p.mu.RLock()
	cached := p.cache
	p.mu.RUnlock()
	if cached != nil {
		return copyValues(cached)
	}

	p.logger.Debug("Loading configuration")
	values := p.read()

	p.mu.Lock()
	if p.cache == nil {
		p.cache = values
	}
	values = copyValues(p.cache)
	p.mu.Unlock()

	p.logger.Debug("Configuration loaded")
	return values
}

// read overlays persisted values on the defaults. A panicking store is
// treated like an unreadable one.
func (p *Provider) read() (values map[string]any) {
	defaults := types.DefaultConfigValues()
	values = types.DefaultConfigValues()

	if p.store == nil {
		p.logger.Warn("Preference store not available, using default configuration")
		return values
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Failed to load configuration from preferences", zap.Any("panic", r))
			values = types.DefaultConfigValues()
		}
	}()

	for _, key := range types.ConfigKeys {
		prefKey := Namespace + key
		if !p.store.Has(prefKey) {
			continue
		}
		v := p.store.Get(prefKey)
		if !sameKind(v, defaults[key]) {
			p.logger.Warn("Ignoring preference with unexpected type",
				zap.String("key", key), zap.String("type", fmt.Sprintf("%T", v)))
			continue
		}
		values[key] = v
	}
	return values
}

// Get returns the cached preferences, loading them if needed.
func (p *Provider) Get() map[string]any {
	return p.Load()
}

// Config returns the typed view of the current preferences.
func (p *Provider) Config() types.Config {
	return types.ConfigFromValues(p.Load())
}

// Save merges partial into the current preferences, persists every key and
// updates the cache. Unknown keys are ignored. It reports success and never
// panics.
func (p *Provider) Save(partial map[string]any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Failed to save configuration", zap.Any("panic", r))
			ok = false
		}
	}()

	p.logger.Debug("Saving configuration")

	merged := p.Load()
	for key, value := range partial {
		if !types.IsConfigKey(key) {
			p.logger.Warn("Ignoring unknown configuration key", zap.String("key", key))
			continue
		}
		merged[key] = value
	}

	if p.store == nil {
		p.logger.Error("Failed to save configuration: no preference store")
		return false
	}

	for _, key := range types.ConfigKeys {
		if err := p.store.Set(Namespace+key, merged[key]); err != nil {
			p.logger.Error("Failed to save configuration to preferences", zap.String("key", key), zap.Error(err))
			return false
		}
	}
	if err := p.store.Flush(); err != nil {
		p.logger.Error("Failed to save configuration to preferences", zap.Error(err))
		return false
	}

	p.mu.Lock()
	p.cache = merged
	p.mu.Unlock()

	p.logger.Debug("Configuration saved")
	return true
}

// Reset saves the default preferences.
func (p *Provider) Reset() bool {
	p.logger.Debug("Resetting configuration to defaults")
	return p.Save(types.DefaultConfigValues())
}

// GetValue returns the preference for key, or def when key is unknown.
func (p *Provider) GetValue(key string, def any) any {
	values := p.Get()
	if v, ok := values[key]; ok {
		return v
	}
	return def
}

// SetValue saves a single preference.
func (p *Provider) SetValue(key string, value any) bool {
	return p.Save(map[string]any{key: value})
}

func sameKind(v, def any) bool {
	if v == nil || def == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.TypeOf(def).Kind()
}

func copyValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
