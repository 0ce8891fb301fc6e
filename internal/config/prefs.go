// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// PreferenceStore is a flat key-value store for persisted preferences.
// Keys carry the full namespace (e.g. "extensions.picozot.aiModel").
type PreferenceStore interface {
	Has(key string) bool
	Get(key string) any
	Set(key string, value any) error
	Flush() error
}

// ViperStore persists preferences in a YAML file through a private viper
// instance. Viper treats dots as nesting, so the namespace prefix becomes
// nested YAML maps.
type ViperStore struct {
	v    *viper.Viper
	path string
}

// NewViperStore opens the preference file at path. A missing file yields an
// empty store. A file that cannot be parsed yields an empty store and the
// parse error, so callers can log it and continue.
func NewViperStore(path string) (*ViperStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	s := &ViperStore{v: v, path: path}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading preferences %s: %w", path, err)
	}
	return s, nil
}

// Path returns the preference file location.
func (s *ViperStore) Path() string { return s.path }

// Has reports whether key has a persisted value.
func (s *ViperStore) Has(key string) bool { return s.v.IsSet(key) }

// Get returns the persisted value for key, or nil.
func (s *ViperStore) Get(key string) any { return s.v.Get(key) }

// Set stages value for key; call Flush to persist.
func (s *ViperStore) Set(key string, value any) error {
	s.v.Set(key, value)
	return nil
}

// Flush writes every staged and loaded value back to the preference file.
func (s *ViperStore) Flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing preferences %s: %w", s.path, err)
	}
	return nil
}
