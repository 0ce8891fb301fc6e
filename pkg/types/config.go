// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Preference keys. The set is fixed; unknown keys are ignored on save.
const (
	KeyAPIKey      = "aiApiKey"
	KeyModel       = "aiModel"
	KeyEndpoint    = "aiApiEndpoint"
	KeyShowSidebar = "showSidebar"
	KeyLogLevel    = "logLevel"
)

// ConfigKeys lists every preference key in a stable order.
var ConfigKeys = []string{KeyAPIKey, KeyModel, KeyEndpoint, KeyShowSidebar, KeyLogLevel}

// Default preference values.
const (
	DefaultModel    = "gpt-4"
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultLogLevel = "info"
)

// DefaultConfigValues returns a fresh map of the default preferences.
func DefaultConfigValues() map[string]any {
	return map[string]any{
		KeyAPIKey:      "",
		KeyModel:       DefaultModel,
		KeyEndpoint:    DefaultEndpoint,
		KeyShowSidebar: true,
		KeyLogLevel:    DefaultLogLevel,
	}
}

// IsConfigKey reports whether key belongs to the fixed preference set.
func IsConfigKey(key string) bool {
	for _, k := range ConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Config is the typed view of the preference map.
type Config struct {
	// APIKey authenticates against the text generation endpoint.
	APIKey string `json:"aiApiKey" yaml:"aiApiKey"`

	// Model is the model identifier sent with every request.
	Model string `json:"aiModel" yaml:"aiModel"`

	// Endpoint is the full chat-completion URL.
	Endpoint string `json:"aiApiEndpoint" yaml:"aiApiEndpoint"`

	// ShowSidebar is kept for compatibility with the add-on's preference
	// pane; the CLI does not read it.
	ShowSidebar bool `json:"showSidebar" yaml:"showSidebar"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

// ConfigFromValues builds a Config from a preference map, falling back to
// the defaults for missing or mistyped entries.
func ConfigFromValues(values map[string]any) Config {
	cfg := Config{
		Model:       DefaultModel,
		Endpoint:    DefaultEndpoint,
		ShowSidebar: true,
		LogLevel:    DefaultLogLevel,
	}
	if v, ok := values[KeyAPIKey].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := values[KeyModel].(string); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := values[KeyEndpoint].(string); ok && v != "" {
		cfg.Endpoint = v
	}
	if v, ok := values[KeyShowSidebar].(bool); ok {
		cfg.ShowSidebar = v
	}
	if v, ok := values[KeyLogLevel].(string); ok && v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Values returns the preference map form of c.
func (c Config) Values() map[string]any {
	return map[string]any{
		KeyAPIKey:      c.APIKey,
		KeyModel:       c.Model,
		KeyEndpoint:    c.Endpoint,
		KeyShowSidebar: c.ShowSidebar,
		KeyLogLevel:    c.LogLevel,
	}
}
