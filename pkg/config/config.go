// Package config provides unified configuration for the weiche gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WEICHE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/rhuss/weiche/pkg/api"
)

// Config holds all configuration for the weiche gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Providers     []ProviderSpec      `yaml:"providers"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
	MaxBodySize  int64         `yaml:"max_body_size"` // default: 10 MiB
}

// ProviderSpec describes one configured backend in the YAML file.
// Enabled is a pointer so an omitted field defaults to true rather
// than false.
type ProviderSpec struct {
	Name           string                           `yaml:"name"`
	Kind           string                           `yaml:"kind"` // "ollama", "openai-compat", or "openai"
	BaseURL        string                           `yaml:"base_url"`
	APIKey         string                           `yaml:"api_key"`
	APIKeyFile     string                           `yaml:"api_key_file"` // _file variant for api_key
	Headers        map[string]string                `yaml:"headers"`
	Timeout        time.Duration                    `yaml:"timeout"` // per-call bound, zero means adapter default
	Enabled        *bool                            `yaml:"enabled"`
	ModelOverrides map[string]api.ModelCapabilities `yaml:"model_overrides"`
}

// Provider converts the spec into the registry form used by the catalog
// and router. File references must already be resolved.
func (p ProviderSpec) Provider() api.ProviderConfig {
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return api.ProviderConfig{
		Name: p.Name,
		Endpoint: api.ProviderEndpoint{
			Kind:         api.ProviderKind(p.Kind),
			BaseURL:      p.BaseURL,
			APIKey:       p.APIKey,
			ExtraHeaders: p.Headers,
			Timeout:      p.Timeout,
		},
		Enabled:        enabled,
		ModelOverrides: p.ModelOverrides,
	}
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			MaxBodySize:  10 << 20,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
