package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, WEICHE_CONFIG env, ./config.yaml, /etc/weiche/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. WEICHE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/weiche/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check WEICHE_CONFIG env var.
	if envPath := os.Getenv("WEICHE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/weiche/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
//
// WEICHE_BACKEND_URL, WEICHE_BACKEND_KIND and WEICHE_API_KEY together
// describe a single provider for file-less deployments: they update the
// provider named "default" or, if none exists, append one. WEICHE_PROVIDERS
// is a JSON array of full provider specs and replaces the provider list.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEICHE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WEICHE_METRICS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = enabled
		}
	}

	// WEICHE_PROVIDERS: JSON array of provider specs.
	if v := os.Getenv("WEICHE_PROVIDERS"); v != "" {
		specs, err := parseProvidersJSON(v)
		if err == nil && len(specs) > 0 {
			cfg.Providers = specs
		}
	}

	// Single-backend convenience variables.
	url := os.Getenv("WEICHE_BACKEND_URL")
	kind := os.Getenv("WEICHE_BACKEND_KIND")
	key := os.Getenv("WEICHE_API_KEY")
	if url != "" || kind != "" || key != "" {
		spec := findOrAddDefault(cfg)
		if url != "" {
			spec.BaseURL = url
		}
		if kind != "" {
			spec.Kind = kind
		}
		if key != "" {
			spec.APIKey = key
		}
	}
}

// findOrAddDefault returns the provider named "default", appending a new
// entry when the list has no such provider.
func findOrAddDefault(cfg *Config) *ProviderSpec {
	for i := range cfg.Providers {
		if cfg.Providers[i].Name == "default" {
			return &cfg.Providers[i]
		}
	}
	cfg.Providers = append(cfg.Providers, ProviderSpec{
		Name: "default",
		Kind: "openai-compat",
	})
	return &cfg.Providers[len(cfg.Providers)-1]
}

// parseProvidersJSON parses a JSON array of provider specs. Timeouts are
// given in milliseconds since JSON has no duration type.
func parseProvidersJSON(jsonStr string) ([]ProviderSpec, error) {
	var raw []struct {
		Name      string            `json:"name"`
		Kind      string            `json:"kind"`
		BaseURL   string            `json:"base_url"`
		APIKey    string            `json:"api_key"`
		Headers   map[string]string `json:"headers"`
		TimeoutMS int               `json:"timeout_ms"`
		Enabled   *bool             `json:"enabled"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("parsing providers JSON: %w", err)
	}
	specs := make([]ProviderSpec, 0, len(raw))
	for _, r := range raw {
		specs = append(specs, ProviderSpec{
			Name:    r.Name,
			Kind:    r.Kind,
			BaseURL: r.BaseURL,
			APIKey:  r.APIKey,
			Headers: r.Headers,
			Timeout: time.Duration(r.TimeoutMS) * time.Millisecond,
			Enabled: r.Enabled,
		})
	}
	return specs, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// providers[*].api_key_file -> providers[*].api_key
	for i := range cfg.Providers {
		if cfg.Providers[i].APIKeyFile != "" && cfg.Providers[i].APIKey == "" {
			val, err := readSecretFile(cfg.Providers[i].APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers[%d].api_key_file: %w", i, err)
			}
			cfg.Providers[i].APIKey = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
