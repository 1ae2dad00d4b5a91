package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// At least one provider must be configured.
	if len(c.Providers) == 0 {
		errs = append(errs, fmt.Errorf("at least one provider is required"))
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("providers[%d].name is required", i))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d].name %q is duplicated", i, p.Name))
		}
		seen[p.Name] = true

		switch p.Kind {
		case "ollama", "openai-compat", "openai":
			// valid
		default:
			errs = append(errs, fmt.Errorf("providers[%d].kind must be \"ollama\", \"openai-compat\", or \"openai\", got %q", i, p.Kind))
		}

		if p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers[%d].base_url is required", i))
		} else if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("providers[%d].base_url %q is not an absolute URL", i, p.BaseURL))
		}
	}

	return errors.Join(errs...)
}
