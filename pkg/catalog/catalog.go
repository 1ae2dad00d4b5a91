package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/debug"
	"github.com/rhuss/weiche/pkg/observability"
)

// Catalog holds the configured providers and the models found by the
// last discovery pass. All methods are safe for concurrent use; the two
// maps are the only shared state on the request path.
type Catalog struct {
	mu        sync.RWMutex
	providers map[string]api.ProviderConfig
	order     []string

	models     map[string]api.DiscoveredModel
	modelOrder []string
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		providers: make(map[string]api.ProviderConfig),
		models:    make(map[string]api.DiscoveredModel),
	}
}

// AddProvider registers a provider configuration. Registering a second
// provider under the same name replaces the first.
func (c *Catalog) AddProvider(cfg api.ProviderConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.providers[cfg.Name]; !exists {
		c.order = append(c.order, cfg.Name)
	}
	c.providers[cfg.Name] = cfg
}

// Providers returns the registered provider configurations in
// registration order.
func (c *Catalog) Providers() []api.ProviderConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.ProviderConfig, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.providers[name])
	}
	return out
}

// ProviderByName looks up a provider configuration.
func (c *Catalog) ProviderByName(name string) (api.ProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.providers[name]
	return cfg, ok
}

// Discover runs one serialized discovery pass over all enabled providers
// and replaces the model catalog with the result. A provider whose
// listing fails is skipped with a warning; the pass never fails as a
// whole. It returns the number of models discovered.
func (c *Catalog) Discover(ctx context.Context, registry *adapter.Registry) int {
	discovered := make(map[string]api.DiscoveredModel)
	var order []string

	for _, cfg := range c.Providers() {
		if !cfg.Enabled {
			continue
		}
		ad, ok := registry.Get(cfg.Endpoint.Kind)
		if !ok {
			slog.Warn("skipping provider without a registered adapter",
				"provider", cfg.Name,
				"provider_kind", string(cfg.Endpoint.Kind),
			)
			continue
		}

		models, err := ad.DiscoverModels(ctx, cfg.Endpoint)
		if err != nil {
			slog.Warn("model discovery failed for provider",
				"provider", cfg.Name,
				"provider_kind", string(cfg.Endpoint.Kind),
				"error", err.Error(),
			)
			observability.ModelDiscoveryTotal.WithLabelValues(cfg.Name, "error").Inc()
			continue
		}
		observability.ModelDiscoveryTotal.WithLabelValues(cfg.Name, "ok").Inc()

		for _, m := range models {
			m.ProviderName = cfg.Name
			m.ID = cfg.Name + "/" + m.Name
			if override, ok := cfg.ModelOverrides[m.Name]; ok {
				m.Capabilities = override
			}
			if _, exists := discovered[m.ID]; !exists {
				order = append(order, m.ID)
			}
			discovered[m.ID] = m
			debug.Trace("catalog", "discovered model",
				"id", m.ID, "tools", m.Capabilities.Tools, "vision", m.Capabilities.Vision)
		}

		slog.Info("discovered models from provider",
			"provider", cfg.Name,
			"provider_kind", string(cfg.Endpoint.Kind),
			"models", len(models),
		)
	}

	c.mu.Lock()
	c.models = discovered
	c.modelOrder = order
	c.mu.Unlock()
	return len(discovered)
}

// Models returns all discovered models, ordered by provider registration
// then by listing order within a provider.
func (c *Catalog) Models() []api.DiscoveredModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.DiscoveredModel, 0, len(c.modelOrder))
	for _, id := range c.modelOrder {
		out = append(out, c.models[id])
	}
	return out
}

// Model looks up a discovered model by its canonical id.
func (c *Catalog) Model(id string) (api.DiscoveredModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	return m, ok
}

// Resolve maps a caller-supplied model identifier to a ModelRef. Three
// forms are accepted, tried in order: the exact canonical id
// ("provider/model"), the legacy kind-prefixed id ("ollama/model"), and
// the bare model name. All three yield the same ModelRef when they refer
// to the same discovered model; a bare name that matches models from
// several providers resolves to the first by discovery order.
func (c *Catalog) Resolve(identifier string) (api.ModelRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m, ok := c.models[identifier]; ok {
		return c.refFor(m), true
	}

	if prefix, name, found := strings.Cut(identifier, "/"); found {
		kind := api.ProviderKind(prefix)
		for _, id := range c.modelOrder {
			m := c.models[id]
			if m.ProviderKind == kind && m.Name == name {
				return c.refFor(m), true
			}
		}
	}

	for _, id := range c.modelOrder {
		m := c.models[id]
		if m.Name == identifier {
			return c.refFor(m), true
		}
	}

	return api.ModelRef{}, false
}

// refFor builds the ModelRef for a discovered model. The alias is always
// the canonical discovered id, never the identifier the caller supplied,
// so every lookup form produces an identical ref. The endpoint comes
// from the model's provider, falling back to the first configured
// provider of the same kind.
func (c *Catalog) refFor(m api.DiscoveredModel) api.ModelRef {
	if cfg, ok := c.providers[m.ProviderName]; ok {
		return api.ModelRef{Alias: m.ID, Provider: cfg.Endpoint, ModelID: m.Name}
	}
	for _, name := range c.order {
		if cfg := c.providers[name]; cfg.Endpoint.Kind == m.ProviderKind {
			return api.ModelRef{Alias: m.ID, Provider: cfg.Endpoint, ModelID: m.Name}
		}
	}
	return api.ModelRef{Alias: m.ID, ModelID: m.Name}
}
