package adapter

import (
	"context"
	"log/slog"

	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/observability"
)

// Router dispatches an IR request to the adapter matching its target
// provider kind. It performs no retries and no backoff: failures are
// always surfaced to the caller, and resiliency policy stays with the
// ingress/operational layer.
type Router struct {
	registry *Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Registry exposes the underlying adapter registry.
func (r *Router) Registry() *Registry {
	return r.registry
}

// RouteChat resolves the adapter for req's provider kind and delegates to
// ExecuteChat, passing the cancellation context through unchanged. A
// missing adapter fails immediately; the request is never retried.
func (r *Router) RouteChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamEvent, error) {
	kind := req.Model.Provider.Kind
	a, ok := r.registry.Get(kind)
	if !ok {
		// A kind the registry never saw means the caller's configuration
		// names a provider this build cannot serve, not a gateway bug.
		return nil, api.InvalidError("no adapter for provider kind %q", kind)
	}

	slog.Info("routing chat request",
		"request_id", req.RequestID(),
		"model_alias", req.Model.Alias,
		"provider_kind", kind,
		"stream", req.Stream,
	)

	events, err := a.ExecuteChat(ctx, req)
	if err != nil {
		observability.ProviderRequestsTotal.WithLabelValues(string(kind), req.Model.ModelID, "error").Inc()
		return nil, err
	}
	return observability.ObserveStream(string(kind), req.Model.ModelID, events), nil
}
