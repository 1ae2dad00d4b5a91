// Package adapter defines the capability-polymorphic translator contract
// between the canonical IR and one backend's wire protocol, plus the
// registry and router that dispatch requests by provider kind.
package adapter

import (
	"context"

	"github.com/rhuss/weiche/pkg/api"
)

// Capabilities declares what an adapter's protocol family supports. The
// ingress layer consults these for early validation; they are static per
// adapter, not per model.
type Capabilities struct {
	// Tools indicates function/tool call support.
	Tools bool

	// Vision indicates image input support.
	Vision bool
}

// ChatAdapter translates between the canonical IR and one backend wire
// protocol. Implementations must be safe for concurrent use: a single
// adapter instance serves all requests for its kind.
type ChatAdapter interface {
	// Kind returns the adapter's provider kind. It must be stable and
	// unique per implementation; the registry dispatches on it.
	Kind() api.ProviderKind

	// Capabilities returns the static capability flags for this protocol.
	Capabilities() Capabilities

	// DiscoverModels queries the endpoint's model-listing route and
	// normalizes the result into canonical "provider/model" identifiers,
	// inferring capability flags when the backend does not report them.
	// A failure here is isolated per provider by the caller; it never
	// fails a whole discovery pass.
	DiscoverModels(ctx context.Context, endpoint api.ProviderEndpoint) ([]api.DiscoveredModel, error)

	// ExecuteChat translates req into the backend's native request,
	// issues it, and returns a channel of canonical stream events. The
	// channel is closed by the adapter after a terminal event (Done or
	// Error). Pre-stream failures are returned as an error; once the
	// first event has been sent, all failures are event-encoded.
	//
	// The context is the per-request cancellation signal: adapters check
	// it at every chunk boundary and stop reading upstream promptly once
	// it is done, emitting a terminal Error event.
	ExecuteChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamEvent, error)
}
