package openaichat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/api"
)

// Adapter translates between the IR and the Chat Completions dialect.
type Adapter struct {
	client *adapter.EndpointClient
}

var _ adapter.ChatAdapter = (*Adapter)(nil)

// New creates a Chat Completions adapter.
func New() *Adapter {
	return &Adapter{client: adapter.NewEndpointClient(0)}
}

func (a *Adapter) Kind() api.ProviderKind {
	return api.KindOpenAICompat
}

func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Tools: true, Vision: true}
}

// DiscoverModels lists the backend's models via /v1/models. Backends in
// this dialect rarely report capabilities, so flags are inferred from
// the model id; the catalog may override them from configuration.
func (a *Adapter) DiscoverModels(ctx context.Context, endpoint api.ProviderEndpoint) ([]api.DiscoveredModel, error) {
	callCtx, cancel := adapter.CallContext(ctx, endpoint, nil)
	defer cancel()

	req, err := a.client.NewGetRequest(callCtx, endpoint, "/v1/models")
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp)
	}

	var list modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, api.HTTPError("parsing model list: %s", err.Error())
	}

	models := make([]api.DiscoveredModel, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, api.DiscoveredModel{
			ID:           string(api.KindOpenAICompat) + "/" + m.ID,
			Name:         m.ID,
			ProviderName: string(api.KindOpenAICompat),
			ProviderKind: api.KindOpenAICompat,
			Capabilities: inferModelCapabilities(m.ID),
		})
	}
	return models, nil
}

// ExecuteChat issues the request against /v1/chat/completions and
// returns the canonical event stream.
func (a *Adapter) ExecuteChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamEvent, error) {
	payload := buildChatRequest(req)
	endpoint := req.Model.Provider

	if !req.Stream {
		return a.executeOnce(ctx, endpoint, req, payload)
	}

	httpReq, err := a.client.NewJSONRequest(ctx, endpoint, "/v1/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := a.client.DoStream(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, mapHTTPError(resp)
	}

	ch := make(chan api.StreamEvent, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		parseStream(ctx, resp.Body, ch)
	}()
	return ch, nil
}

func (a *Adapter) executeOnce(ctx context.Context, endpoint api.ProviderEndpoint, req *api.ChatRequest, payload chatCompletionRequest) (<-chan api.StreamEvent, error) {
	callCtx, cancel := adapter.CallContext(ctx, endpoint, req)
	defer cancel()

	httpReq, err := a.client.NewJSONRequest(callCtx, endpoint, "/v1/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp)
	}

	var complete chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&complete); err != nil {
		return nil, api.HTTPError("parsing backend response: %s", err.Error())
	}

	events := decodeResponse(&complete)
	ch := make(chan api.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// inferModelCapabilities guesses capability flags from well-known name
// patterns. This is a best-effort default for backends that report
// nothing, not a guarantee; explicit configuration wins over it.
func inferModelCapabilities(id string) api.ModelCapabilities {
	name := strings.ToLower(id)

	caps := api.ModelCapabilities{
		Streaming: true,
		JSON:      true,
	}

	switch {
	case strings.Contains(name, "gpt-4"),
		strings.Contains(name, "gpt-3.5-turbo"),
		strings.Contains(name, "gpt-5"),
		strings.Contains(name, "o1"), strings.Contains(name, "o3"), strings.Contains(name, "o4"),
		strings.Contains(name, "claude"),
		strings.Contains(name, "command"),
		strings.Contains(name, "mistral"), strings.Contains(name, "mixtral"),
		strings.Contains(name, "qwen"),
		strings.Contains(name, "llama-3"), strings.Contains(name, "llama3"):
		caps.Tools = true
	}

	switch {
	case strings.Contains(name, "vision"),
		strings.Contains(name, "gpt-4o"),
		strings.Contains(name, "gpt-4.1"),
		strings.Contains(name, "claude-3"), strings.Contains(name, "claude-4"),
		strings.Contains(name, "llava"),
		strings.Contains(name, "-vl"):
		caps.Vision = true
	}

	switch {
	case strings.Contains(name, "gpt-4o"), strings.Contains(name, "gpt-4-turbo"),
		strings.Contains(name, "gpt-4.1"):
		caps.ContextLength = 128000
	case strings.Contains(name, "gpt-4-32k"):
		caps.ContextLength = 32768
	case strings.Contains(name, "gpt-4"):
		caps.ContextLength = 8192
	case strings.Contains(name, "gpt-3.5-turbo-16k"):
		caps.ContextLength = 16384
	case strings.Contains(name, "gpt-3.5"):
		caps.ContextLength = 4096
	case strings.Contains(name, "claude"):
		caps.ContextLength = 200000
	}

	return caps
}
