package openairesponses

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/api"
)

// Adapter translates between the IR and the official Responses API.
type Adapter struct {
	client *adapter.EndpointClient
}

var _ adapter.ChatAdapter = (*Adapter)(nil)

// New creates a Responses API adapter.
func New() *Adapter {
	return &Adapter{client: adapter.NewEndpointClient(0)}
}

func (a *Adapter) Kind() api.ProviderKind {
	return api.KindOpenAI
}

func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Tools: true, Vision: true}
}

// DiscoverModels lists models via /v1/models. The listing reports no
// capabilities, so flags come from name patterns; fine-tune ids keep the
// base model's inference (ft:<base>:...).
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
			ID:           string(api.KindOpenAI) + "/" + m.ID,
			Name:         m.ID,
			ProviderName: string(api.KindOpenAI),
			ProviderKind: api.KindOpenAI,
			Capabilities: inferModelCapabilities(m.ID),
		})
	}
	return models, nil
}

// ExecuteChat issues the request against /v1/responses and returns the
// canonical event stream.
func (a *Adapter) ExecuteChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamEvent, error) {
	payload := buildRequest(req)
	endpoint := req.Model.Provider

	if !req.Stream {
		return a.executeOnce(ctx, endpoint, req, payload)
	}

	httpReq, err := a.client.NewJSONRequest(ctx, endpoint, "/v1/responses", payload)
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

func (a *Adapter) executeOnce(ctx context.Context, endpoint api.ProviderEndpoint, req *api.ChatRequest, payload responsesRequest) (<-chan api.StreamEvent, error) {
	callCtx, cancel := adapter.CallContext(ctx, endpoint, req)
	defer cancel()

	httpReq, err := a.client.NewJSONRequest(callCtx, endpoint, "/v1/responses", payload)
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

	var complete responsesResponse
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

// inferModelCapabilities guesses flags from the model id. Embedding,
// audio and image models are not chat targets but still appear in the
// listing; they get conservative defaults.
func inferModelCapabilities(id string) api.ModelCapabilities {
	name := strings.ToLower(id)
	if base, ok := strings.CutPrefix(name, "ft:"); ok {
		if idx := strings.IndexByte(base, ':'); idx >= 0 {
			base = base[:idx]
		}
		name = base
	}

	caps := api.ModelCapabilities{Streaming: true}

	switch {
	case strings.Contains(name, "embedding"),
		strings.Contains(name, "whisper"),
		strings.Contains(name, "tts"),
		strings.Contains(name, "dall-e"):
		caps.Streaming = false
		return caps
	}

	caps.JSON = true
	switch {
	case strings.Contains(name, "gpt-4"),
		strings.Contains(name, "gpt-5"),
		strings.Contains(name, "gpt-3.5-turbo"),
		strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"), strings.HasPrefix(name, "o4"):
		caps.Tools = true
	}
	switch {
	case strings.Contains(name, "gpt-4o"),
		strings.Contains(name, "gpt-4.1"),
		strings.Contains(name, "gpt-5"),
		strings.Contains(name, "gpt-4-turbo"),
		strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"), strings.HasPrefix(name, "o4"):
		caps.Vision = true
	}
	switch {
	case strings.Contains(name, "gpt-4.1"), strings.Contains(name, "gpt-5"):
		caps.ContextLength = 1000000
	case strings.Contains(name, "gpt-4o"), strings.Contains(name, "gpt-4-turbo"),
		strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"), strings.HasPrefix(name, "o4"):
		caps.ContextLength = 128000
	case strings.Contains(name, "gpt-4"):
		caps.ContextLength = 8192
	case strings.Contains(name, "gpt-3.5"):
		caps.ContextLength = 16384
	}
	return caps
}
