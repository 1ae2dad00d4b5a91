package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/api"
)

// Adapter translates between the IR and the Ollama daemon protocol.
type Adapter struct {
	client *adapter.EndpointClient
}

var _ adapter.ChatAdapter = (*Adapter)(nil)

// New creates an Ollama adapter.
func New() *Adapter {
	return &Adapter{client: adapter.NewEndpointClient(0)}
}

// Kind returns the local-daemon provider kind.
func (a *Adapter) Kind() api.ProviderKind {
	return api.KindOllama
}

// Capabilities reports the protocol's static feature flags. The daemon
// protocol has no tool-calling surface; images are carried inline.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Tools: false, Vision: true}
}

// DiscoverModels lists locally available models via /api/tags. Tag
// suffixes (":latest") are stripped from the canonical name.
func (a *Adapter) DiscoverModels(ctx context.Context, endpoint api.ProviderEndpoint) ([]api.DiscoveredModel, error) {
	callCtx, cancel := adapter.CallContext(ctx, endpoint, nil)
	defer cancel()

	req, err := a.client.NewGetRequest(callCtx, endpoint, "/api/tags")
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapStatusError(resp)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, api.HTTPError("parsing model list: %s", err.Error())
	}

	models := make([]api.DiscoveredModel, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Name
		if idx := strings.IndexByte(name, ':'); idx >= 0 {
			name = name[:idx]
		}
		models = append(models, api.DiscoveredModel{
			ID:           string(api.KindOllama) + "/" + name,
			Name:         name,
			ProviderName: string(api.KindOllama),
			ProviderKind: api.KindOllama,
			Capabilities: api.ModelCapabilities{
				Streaming: true,
				Vision:    true,
				JSON:      true,
			},
		})
	}
	return models, nil
}

// ExecuteChat issues the chat request and returns the canonical event
// stream. Streaming responses are newline-delimited JSON; non-streaming
// responses are decoded through the same event vocabulary.
func (a *Adapter) ExecuteChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamEvent, error) {
	payload := buildChatRequest(req)
	endpoint := req.Model.Provider

	if !req.Stream {
		return a.executeOnce(ctx, endpoint, req, payload)
	}

	httpReq, err := a.client.NewJSONRequest(ctx, endpoint, "/api/chat", payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.DoStream(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, mapStatusError(resp)
	}

	ch := make(chan api.StreamEvent, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		parseStream(ctx, resp.Body, ch)
	}()
	return ch, nil
}

func (a *Adapter) executeOnce(ctx context.Context, endpoint api.ProviderEndpoint, req *api.ChatRequest, payload chatRequest) (<-chan api.StreamEvent, error) {
	callCtx, cancel := adapter.CallContext(ctx, endpoint, req)
	defer cancel()

	httpReq, err := a.client.NewJSONRequest(callCtx, endpoint, "/api/chat", payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapStatusError(resp)
	}

	var complete chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&complete); err != nil {
		return nil, api.HTTPError("parsing daemon response: %s", err.Error())
	}

	events := decodeResponse(&complete)
	ch := make(chan api.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// mapStatusError converts a non-2xx daemon response into a provider
// error, parsing the {"error": "..."} envelope when present.
func mapStatusError(resp *http.Response) *api.AdapterError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return api.ProviderError(strconv.Itoa(resp.StatusCode), envelope.Error)
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = "daemon returned HTTP " + strconv.Itoa(resp.StatusCode)
	}
	return api.ProviderError(strconv.Itoa(resp.StatusCode), message)
}
