package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/debug"
)

// DefaultTimeout bounds non-streaming provider calls when the endpoint
// does not configure one.
const DefaultTimeout = 120 * time.Second

// EndpointClient wraps an http.Client configured for one provider
// endpoint. Adapters embed it for the shared request plumbing: base-URL
// joining, bearer credential, extra static headers, endpoint timeout.
type EndpointClient struct {
	httpClient *http.Client
}

// NewEndpointClient creates a client with the given timeout (zero means
// DefaultTimeout).
func NewEndpointClient(timeout time.Duration) *EndpointClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &EndpointClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewJSONRequest builds a POST request with a JSON body against the
// endpoint, applying credential and extra headers.
func (c *EndpointClient) NewJSONRequest(ctx context.Context, endpoint api.ProviderEndpoint, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.InternalError("marshaling provider request: %s", err.Error())
	}

	url := strings.TrimRight(endpoint.BaseURL, "/") + path
	debug.Trace("adapters", "provider request body", "url", url, "bytes", len(body))
	debug.Raw("adapters", string(body))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.HTTPError("building provider request: %s", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	applyEndpointHeaders(req, endpoint)
	return req, nil
}

// NewGetRequest builds a GET request against the endpoint with credential
// and extra headers applied.
func (c *EndpointClient) NewGetRequest(ctx context.Context, endpoint api.ProviderEndpoint, path string) (*http.Request, error) {
	url := strings.TrimRight(endpoint.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, api.HTTPError("building provider request: %s", err.Error())
	}
	applyEndpointHeaders(req, endpoint)
	return req, nil
}

// Do sends a non-streaming request, honoring the per-call timeout from
// the endpoint (or request IR) via the client's configured timeout.
func (c *EndpointClient) Do(req *http.Request) (*http.Response, error) {
	debug.Log("adapters", "provider call", "method", req.Method, "url", req.URL.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, api.FromContextError(ctxErr)
		}
		return nil, api.HTTPError("provider connection error: %s", err.Error())
	}
	return resp, nil
}

// DoStream sends a streaming request. The fixed client timeout is not
// applied: a stream can legitimately outlive any per-call deadline, so
// lifecycle control relies on context cancellation instead.
func (c *EndpointClient) DoStream(req *http.Request) (*http.Response, error) {
	debug.Log("streaming", "provider stream call", "method", req.Method, "url", req.URL.String())
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, api.FromContextError(ctxErr)
		}
		return nil, api.HTTPError("provider connection error: %s", err.Error())
	}
	return resp, nil
}

// Close releases idle connections.
func (c *EndpointClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// CallContext derives a context bounded by the request timeout, falling
// back to the endpoint timeout. The returned cancel must always be
// called. With neither configured, the parent context is returned
// unchanged and the client-level default timeout applies.
func CallContext(ctx context.Context, endpoint api.ProviderEndpoint, req *api.ChatRequest) (context.Context, context.CancelFunc) {
	timeout := endpoint.Timeout
	if req != nil && req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func applyEndpointHeaders(req *http.Request, endpoint api.ProviderEndpoint) {
	if endpoint.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+endpoint.APIKey)
	}
	for k, v := range endpoint.ExtraHeaders {
		req.Header.Set(k, v)
	}
}
