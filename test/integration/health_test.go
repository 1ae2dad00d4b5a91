package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "ok") {
		t.Errorf("body = %q, want to contain 'ok'", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Make at least one gateway request so the counters exist.
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions",
		chatBody("local/llama3.2", "Say hello"))
	readBody(t, resp)

	metrics := getURL(t, testEnv.BaseURL()+"/metrics")
	if metrics.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", metrics.StatusCode)
	}
	body := readBody(t, metrics)

	for _, name := range []string{
		"weiche_requests_total",
		"weiche_provider_requests_total",
		"weiche_provider_tokens_total",
		"weiche_model_discovery_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics exposition missing %s", name)
		}
	}
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")
	readBody(t, resp)

	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header not set")
	}
}
