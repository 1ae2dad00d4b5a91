// Package integration provides integration tests for the weiche gateway.
//
// Tests run against a real gateway HTTP server backed by two mock
// backends, one speaking the Ollama chat protocol and one speaking the
// OpenAI Chat Completions protocol, all started in-process using
// net/http/httptest.
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/adapter/ollama"
	"github.com/rhuss/weiche/pkg/adapter/openaichat"
	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/catalog"
	"github.com/rhuss/weiche/pkg/observability"
	"github.com/rhuss/weiche/pkg/skin/openai"
	"github.com/rhuss/weiche/pkg/transport"
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the gateway server and the mock backends.
type TestEnvironment struct {
	Gateway       *httptest.Server
	OllamaBackend *httptest.Server
	OpenAIBackend *httptest.Server
}

// TestMain starts the mock backends and the gateway before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment starts both mock backends and a gateway wired to
// them through the production middleware chain.
func setupTestEnvironment() *TestEnvironment {
	ollamaBackend := startMockOllama()
	openaiBackend := startMockOpenAI()

	registry := adapter.NewRegistry()
	registry.Register(ollama.New())
	registry.Register(openaichat.New())
	router := adapter.NewRouter(registry)

	cat := catalog.New()
	cat.AddProvider(api.ProviderConfig{
		Name:    "local",
		Enabled: true,
		Endpoint: api.ProviderEndpoint{
			Kind:    api.KindOllama,
			BaseURL: ollamaBackend.URL,
		},
	})
	cat.AddProvider(api.ProviderConfig{
		Name:    "cloud",
		Enabled: true,
		Endpoint: api.ProviderEndpoint{
			Kind:    api.KindOpenAICompat,
			BaseURL: openaiBackend.URL,
			APIKey:  "sk-test",
		},
	})
	if n := cat.Discover(context.Background(), registry); n == 0 {
		panic("model discovery found no models")
	}

	handler := openai.NewHandler(router, cat, openai.DefaultConfig())

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	wrapped := transport.Chain(
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(slog.Default()),
	)(observability.MetricsMiddleware(mux))

	return &TestEnvironment{
		Gateway:       httptest.NewServer(wrapped),
		OllamaBackend: ollamaBackend,
		OpenAIBackend: openaiBackend,
	}
}

// Teardown stops all servers.
func (env *TestEnvironment) Teardown() {
	if env.Gateway != nil {
		env.Gateway.Close()
	}
	if env.OllamaBackend != nil {
		env.OllamaBackend.Close()
	}
	if env.OpenAIBackend != nil {
		env.OpenAIBackend.Close()
	}
}

// BaseURL returns the gateway base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Gateway.URL
}

// --- HTTP helpers ---

// postJSON sends a POST request with JSON body and returns the response.
func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// getURL sends a GET request and returns the response.
func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// readSSEData reads an event-stream body and returns the data payloads
// in order, including a trailing "[DONE]" sentinel when present.
func readSSEData(t *testing.T, resp *http.Response) []string {
	t.Helper()
	defer resp.Body.Close()

	var payloads []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			payloads = append(payloads, data)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading event stream: %v", err)
	}
	return payloads
}

// --- Wire shapes read back from the gateway ---

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string  `json:"role"`
			Content   *string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatCompletionChunk struct {
	Object  string `json:"object"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type gatewayError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// chatBody builds a minimal chat completions request body.
func chatBody(model, prompt string) map[string]any {
	return map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
}

// --- Mock Ollama backend ---

// startMockOllama creates an httptest server mimicking an Ollama daemon.
func startMockOllama() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "llama3.2:latest", "size": 2019393189},
				{"name": "qwen2.5-coder:7b", "size": 4683087332},
			},
		})
	})
	mux.HandleFunc("POST /api/chat", handleMockOllamaChat)
	return httptest.NewServer(mux)
}

func handleMockOllamaChat(w http.ResponseWriter, r *http.Request) {
	var req mockChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid request body"}`))
		return
	}

	prompt := strings.ToLower(req.lastUserMessage())
	if strings.Contains(prompt, "explode") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"daemon exploded"}`))
		return
	}

	tokens := req.tokens()

	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":      req.Model,
			"created_at": time.Now().UTC().Format(time.RFC3339),
			"message": map[string]any{
				"role":    "assistant",
				"content": strings.Join(tokens, ""),
			},
			"done":              true,
			"prompt_eval_count": 10,
			"eval_count":        len(tokens),
		})
		return
	}

	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")

	enc := json.NewEncoder(w)
	for i, token := range tokens {
		// Mid-stream failure trigger: one delta then an error chunk.
		if strings.Contains(prompt, "midfail") && i == 1 {
			enc.Encode(map[string]any{"error": "model crashed"})
			flusher.Flush()
			return
		}
		enc.Encode(map[string]any{
			"model":      req.Model,
			"created_at": time.Now().UTC().Format(time.RFC3339),
			"message":    map[string]any{"role": "assistant", "content": token},
			"done":       false,
		})
		flusher.Flush()
	}
	enc.Encode(map[string]any{
		"model":             req.Model,
		"created_at":        time.Now().UTC().Format(time.RFC3339),
		"message":           map[string]any{"role": "assistant", "content": ""},
		"done":              true,
		"prompt_eval_count": 10,
		"eval_count":        len(tokens),
	})
	flusher.Flush()
}

// --- Mock OpenAI-compatible backend ---

// startMockOpenAI creates an httptest server mimicking a Chat Completions API.
func startMockOpenAI() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "mock-model", "object": "model", "owned_by": "mock"},
				{"id": "gpt-4o-mini", "object": "model", "owned_by": "mock"},
			},
		})
	})
	mux.HandleFunc("POST /v1/chat/completions", handleMockChatCompletions)
	return httptest.NewServer(mux)
}

func handleMockChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req mockChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	if strings.Contains(strings.ToLower(req.lastUserMessage()), "explode") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"backend exploded","type":"server_error"}}`))
		return
	}

	if req.Stream {
		handleMockStreamingCompletions(w, &req)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if len(req.Tools) > 0 {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-mock-tool", "object": "chat.completion", "model": req.Model,
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": nil,
						"tool_calls": []map[string]any{
							{
								"id":   "call_mock_1",
								"type": "function",
								"function": map[string]any{
									"name":      "get_weather",
									"arguments": `{"location":"San Francisco"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
			"usage": map[string]any{
				"prompt_tokens": 20, "completion_tokens": 15, "total_tokens": 35,
			},
		})
		return
	}

	text := strings.Join(req.tokens(), "")
	json.NewEncoder(w).Encode(map[string]any{
		"id": "chatcmpl-mock-text", "object": "chat.completion", "model": req.Model,
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15,
		},
	})
}

func handleMockStreamingCompletions(w http.ResponseWriter, req *mockChatRequest) {
	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	writeMockChunk(w, req.Model, "", true)
	flusher.Flush()

	tokens := req.tokens()
	for _, token := range tokens {
		writeMockChunk(w, req.Model, token, false)
		flusher.Flush()
	}

	finish, _ := json.Marshal(map[string]any{
		"id": "chatcmpl-mock-stream", "object": "chat.completion.chunk", "model": req.Model,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]any{}, "finish_reason": "stop"},
		},
		"usage": map[string]any{
			"prompt_tokens": 10, "completion_tokens": len(tokens), "total_tokens": 10 + len(tokens),
		},
	})
	fmt.Fprintf(w, "data: %s\n\n", finish)
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeMockChunk(w http.ResponseWriter, model, content string, isRole bool) {
	delta := map[string]any{}
	if isRole {
		delta["role"] = "assistant"
	}
	if content != "" {
		delta["content"] = content
	}
	data, _ := json.Marshal(map[string]any{
		"id": "chatcmpl-mock-stream", "object": "chat.completion.chunk", "model": model,
		"choices": []map[string]any{
			{"index": 0, "delta": delta, "finish_reason": nil},
		},
	})
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Shared mock request handling ---

type mockChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
	Tools  []any `json:"tools"`
	Stream bool  `json:"stream"`
}

func (r *mockChatRequest) lastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role != "user" {
			continue
		}
		switch v := r.Messages[i].Content.(type) {
		case string:
			return v
		case []any:
			for _, part := range v {
				if m, ok := part.(map[string]any); ok {
					if text, ok := m["text"].(string); ok {
						return text
					}
				}
			}
		}
	}
	return ""
}

func (r *mockChatRequest) hasSystemPrompt() bool {
	for _, msg := range r.Messages {
		if msg.Role == "system" || msg.Role == "developer" {
			return true
		}
	}
	return false
}

// tokens picks the deterministic token sequence from the prompt.
func (r *mockChatRequest) tokens() []string {
	prompt := strings.ToLower(r.lastUserMessage())
	if strings.Contains(prompt, "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	if r.hasSystemPrompt() {
		return []string{"Ahoy", " there", ", ", "matey", "!"}
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}
