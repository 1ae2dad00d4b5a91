package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestChatCompletionViaOllama(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions",
		chatBody("local/llama3.2", "Say hello"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var out chatCompletionResponse
	decodeJSON(t, resp, &out)

	if out.Object != "chat.completion" {
		t.Errorf("object = %q", out.Object)
	}
	if !strings.HasPrefix(out.ID, "chatcmpl-") {
		t.Errorf("id = %q, want chatcmpl- prefix", out.ID)
	}
	if out.Model != "local/llama3.2" {
		t.Errorf("model = %q, want identifier echoed back", out.Model)
	}
	if len(out.Choices) != 1 {
		t.Fatalf("choices = %d", len(out.Choices))
	}
	choice := out.Choices[0]
	if choice.Message.Role != "assistant" {
		t.Errorf("role = %q", choice.Message.Role)
	}
	if choice.Message.Content == nil || *choice.Message.Content != "Hello, nice day!" {
		t.Errorf("content = %v", choice.Message.Content)
	}
	if choice.FinishReason != "stop" {
		t.Errorf("finish_reason = %q", choice.FinishReason)
	}
	if out.Usage.PromptTokens != 10 || out.Usage.TotalTokens != out.Usage.PromptTokens+out.Usage.CompletionTokens {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestChatCompletionBareModelName(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions",
		chatBody("llama3.2", "Say hello"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out chatCompletionResponse
	decodeJSON(t, resp, &out)
	// Bare names resolve to the canonical id, which is what gets echoed.
	if out.Model != "local/llama3.2" {
		t.Errorf("model = %q, want canonical id echoed", out.Model)
	}
}

func TestChatCompletionSystemPrompt(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions", map[string]any{
		"model": "local/llama3.2",
		"messages": []map[string]any{
			{"role": "system", "content": "Talk like a pirate."},
			{"role": "user", "content": "Say hello"},
		},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out chatCompletionResponse
	decodeJSON(t, resp, &out)
	if got := *out.Choices[0].Message.Content; got != "Ahoy there, matey!" {
		t.Errorf("content = %q", got)
	}
}

func TestChatCompletionViaOpenAIBackend(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions",
		chatBody("cloud/gpt-4o-mini", "Say hello"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out chatCompletionResponse
	decodeJSON(t, resp, &out)
	if got := *out.Choices[0].Message.Content; got != "Hello, nice day!" {
		t.Errorf("content = %q", got)
	}
	if out.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestChatCompletionToolCall(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions", map[string]any{
		"model": "cloud/gpt-4o-mini",
		"messages": []map[string]any{
			{"role": "user", "content": "What is the weather in SF?"},
		},
		"tools": []map[string]any{
			{
				"type": "function",
				"function": map[string]any{
					"name":        "get_weather",
					"description": "Get the current weather",
					"parameters": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"location": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out chatCompletionResponse
	decodeJSON(t, resp, &out)

	choice := out.Choices[0]
	if choice.FinishReason != "tool_calls" {
		t.Errorf("finish_reason = %q", choice.FinishReason)
	}
	if len(choice.Message.ToolCalls) != 1 {
		t.Fatalf("tool_calls = %+v", choice.Message.ToolCalls)
	}
	call := choice.Message.ToolCalls[0]
	if call.ID != "call_mock_1" || call.Function.Name != "get_weather" {
		t.Errorf("call = %+v", call)
	}
	if !strings.Contains(call.Function.Arguments, "San Francisco") {
		t.Errorf("arguments = %q", call.Function.Arguments)
	}
}

func TestChatCompletionFanOut(t *testing.T) {
	body := chatBody("local/llama3.2", "Say hello")
	body["n"] = 2
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions", body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var out chatCompletionResponse
	decodeJSON(t, resp, &out)

	if len(out.Choices) != 2 {
		t.Fatalf("choices = %d, want 2", len(out.Choices))
	}
	for i, choice := range out.Choices {
		if choice.Index != i {
			t.Errorf("choice %d index = %d", i, choice.Index)
		}
	}
	// Two runs against the same deterministic backend sum their usage.
	if out.Usage.PromptTokens != 20 {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestModelsListing(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/v1/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var list struct {
		Object string `json:"object"`
		Data   []struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &list)

	if list.Object != "list" {
		t.Errorf("object = %q", list.Object)
	}
	ids := map[string]string{}
	for _, m := range list.Data {
		ids[m.ID] = m.OwnedBy
	}
	for id, owner := range map[string]string{
		"local/llama3.2":      "local",
		"local/qwen2.5-coder": "local",
		"cloud/mock-model":    "cloud",
		"cloud/gpt-4o-mini":   "cloud",
	} {
		if got, ok := ids[id]; !ok || got != owner {
			t.Errorf("model %q: owned_by = %q, present = %v", id, got, ok)
		}
	}
}
