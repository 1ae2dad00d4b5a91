package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

// streamChat posts a streaming chat request and returns the decoded
// chunk frames plus whether the [DONE] sentinel was seen.
func streamChat(t *testing.T, body map[string]any) ([]chatCompletionChunk, bool) {
	t.Helper()
	body["stream"] = true

	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var chunks []chatCompletionChunk
	done := false
	for _, payload := range readSSEData(t, resp) {
		if payload == "[DONE]" {
			done = true
			break
		}
		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("decoding chunk %q: %v", payload, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, done
}

func TestStreamingViaOllama(t *testing.T) {
	chunks, done := streamChat(t, chatBody("local/llama3.2", "count from 1 to 5"))

	if !done {
		t.Error("stream did not end with [DONE]")
	}
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d", len(chunks))
	}

	// First delta announces the assistant role, deltas reassemble the
	// full text and the final chunk carries finish_reason plus usage.
	if chunks[0].Choices[0].Delta.Role != "assistant" {
		t.Errorf("first delta role = %q", chunks[0].Choices[0].Delta.Role)
	}
	var text strings.Builder
	for _, chunk := range chunks {
		if chunk.Object != "chat.completion.chunk" {
			t.Errorf("object = %q", chunk.Object)
		}
		if len(chunk.Choices) > 0 {
			text.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if text.String() != "1, 2, 3, 4, 5" {
		t.Errorf("reassembled text = %q", text.String())
	}

	last := chunks[len(chunks)-1]
	if last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "stop" {
		t.Errorf("final chunk = %+v", last)
	}
	if last.Usage == nil || last.Usage.PromptTokens != 10 {
		t.Errorf("usage = %+v", last.Usage)
	}
}

func TestStreamingViaOpenAIBackend(t *testing.T) {
	chunks, done := streamChat(t, chatBody("cloud/gpt-4o-mini", "Say hello"))

	if !done {
		t.Error("stream did not end with [DONE]")
	}
	var text strings.Builder
	for _, chunk := range chunks {
		if len(chunk.Choices) > 0 {
			text.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if text.String() != "Hello, nice day!" {
		t.Errorf("reassembled text = %q", text.String())
	}
}

func TestStreamingOnlyFinalChunkCarriesFinish(t *testing.T) {
	chunks, _ := streamChat(t, chatBody("local/llama3.2", "Say hello"))

	for i, chunk := range chunks[:len(chunks)-1] {
		if fr := chunk.Choices[0].FinishReason; fr != nil {
			t.Errorf("chunk %d has finish_reason %q", i, *fr)
		}
	}
}

func TestStreamingMidStreamError(t *testing.T) {
	body := chatBody("local/llama3.2", "midfail please")
	body["stream"] = true

	// Headers are already committed when the backend fails mid-stream,
	// so the status stays 200 and the failure arrives as an error frame.
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat/completions", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}

	payloads := readSSEData(t, resp)
	if len(payloads) == 0 {
		t.Fatal("no frames received")
	}

	sawError := false
	for _, payload := range payloads {
		if payload == "[DONE]" {
			t.Error("stream ended with [DONE] despite backend failure")
		}
		if strings.Contains(payload, `"error"`) && strings.Contains(payload, "model crashed") {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("no error frame in %q", payloads)
	}
}
