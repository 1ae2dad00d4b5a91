package ollama

import (
	"context"
	"strings"
	"testing"

	"github.com/rhuss/weiche/pkg/api"
)

func collectStream(t *testing.T, ctx context.Context, input string) []api.StreamEvent {
	t.Helper()
	ch := make(chan api.StreamEvent, 32)
	parseStream(ctx, strings.NewReader(input), ch)
	close(ch)

	var events []api.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestParseStreamTextAndDone(t *testing.T) {
	input := `{"model":"llama3.2","message":{"role":"assistant","content":"Hel"},"done":false}
{"model":"llama3.2","message":{"role":"assistant","content":"lo"},"done":false}
{"model":"llama3.2","done":true,"prompt_eval_count":12,"eval_count":4}
`
	events := collectStream(t, context.Background(), input)

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[0].Type != api.EventTextDelta || events[0].Text != "Hel" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != api.EventTextDelta || events[1].Text != "lo" {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[2].Type != api.EventTokens || events[2].InputTokens != 12 || events[2].OutputTokens != 4 {
		t.Errorf("events[2] = %+v", events[2])
	}
	if events[3].Type != api.EventDone {
		t.Errorf("events[3] = %+v", events[3])
	}
}

func TestParseStreamDoneWithoutUsage(t *testing.T) {
	input := `{"message":{"content":"hi"},"done":false}
{"done":true}
`
	events := collectStream(t, context.Background(), input)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[1].Type != api.EventDone {
		t.Errorf("last event = %+v, want done", events[1])
	}
}

func TestParseStreamSkipsBlankAndMalformedLines(t *testing.T) {
	input := "\n" + `not json at all
{"message":{"content":"ok"},"done":false}
{"done":true}
`
	events := collectStream(t, context.Background(), input)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "ok" {
		t.Errorf("events[0] = %+v", events[0])
	}
}

func TestParseStreamErrorChunk(t *testing.T) {
	input := `{"message":{"content":"partial"},"done":false}
{"error":"model requires more system memory"}
{"message":{"content":"never seen"},"done":false}
`
	events := collectStream(t, context.Background(), input)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	last := events[1]
	if last.Type != api.EventError || last.Code != "provider_error" {
		t.Errorf("last event = %+v", last)
	}
	if last.Message != "model requires more system memory" {
		t.Errorf("message = %q", last.Message)
	}
}

func TestParseStreamEndsWithoutDone(t *testing.T) {
	input := `{"message":{"content":"trunc"},"done":false}
`
	events := collectStream(t, context.Background(), input)

	last := events[len(events)-1]
	if last.Type != api.EventError || last.Code != "stream_error" {
		t.Errorf("last event = %+v, want stream_error", last)
	}
}

func TestParseStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := `{"message":{"content":"hi"},"done":false}
{"done":true}
`
	events := collectStream(t, ctx, input)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].Type != api.EventError || events[0].Code != "cancelled" {
		t.Errorf("events[0] = %+v", events[0])
	}
}

func TestDecodeResponse(t *testing.T) {
	resp := &chatChunk{
		Message:         &chatContent{Role: "assistant", Content: "complete answer"},
		Done:            true,
		PromptEvalCount: 20,
		EvalCount:       8,
	}
	events := decodeResponse(resp)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != api.EventTextDelta || events[0].Text != "complete answer" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != api.EventTokens || events[1].InputTokens != 20 {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[2].Type != api.EventDone {
		t.Errorf("events[2] = %+v", events[2])
	}
}

func TestDecodeResponseError(t *testing.T) {
	events := decodeResponse(&chatChunk{Error: "model not found"})

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].Type != api.EventError || events[0].Message != "model not found" {
		t.Errorf("events[0] = %+v", events[0])
	}
}
