package openairesponses

import (
	"context"
	"strings"
	"testing"

	"github.com/rhuss/weiche/pkg/api"
)

// event writes one SSE event frame.
func event(typ, data string) string {
	return "event: " + typ + "\ndata: " + data + "\n\n"
}

func collectStream(t *testing.T, ctx context.Context, input string) []api.StreamEvent {
	t.Helper()
	ch := make(chan api.StreamEvent, 64)
	parseStream(ctx, strings.NewReader(input), ch)
	close(ch)

	var events []api.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestParseStreamTextAndCompletion(t *testing.T) {
	input := event("response.created", `{"response":{"id":"resp_1","status":"in_progress"}}`) +
		event("response.output_text.delta", `{"item_id":"msg_1","output_index":0,"delta":"Hel"}`) +
		event("response.output_text.delta", `{"item_id":"msg_1","output_index":0,"delta":"lo"}`) +
		event("response.output_text.done", `{"item_id":"msg_1","output_index":0,"text":"Hello"}`) +
		event("response.completed", `{"response":{"id":"resp_1","status":"completed","usage":{"input_tokens":8,"output_tokens":2,"total_tokens":10}}}`)

	events := collectStream(t, context.Background(), input)

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[0].Text != "Hel" || events[1].Text != "lo" {
		t.Errorf("text deltas = %+v", events[:2])
	}
	if events[2].Type != api.EventTokens || events[2].InputTokens != 8 || events[2].OutputTokens != 2 {
		t.Errorf("events[2] = %+v", events[2])
	}
	if events[3].Type != api.EventDone {
		t.Errorf("events[3] = %+v", events[3])
	}
}

func TestParseStreamFunctionCall(t *testing.T) {
	input := event("response.output_item.added", `{"output_index":0,"item":{"id":"fc_1","type":"function_call","call_id":"call_7","name":"get_weather"}}`) +
		event("response.function_call_arguments.delta", `{"item_id":"fc_1","output_index":0,"delta":"{\"city\":"}`) +
		event("response.function_call_arguments.delta", `{"item_id":"fc_1","output_index":0,"delta":"\"Oslo\"}"}`) +
		event("response.function_call_arguments.done", `{"item_id":"fc_1","output_index":0,"arguments":"{\"city\":\"Oslo\"}"}`) +
		event("response.completed", `{"response":{"id":"resp_1","status":"completed"}}`)

	events := collectStream(t, context.Background(), input)

	want := []api.EventType{
		api.EventToolCallStart,
		api.EventToolCallDelta,
		api.EventToolCallDelta,
		api.EventToolCallEnd,
		api.EventDone,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("events[%d].Type = %s, want %s", i, events[i].Type, typ)
		}
	}
	// The canonical id is the call_id, not the item id.
	if events[0].ToolCallID != "call_7" || events[0].ToolName != "get_weather" {
		t.Errorf("start = %+v", events[0])
	}
	if events[3].ToolCallID != "call_7" {
		t.Errorf("end = %+v", events[3])
	}
}

func TestParseStreamUnannouncedArgumentDelta(t *testing.T) {
	input := event("response.function_call_arguments.delta", `{"item_id":"fc_ghost","output_index":0,"delta":"{}"}`)

	events := collectStream(t, context.Background(), input)

	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Type != api.EventError || events[0].Code != "protocol_violation" {
		t.Errorf("events[0] = %+v", events[0])
	}
}

func TestParseStreamCompletedClosesDanglingCalls(t *testing.T) {
	input := event("response.output_item.added", `{"output_index":0,"item":{"id":"fc_1","type":"function_call","call_id":"call_1","name":"lookup"}}`) +
		event("response.completed", `{"response":{"id":"resp_1","status":"completed"}}`)

	events := collectStream(t, context.Background(), input)

	if len(events) != 3 {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Type != api.EventToolCallEnd || events[1].ToolCallID != "call_1" {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestParseStreamReasoningAndRefusalDeltas(t *testing.T) {
	input := event("response.reasoning_summary_text.delta", `{"item_id":"rs_1","output_index":0,"delta":"thinking..."}`) +
		event("response.refusal.delta", `{"item_id":"msg_1","output_index":0,"delta":"cannot comply"}`) +
		event("response.completed", `{"response":{"id":"resp_1","status":"completed"}}`)

	events := collectStream(t, context.Background(), input)

	if events[0].Type != api.EventSystemNote || events[0].Text != "thinking..." {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != api.EventSystemNote || events[1].Text != "cannot comply" {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestParseStreamUsageDetails(t *testing.T) {
	input := event("response.completed", `{"response":{"id":"resp_1","status":"completed","usage":{"input_tokens":100,"output_tokens":50,"total_tokens":150,"input_tokens_details":{"cached_tokens":80},"output_tokens_details":{"reasoning_tokens":20}}}}`)

	events := collectStream(t, context.Background(), input)

	var meta *api.ProviderMeta
	for _, ev := range events {
		if ev.Type == api.EventProviderMeta {
			meta = ev.Meta
		}
	}
	if meta == nil {
		t.Fatalf("no meta event: %+v", events)
	}
	if meta.PromptDetails == nil || meta.PromptDetails.CachedTokens != 80 {
		t.Errorf("prompt details = %+v", meta.PromptDetails)
	}
	if meta.CompletionDetails == nil || meta.CompletionDetails.ReasoningTokens != 20 {
		t.Errorf("completion details = %+v", meta.CompletionDetails)
	}
}

func TestParseStreamFailedResponse(t *testing.T) {
	input := event("response.failed", `{"response":{"id":"resp_1","status":"failed","error":{"type":"server_error","message":"model overloaded"}}}`)

	events := collectStream(t, context.Background(), input)

	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Type != api.EventError || events[0].Message != "model overloaded" {
		t.Errorf("events[0] = %+v", events[0])
	}
}

func TestParseStreamErrorEvent(t *testing.T) {
	input := event("error", `{"type":"error","code":"rate_limit_exceeded","message":"slow down"}`)

	events := collectStream(t, context.Background(), input)

	if len(events) != 1 || events[0].Code != "rate_limit_exceeded" || events[0].Message != "slow down" {
		t.Fatalf("events = %+v", events)
	}
}

func TestParseStreamBareSentinelIsError(t *testing.T) {
	input := event("response.output_text.delta", `{"delta":"cut"}`) + "data: [DONE]\n\n"

	events := collectStream(t, context.Background(), input)

	last := events[len(events)-1]
	if last.Type != api.EventError || last.Code != "stream_error" {
		t.Errorf("last = %+v", last)
	}
}

func TestParseStreamEndsWithoutCompletion(t *testing.T) {
	input := event("response.output_text.delta", `{"delta":"cut"}`)

	events := collectStream(t, context.Background(), input)

	last := events[len(events)-1]
	if last.Type != api.EventError || last.Code != "stream_error" {
		t.Errorf("last = %+v", last)
	}
}

func TestParseStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := event("response.output_text.delta", `{"delta":"hi"}`)
	events := collectStream(t, ctx, input)

	if len(events) != 1 || events[0].Code != "cancelled" {
		t.Fatalf("events = %+v", events)
	}
}
