package openairesponses

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/debug"
)

// openCall is a function call announced by response.output_item.added
// whose argument fragments are still arriving. Calls are keyed by the
// owning item id, which every argument event carries.
type openCall struct {
	callID string
	name   string
}

// parseStream reads Responses API SSE events from body and emits
// canonical events on ch. Always ends with a terminal event; the caller
// closes ch. Cancellation is checked at each line boundary.
func parseStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	calls := make(map[string]*openCall)
	var order []string
	var currentEvent string

	for scanner.Scan() {
		if ctx.Err() != nil {
			ch <- api.FromContextError(ctx.Err()).Event()
			return
		}

		line := scanner.Text()
		if line != "" {
			debug.Raw("streaming", line)
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			// The Responses API terminates with response.completed; a bare
			// sentinel without one means the stream was cut short.
			ch <- api.ErrorEvent("stream_error", "stream ended without a completed response")
			return
		}
		if currentEvent == "" {
			continue
		}

		terminal := handleEvent(currentEvent, []byte(data), calls, &order, ch)
		currentEvent = ""
		if terminal {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			ch <- api.FromContextError(ctx.Err()).Event()
			return
		}
		ch <- api.ErrorEvent("stream_error", "SSE stream read error: "+err.Error())
		return
	}
	ch <- api.ErrorEvent("stream_error", "stream ended without a completed response")
}

// handleEvent maps one SSE event onto canonical events. It returns true
// when a terminal event was emitted.
func handleEvent(eventType string, data []byte, calls map[string]*openCall, order *[]string, ch chan<- api.StreamEvent) bool {
	switch eventType {
	case eventTextDelta:
		var d textDeltaData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed text delta", "error", err.Error())
			return false
		}
		if d.Delta != "" {
			ch <- api.TextDelta(d.Delta)
		}

	case eventRefusalDelta, eventReasoningDelta:
		var d textDeltaData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed delta", "event", eventType, "error", err.Error())
			return false
		}
		if d.Delta != "" {
			ch <- api.SystemNote(d.Delta)
		}

	case eventOutputItemAdded:
		var d itemAddedData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed output item", "error", err.Error())
			return false
		}
		if d.Item.Type == "function_call" {
			calls[d.Item.ID] = &openCall{callID: d.Item.CallID, name: d.Item.Name}
			*order = append(*order, d.Item.ID)
			ch <- api.ToolCallStart(d.Item.CallID, d.Item.Name)
		}

	case eventFuncArgsDelta:
		var d funcArgsDeltaData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed argument delta", "error", err.Error())
			return false
		}
		call, open := calls[d.ItemID]
		if !open {
			ch <- api.ErrorEvent("protocol_violation",
				"argument delta for unannounced function call item "+d.ItemID)
			return true
		}
		if d.Delta != "" {
			ch <- api.ToolCallDelta(call.callID, d.Delta)
		}

	case eventFuncArgsDone:
		var d funcArgsDoneData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("skipping malformed argument done", "error", err.Error())
			return false
		}
		call, open := calls[d.ItemID]
		if !open {
			ch <- api.ErrorEvent("protocol_violation",
				"argument completion for unannounced function call item "+d.ItemID)
			return true
		}
		ch <- api.ToolCallEnd(call.callID)
		delete(calls, d.ItemID)

	case eventResponseCompleted:
		var d responseFinishedData
		if err := json.Unmarshal(data, &d); err != nil {
			slog.Warn("malformed completed event, finishing without usage", "error", err.Error())
		}
		// Calls never explicitly finished are closed here rather than
		// treated as a violation.
		for _, itemID := range *order {
			if call, open := calls[itemID]; open {
				ch <- api.ToolCallEnd(call.callID)
				delete(calls, itemID)
			}
		}
		if usage := d.Response.Usage; usage != nil {
			ch <- api.Tokens(usage.InputTokens, usage.OutputTokens)
			if meta := usageMeta(usage); meta != nil {
				ch <- api.StreamEvent{Type: api.EventProviderMeta, Meta: meta}
			}
		}
		ch <- api.Done()
		return true

	case eventResponseFailed:
		var d responseFinishedData
		message := "backend response failed"
		if err := json.Unmarshal(data, &d); err == nil && d.Response.Error != nil {
			message = d.Response.Error.Message
		}
		ch <- api.ErrorEvent("provider_error", message)
		return true

	case eventResponseError:
		var d responseErrorData
		code := "provider_error"
		message := "backend reported an error"
		if err := json.Unmarshal(data, &d); err == nil {
			if d.Code != "" {
				code = d.Code
			}
			if d.Message != "" {
				message = d.Message
			}
		}
		ch <- api.ErrorEvent(code, message)
		return true

	case eventResponseCreated, eventOutputItemDone, eventContentPartAdded,
		eventContentPartDone, eventTextDone, eventRefusalDone, eventReasoningDone:
		// Lifecycle events with nothing to forward.

	default:
		slog.Debug("skipping unknown SSE event type", "event", eventType)
	}
	return false
}

func usageMeta(usage *responsesUsage) *api.ProviderMeta {
	var meta api.ProviderMeta
	if d := usage.InputTokensDetails; d != nil && d.CachedTokens > 0 {
		meta.PromptDetails = &api.PromptTokenDetails{CachedTokens: d.CachedTokens}
	}
	if d := usage.OutputTokensDetails; d != nil && d.ReasoningTokens > 0 {
		meta.CompletionDetails = &api.CompletionTokenDetails{ReasoningTokens: d.ReasoningTokens}
	}
	if meta.PromptDetails == nil && meta.CompletionDetails == nil {
		return nil
	}
	return &meta
}
