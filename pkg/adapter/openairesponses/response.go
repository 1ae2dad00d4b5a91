package openairesponses

import (
	"encoding/json"
	"log/slog"

	"github.com/rhuss/weiche/pkg/api"
)

// decodeResponse converts a complete (non-streaming) response into the
// same event vocabulary as the streaming path: start/delta/end per
// function call, text deltas, a Tokens event when usage is reported, a
// FinalMessage, and a terminal Done.
func decodeResponse(resp *responsesResponse) []api.StreamEvent {
	if resp.Status == "failed" {
		message := "backend response failed"
		if resp.Error != nil {
			message = resp.Error.Message
		}
		return []api.StreamEvent{api.ErrorEvent("provider_error", message)}
	}

	var events []api.StreamEvent
	var text string
	var calls []api.ToolCallSummary

	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			var parts []outputContentPart
			if err := json.Unmarshal(item.Content, &parts); err != nil {
				slog.Warn("skipping unparsable message content", "item_id", item.ID, "error", err.Error())
				continue
			}
			for _, part := range parts {
				switch part.Type {
				case "output_text":
					if part.Text != "" {
						events = append(events, api.TextDelta(part.Text))
						text += part.Text
					}
				case "refusal":
					if part.Refusal != "" {
						events = append(events, api.SystemNote(part.Refusal))
					}
				}
			}

		case "function_call":
			events = append(events, api.ToolCallStart(item.CallID, item.Name))
			if item.Arguments != "" {
				events = append(events, api.ToolCallDelta(item.CallID, item.Arguments))
			}
			events = append(events, api.ToolCallEnd(item.CallID))
			calls = append(calls, api.ToolCallSummary{
				ID:        item.CallID,
				Name:      item.Name,
				Arguments: item.Arguments,
			})

		case "reasoning":
			// Reasoning items carry encrypted or summarized traces; the
			// summary arrives as message content elsewhere, nothing to do.

		default:
			slog.Debug("skipping unknown output item type", "item_type", item.Type)
		}
	}

	if resp.Usage != nil {
		events = append(events, api.Tokens(resp.Usage.InputTokens, resp.Usage.OutputTokens))
		if meta := usageMeta(resp.Usage); meta != nil {
			events = append(events, api.StreamEvent{Type: api.EventProviderMeta, Meta: meta})
		}
	}

	events = append(events, api.StreamEvent{
		Type:      api.EventFinalMessage,
		Text:      text,
		ToolCalls: calls,
	})
	events = append(events, api.Done())
	return events
}
