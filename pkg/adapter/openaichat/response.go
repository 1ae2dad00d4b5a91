package openaichat

import (
	"log/slog"

	"github.com/rhuss/weiche/pkg/api"
)

// decodeResponse converts a complete (non-streaming) Chat Completions
// response into the same event vocabulary the streaming path produces:
// start/delta/end for each tool call, one text delta, one Tokens event
// when usage is reported, a FinalMessage, and a terminal Done.
func decodeResponse(resp *chatCompletionResponse) []api.StreamEvent {
	var events []api.StreamEvent

	if len(resp.Choices) == 0 {
		return []api.StreamEvent{api.ErrorEvent("provider_error", "response contained no choices")}
	}
	choice := resp.Choices[0]

	var calls []api.ToolCallSummary
	for _, tc := range choice.Message.ToolCalls {
		events = append(events, api.ToolCallStart(tc.ID, tc.Function.Name))
		if tc.Function.Arguments != "" {
			events = append(events, api.ToolCallDelta(tc.ID, tc.Function.Arguments))
		}
		events = append(events, api.ToolCallEnd(tc.ID))
		calls = append(calls, api.ToolCallSummary{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	text := contentText(choice.Message.Content)
	if text != "" {
		events = append(events, api.TextDelta(text))
	}

	if resp.Usage != nil {
		events = append(events, api.Tokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens))
	}

	if meta := responseMeta(resp); meta != nil {
		events = append(events, api.StreamEvent{Type: api.EventProviderMeta, Meta: meta})
	}

	events = append(events, api.StreamEvent{
		Type:      api.EventFinalMessage,
		Text:      text,
		ToolCalls: calls,
	})
	events = append(events, api.Done())
	return events
}

// contentText extracts the assistant text from the content union: a
// plain string, or the concatenated text parts of a content array.
func contentText(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		var text string
		for _, elem := range v {
			part, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := part["text"].(string); ok {
				text += t
			}
		}
		return text
	default:
		slog.Warn("unexpected content shape in chat completion response")
		return ""
	}
}

func responseMeta(resp *chatCompletionResponse) *api.ProviderMeta {
	meta := api.ProviderMeta{
		SystemFingerprint: resp.SystemFingerprint,
		ServiceTier:       resp.ServiceTier,
	}
	if resp.Usage != nil {
		if d := resp.Usage.PromptTokensDetails; d != nil {
			meta.PromptDetails = &api.PromptTokenDetails{
				CachedTokens: d.CachedTokens,
				AudioTokens:  d.AudioTokens,
			}
		}
		if d := resp.Usage.CompletionTokensDetails; d != nil {
			meta.CompletionDetails = &api.CompletionTokenDetails{
				ReasoningTokens:          d.ReasoningTokens,
				AudioTokens:              d.AudioTokens,
				AcceptedPredictionTokens: d.AcceptedPredictionTokens,
				RejectedPredictionTokens: d.RejectedPredictionTokens,
			}
		}
	}
	if meta == (api.ProviderMeta{}) {
		return nil
	}
	return &meta
}
