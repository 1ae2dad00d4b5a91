package openai

import (
	"net/http"
	"time"

	"github.com/rhuss/weiche/pkg/api"
)

// streamChatCompletion re-encodes the canonical event stream as Chat
// Completions SSE chunks. Tool-call events are re-assembled into wire
// tool_calls deltas with stable per-stream indexes. An error before the
// first frame is returned for a plain JSON response; an error once
// streaming has begun aborts the stream with an error frame and no
// [DONE] sentinel.
func streamChatCompletion(w http.ResponseWriter, events <-chan api.StreamEvent, requestID, modelAlias string) *api.AdapterError {
	sse := newSSEWriter(w)

	toolIndex := make(map[string]int)
	sawToolCalls := false
	roleSent := false
	var usage *wireUsage
	var meta *api.ProviderMeta

	chunk := func(delta wireChunkDelta, finish *string) wireChunk {
		return wireChunk{
			ID:      "chatcmpl-" + requestID,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   modelAlias,
			Choices: []wireChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		}
	}
	send := func(delta wireChunkDelta, finish *string) *api.AdapterError {
		if !roleSent {
			delta.Role = "assistant"
			roleSent = true
		}
		if err := sse.writeData(chunk(delta, finish)); err != nil {
			return api.HTTPError("client write failed: %s", err.Error())
		}
		return nil
	}

	for ev := range events {
		switch ev.Type {
		case api.EventTextDelta:
			text := ev.Text
			if err := send(wireChunkDelta{Content: &text}, nil); err != nil {
				return nil
			}

		case api.EventToolCallStart:
			idx := len(toolIndex)
			toolIndex[ev.ToolCallID] = idx
			sawToolCalls = true
			delta := wireChunkDelta{ToolCalls: []wireChunkToolCall{{
				Index:    idx,
				ID:       ev.ToolCallID,
				Type:     "function",
				Function: &wireFunctionCall{Name: ev.ToolName},
			}}}
			if err := send(delta, nil); err != nil {
				return nil
			}

		case api.EventToolCallDelta:
			idx, ok := toolIndex[ev.ToolCallID]
			if !ok {
				continue
			}
			delta := wireChunkDelta{ToolCalls: []wireChunkToolCall{{
				Index:    idx,
				Function: &wireFunctionCall{Arguments: ev.ArgsDelta},
			}}}
			if err := send(delta, nil); err != nil {
				return nil
			}

		case api.EventToolCallEnd:
			// The wire has no per-call end; the finish_reason on the final
			// chunk carries the signal.

		case api.EventTokens:
			usage = &wireUsage{
				PromptTokens:     ev.InputTokens,
				CompletionTokens: ev.OutputTokens,
				TotalTokens:      ev.InputTokens + ev.OutputTokens,
			}

		case api.EventProviderMeta:
			meta = ev.Meta

		case api.EventSystemNote, api.EventFinalMessage:
			// Notes have no chunk representation; the final message was
			// already delivered incrementally.

		case api.EventError:
			if !sse.hasStarted() {
				return api.ProviderError(ev.Code, ev.Message)
			}
			sse.writeData(map[string]any{
				"error": map[string]string{
					"message": ev.Message,
					"type":    "provider_error",
					"code":    ev.Code,
				},
			})
			return nil

		case api.EventDone:
			finish := "stop"
			if sawToolCalls {
				finish = "tool_calls"
			}
			final := chunk(wireChunkDelta{}, &finish)
			if usage != nil {
				applyUsageMeta(usage, meta)
				final.Usage = usage
			}
			if meta != nil {
				final.SystemFingerprint = meta.SystemFingerprint
			}
			if err := sse.writeData(final); err != nil {
				return nil
			}
			sse.writeDone()
			return nil
		}
	}
	// Channel closed without a terminal event; treat like an abort.
	if !sse.hasStarted() {
		return api.InternalError("event stream ended without a terminal event")
	}
	return nil
}

// runResult is one collected completion: the aggregated text, completed
// tool calls, last-seen usage, and provider metadata.
type runResult struct {
	text      string
	toolCalls []api.ToolCallSummary
	usage     *wireUsage
	meta      *api.ProviderMeta
}

// collectRun drains one event stream into a runResult. Tool calls are
// re-assembled from their start/delta/end events; a FinalMessage event
// overrides the incremental aggregation. An Error event fails the run.
func collectRun(events <-chan api.StreamEvent) (runResult, *api.AdapterError) {
	var res runResult
	open := make(map[string]int)

	for ev := range events {
		switch ev.Type {
		case api.EventTextDelta:
			res.text += ev.Text

		case api.EventToolCallStart:
			open[ev.ToolCallID] = len(res.toolCalls)
			res.toolCalls = append(res.toolCalls, api.ToolCallSummary{
				ID:   ev.ToolCallID,
				Name: ev.ToolName,
			})

		case api.EventToolCallDelta:
			if idx, ok := open[ev.ToolCallID]; ok {
				res.toolCalls[idx].Arguments += ev.ArgsDelta
			}

		case api.EventTokens:
			res.usage = &wireUsage{
				PromptTokens:     ev.InputTokens,
				CompletionTokens: ev.OutputTokens,
				TotalTokens:      ev.InputTokens + ev.OutputTokens,
			}

		case api.EventProviderMeta:
			res.meta = ev.Meta

		case api.EventFinalMessage:
			res.text = ev.Text
			if len(ev.ToolCalls) > 0 {
				res.toolCalls = ev.ToolCalls
			}

		case api.EventError:
			return runResult{}, api.ProviderError(ev.Code, ev.Message)

		case api.EventDone:
			return res, nil
		}
	}
	return res, nil
}

// encodeChatResponse aggregates the fan-out runs into one Chat
// Completions document: choices indexed in run order, usage summed
// across runs, and fingerprint/token-detail fields synthesized when no
// provider reported them.
func encodeChatResponse(requestID, modelAlias string, runs []runResult) wireChatResponse {
	resp := wireChatResponse{
		ID:          "chatcmpl-" + requestID,
		Object:      "chat.completion",
		Created:     time.Now().Unix(),
		Model:       modelAlias,
		ServiceTier: "default",
	}

	var aggPrompt, aggCompletion int
	var haveUsage bool
	var meta *api.ProviderMeta

	for i, run := range runs {
		finish := "stop"
		var toolCalls []wireToolCall
		for _, call := range run.toolCalls {
			toolCalls = append(toolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		if len(toolCalls) > 0 {
			finish = "tool_calls"
		}

		text := run.text
		resp.Choices = append(resp.Choices, wireChoice{
			Index: i,
			Message: &wireResponseMessage{
				Role:      "assistant",
				Content:   &text,
				ToolCalls: toolCalls,
			},
			FinishReason: finish,
		})

		if run.usage != nil {
			haveUsage = true
			aggPrompt += run.usage.PromptTokens
			aggCompletion += run.usage.CompletionTokens
		}
		if run.meta != nil {
			meta = run.meta
		}
	}

	if haveUsage {
		usage := &wireUsage{
			PromptTokens:     aggPrompt,
			CompletionTokens: aggCompletion,
			TotalTokens:      aggPrompt + aggCompletion,
		}
		applyUsageMeta(usage, meta)
		resp.Usage = usage
	}

	if meta != nil && meta.ServiceTier != "" {
		resp.ServiceTier = meta.ServiceTier
	}
	if meta != nil && meta.SystemFingerprint != "" {
		resp.SystemFingerprint = meta.SystemFingerprint
	} else {
		resp.SystemFingerprint = api.NewFingerprint()
	}
	return resp
}

// applyUsageMeta fills the token-detail blocks from provider metadata,
// defaulting to zeroed structures so callers that expect the fields
// always find them.
func applyUsageMeta(usage *wireUsage, meta *api.ProviderMeta) {
	usage.PromptTokensDetails = &wirePromptTokensDetails{}
	usage.CompletionTokensDetails = &wireCompletionTokensDetails{}
	if meta == nil {
		return
	}
	if d := meta.PromptDetails; d != nil {
		usage.PromptTokensDetails.CachedTokens = d.CachedTokens
		usage.PromptTokensDetails.AudioTokens = d.AudioTokens
	}
	if d := meta.CompletionDetails; d != nil {
		usage.CompletionTokensDetails.ReasoningTokens = d.ReasoningTokens
		usage.CompletionTokensDetails.AudioTokens = d.AudioTokens
		usage.CompletionTokensDetails.AcceptedPredictionTokens = d.AcceptedPredictionTokens
		usage.CompletionTokensDetails.RejectedPredictionTokens = d.RejectedPredictionTokens
	}
}
