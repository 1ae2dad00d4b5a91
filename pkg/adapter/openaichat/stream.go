package openaichat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/debug"
)

// toolCallBuffer assembles one tool call's argument fragments across
// chunks. Buffers live for the duration of a single stream and are keyed
// by the wire-level tool call index; the id arrives only on the first
// fragment.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// streamState tracks per-stream decoding state: open tool call buffers
// in arrival order and provider metadata accumulated for the final
// ProviderMeta event.
type streamState struct {
	buffers map[int]*toolCallBuffer
	order   []int
	meta    api.ProviderMeta
	usage   *chatUsage
}

func newStreamState() *streamState {
	return &streamState{buffers: make(map[int]*toolCallBuffer)}
}

// parseStream reads Chat Completions SSE chunks from body and emits
// canonical events on ch. It always ends the sequence with a terminal
// event and never writes to ch afterwards. The caller closes ch.
//
// Cancellation is checked at each line boundary; once observed, no
// further upstream bytes are read and a terminal Error is emitted.
func parseStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	state := newStreamState()

	for scanner.Scan() {
		if ctx.Err() != nil {
			ch <- api.FromContextError(ctx.Err()).Event()
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		debug.Raw("streaming", payload)

		if payload == "[DONE]" {
			state.finish(ch)
			return
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", debug.Truncate(payload, 200),
			)
			continue
		}

		if !state.translateChunk(&chunk, ch) {
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

	// The backend closed the connection without the [DONE] sentinel.
	ch <- api.ErrorEvent("stream_error", "stream ended without completion sentinel")
}

// translateChunk converts one chunk into canonical events. It returns
// false when a terminal event was emitted and reading must stop.
func (s *streamState) translateChunk(chunk *chatCompletionChunk, ch chan<- api.StreamEvent) bool {
	s.noteMeta(chunk)

	if len(chunk.Choices) == 0 {
		// Usage-only chunk, sent with stream_options.include_usage after
		// the final choice chunk.
		if chunk.Usage != nil {
			s.noteUsage(chunk.Usage)
			ch <- api.Tokens(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
		}
		return true
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if len(delta.ToolCalls) > 0 {
		if !s.applyToolCallDeltas(delta.ToolCalls, ch) {
			return false
		}
	}

	if delta.Refusal != nil && *delta.Refusal != "" {
		ch <- api.SystemNote(*delta.Refusal)
	}

	if delta.Content != nil && *delta.Content != "" {
		ch <- api.TextDelta(*delta.Content)
	}

	if choice.FinishReason != nil {
		s.closeToolCalls(ch)
		if chunk.Usage != nil {
			s.noteUsage(chunk.Usage)
			ch <- api.Tokens(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
		}
	}
	return true
}

// applyToolCallDeltas opens buffers on first-sight ids and emits one
// ToolCallDelta per wire fragment. A continuation fragment for an index
// that was never opened is a protocol violation and terminates the
// stream with an error.
func (s *streamState) applyToolCallDeltas(calls []chatChunkToolCall, ch chan<- api.StreamEvent) bool {
	for _, tc := range calls {
		buf, open := s.buffers[tc.Index]
		if !open {
			if tc.ID == "" {
				ch <- api.ErrorEvent("protocol_violation",
					"tool call fragment for unopened call at index "+strconv.Itoa(tc.Index))
				return false
			}
			buf = &toolCallBuffer{id: tc.ID, name: tc.Function.Name}
			s.buffers[tc.Index] = buf
			s.order = append(s.order, tc.Index)
			ch <- api.ToolCallStart(buf.id, buf.name)
		}

		if tc.Function.Arguments != "" {
			buf.args.WriteString(tc.Function.Arguments)
			ch <- api.ToolCallDelta(buf.id, tc.Function.Arguments)
		}
	}
	return true
}

// closeToolCalls emits one ToolCallEnd per open buffer, in the order the
// calls were opened, and clears the buffers.
func (s *streamState) closeToolCalls(ch chan<- api.StreamEvent) {
	for _, idx := range s.order {
		buf, ok := s.buffers[idx]
		if !ok {
			continue
		}
		ch <- api.ToolCallEnd(buf.id)
		delete(s.buffers, idx)
	}
	s.order = s.order[:0]
}

// finish handles the [DONE] sentinel: tool calls still open (the backend
// never sent a finish reason) are closed here rather than reported as a
// violation, then accumulated provider metadata and the terminal Done are
// emitted.
func (s *streamState) finish(ch chan<- api.StreamEvent) {
	s.closeToolCalls(ch)
	if meta := s.buildMeta(); meta != nil {
		ch <- api.StreamEvent{Type: api.EventProviderMeta, Meta: meta}
	}
	ch <- api.Done()
}

func (s *streamState) noteMeta(chunk *chatCompletionChunk) {
	if chunk.SystemFingerprint != "" {
		s.meta.SystemFingerprint = chunk.SystemFingerprint
	}
	if chunk.ServiceTier != "" {
		s.meta.ServiceTier = chunk.ServiceTier
	}
}

func (s *streamState) noteUsage(usage *chatUsage) {
	s.usage = usage
}

// buildMeta returns the accumulated provider metadata, or nil when the
// backend reported none of it.
func (s *streamState) buildMeta() *api.ProviderMeta {
	meta := s.meta
	if s.usage != nil {
		if d := s.usage.PromptTokensDetails; d != nil {
			meta.PromptDetails = &api.PromptTokenDetails{
				CachedTokens: d.CachedTokens,
				AudioTokens:  d.AudioTokens,
			}
		}
		if d := s.usage.CompletionTokensDetails; d != nil {
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

