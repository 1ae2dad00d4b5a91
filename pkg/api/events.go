package api

// EventType classifies one canonical stream event.
type EventType int

const (
	// EventTextDelta carries incremental assistant text.
	EventTextDelta EventType = iota

	// EventToolCallStart opens a tool call: id and function name are set.
	EventToolCallStart

	// EventToolCallDelta carries one argument fragment for an open call.
	// Adapters emit one delta per provider fragment, never batched.
	EventToolCallDelta

	// EventToolCallEnd closes a tool call. Exactly one per opened id.
	EventToolCallEnd

	// EventSystemNote is a diagnostic or reasoning aside (refusals,
	// reasoning summaries, degraded content parts).
	EventSystemNote

	// EventTokens reports token usage as seen so far.
	EventTokens

	// EventFinalMessage carries a fully aggregated assistant message.
	EventFinalMessage

	// EventProviderMeta carries provider-specific response metadata
	// (fingerprint, service tier, token-detail breakdowns).
	EventProviderMeta

	// EventError terminates the stream with a structured error. No events
	// follow an error on the same stream.
	EventError

	// EventDone terminates the stream normally. No events follow it.
	EventDone
)

// String returns the event type name, for logs and test output.
func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventToolCallStart:
		return "tool_call_start"
	case EventToolCallDelta:
		return "tool_call_delta"
	case EventToolCallEnd:
		return "tool_call_end"
	case EventSystemNote:
		return "system_note"
	case EventTokens:
		return "tokens"
	case EventFinalMessage:
		return "final_message"
	case EventProviderMeta:
		return "provider_meta"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// PromptTokenDetails breaks down prompt token usage.
type PromptTokenDetails struct {
	CachedTokens int `json:"cached_tokens"`
	AudioTokens  int `json:"audio_tokens"`
}

// CompletionTokenDetails breaks down completion token usage.
type CompletionTokenDetails struct {
	ReasoningTokens          int `json:"reasoning_tokens"`
	AudioTokens              int `json:"audio_tokens"`
	AcceptedPredictionTokens int `json:"accepted_prediction_tokens"`
	RejectedPredictionTokens int `json:"rejected_prediction_tokens"`
}

// ProviderMeta is provider-specific response metadata surfaced to the skin
// so wire responses can echo it back to the caller.
type ProviderMeta struct {
	SystemFingerprint string                  `json:"system_fingerprint,omitempty"`
	ServiceTier       string                  `json:"service_tier,omitempty"`
	PromptDetails     *PromptTokenDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionDetails *CompletionTokenDetails `json:"completion_tokens_details,omitempty"`
}

// ToolCallSummary is one completed tool call inside a final message.
type ToolCallSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// StreamEvent is one unit of the canonical output vocabulary. The fields
// relevant to the given Type are set; everything else is zero.
//
// For any tool call id the subsequence of events is: one ToolCallStart,
// zero or more ToolCallDeltas, exactly one ToolCallEnd, in that relative
// order. Done and Error are terminal.
type StreamEvent struct {
	Type EventType `json:"type"`

	// EventTextDelta, EventSystemNote, EventFinalMessage.
	Text string `json:"text,omitempty"`

	// Tool call events.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ArgsDelta  string `json:"args_delta,omitempty"`

	// EventTokens.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	// EventFinalMessage.
	ToolCalls []ToolCallSummary `json:"tool_calls,omitempty"`

	// EventProviderMeta.
	Meta *ProviderMeta `json:"meta,omitempty"`

	// EventError.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Terminal reports whether no further events may follow this one.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// TextDelta builds an incremental text event.
func TextDelta(text string) StreamEvent {
	return StreamEvent{Type: EventTextDelta, Text: text}
}

// ToolCallStart opens a tool call stream for the given id.
func ToolCallStart(id, name string) StreamEvent {
	return StreamEvent{Type: EventToolCallStart, ToolCallID: id, ToolName: name}
}

// ToolCallDelta appends one argument fragment to an open tool call.
func ToolCallDelta(id, fragment string) StreamEvent {
	return StreamEvent{Type: EventToolCallDelta, ToolCallID: id, ArgsDelta: fragment}
}

// ToolCallEnd closes a tool call stream.
func ToolCallEnd(id string) StreamEvent {
	return StreamEvent{Type: EventToolCallEnd, ToolCallID: id}
}

// SystemNote builds a diagnostic aside.
func SystemNote(text string) StreamEvent {
	return StreamEvent{Type: EventSystemNote, Text: text}
}

// Tokens reports usage.
func Tokens(input, output int) StreamEvent {
	return StreamEvent{Type: EventTokens, InputTokens: input, OutputTokens: output}
}

// ErrorEvent terminates a stream with a structured error.
func ErrorEvent(code, message string) StreamEvent {
	return StreamEvent{Type: EventError, Code: code, Message: message}
}

// Done terminates a stream normally.
func Done() StreamEvent {
	return StreamEvent{Type: EventDone}
}
