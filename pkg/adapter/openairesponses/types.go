package openairesponses

import "encoding/json"

// Wire types for the Responses API.

type responsesRequest struct {
	Model           string           `json:"model"`
	Input           []inputItem      `json:"input"`
	Instructions    string           `json:"instructions,omitempty"`
	Tools           []responsesTool  `json:"tools,omitempty"`
	ToolChoice      any              `json:"tool_choice,omitempty"`
	Store           bool             `json:"store"`
	Stream          bool             `json:"stream,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	MaxOutputTokens *int             `json:"max_output_tokens,omitempty"`
	Reasoning       *reasoningConfig `json:"reasoning,omitempty"`
	Text            *textConfig      `json:"text,omitempty"`
	User            string           `json:"user,omitempty"`
	SafetyID        string           `json:"safety_identifier,omitempty"`
	PromptCacheKey  string           `json:"prompt_cache_key,omitempty"`
}

// inputItem is one element of the input array: a message, a prior
// function call, or a function call output.
type inputItem struct {
	Type      string `json:"type"`
	Role      string `json:"role,omitempty"`
	Content   any    `json:"content,omitempty"`
	ID        string `json:"id,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
	Status    string `json:"status,omitempty"`
}

// inputContentPart is one element of a message item's content array.
type inputContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

type reasoningConfig struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type textConfig struct {
	Format    any    `json:"format,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
}

// responsesTool is flat: name and parameters sit beside type, unlike the
// nested Chat Completions shape.
type responsesTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

type responsesResponse struct {
	ID        string          `json:"id"`
	Object    string          `json:"object"`
	CreatedAt int64           `json:"created_at"`
	Status    string          `json:"status"`
	Model     string          `json:"model"`
	Output    []outputItem    `json:"output"`
	Usage     *responsesUsage `json:"usage,omitempty"`
	Error     *responsesError `json:"error,omitempty"`
}

type outputItem struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Role      string          `json:"role,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
}

type outputContentPart struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

type responsesUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	TotalTokens         int `json:"total_tokens"`
	InputTokensDetails  *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
}

type responsesError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// errorEnvelope is the HTTP-level error body, shared with the rest of
// the OpenAI API family.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// SSE event type strings the stream decoder dispatches on.
const (
	eventResponseCreated   = "response.created"
	eventResponseCompleted = "response.completed"
	eventResponseFailed    = "response.failed"
	eventResponseError     = "error"
	eventOutputItemAdded   = "response.output_item.added"
	eventOutputItemDone    = "response.output_item.done"
	eventContentPartAdded  = "response.content_part.added"
	eventContentPartDone   = "response.content_part.done"
	eventTextDelta         = "response.output_text.delta"
	eventTextDone          = "response.output_text.done"
	eventRefusalDelta      = "response.refusal.delta"
	eventRefusalDone       = "response.refusal.done"
	eventFuncArgsDelta     = "response.function_call_arguments.delta"
	eventFuncArgsDone      = "response.function_call_arguments.done"
	eventReasoningDelta    = "response.reasoning_summary_text.delta"
	eventReasoningDone     = "response.reasoning_summary_text.done"
)

type textDeltaData struct {
	ItemID      string `json:"item_id,omitempty"`
	OutputIndex int    `json:"output_index"`
	Delta       string `json:"delta"`
}

type itemAddedData struct {
	OutputIndex int        `json:"output_index"`
	Item        outputItem `json:"item"`
}

type funcArgsDeltaData struct {
	ItemID      string `json:"item_id,omitempty"`
	OutputIndex int    `json:"output_index"`
	Delta       string `json:"delta"`
}

type funcArgsDoneData struct {
	ItemID      string `json:"item_id,omitempty"`
	OutputIndex int    `json:"output_index"`
	Arguments   string `json:"arguments"`
}

type responseFinishedData struct {
	Response responsesResponse `json:"response"`
}

type responseErrorData struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type modelsResponse struct {
	Object string      `json:"object"`
	Data   []modelInfo `json:"data"`
}

type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}
