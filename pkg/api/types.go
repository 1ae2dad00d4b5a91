package api

import (
	"encoding/json"
	"time"
)

// ProviderKind identifies a backend protocol family. Adapters register
// under exactly one kind; dispatch is by kind, never by provider name.
type ProviderKind string

const (
	// KindOllama is the local model-serving daemon speaking the Ollama
	// JSON chat protocol (newline-delimited JSON streaming).
	KindOllama ProviderKind = "ollama"

	// KindOpenAICompat is any backend speaking the OpenAI Chat Completions
	// protocol (vLLM, LiteLLM, OpenRouter, LM Studio, ...).
	KindOpenAICompat ProviderKind = "openai-compat"

	// KindOpenAI is the official OpenAI Responses API.
	KindOpenAI ProviderKind = "openai"
)

// ProviderEndpoint describes how to reach one configured backend.
type ProviderEndpoint struct {
	Kind         ProviderKind      `json:"kind" yaml:"kind"`
	BaseURL      string            `json:"base_url" yaml:"base_url"`
	APIKey       string            `json:"api_key,omitempty" yaml:"api_key"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty" yaml:"extra_headers"`

	// Timeout bounds a single outbound HTTP call. Zero means the adapter
	// default. Streaming reads are bounded by context cancellation instead.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// ProviderConfig is one registry entry for an enabled backend.
// ModelOverrides replaces inferred capability flags for the named models;
// discovery heuristics never win over an explicit override.
type ProviderConfig struct {
	Name           string                       `json:"name" yaml:"name"`
	Endpoint       ProviderEndpoint             `json:"endpoint" yaml:"endpoint"`
	Enabled        bool                         `json:"enabled" yaml:"enabled"`
	ModelOverrides map[string]ModelCapabilities `json:"model_overrides,omitempty" yaml:"model_overrides"`
}

// ModelCapabilities holds per-model feature flags. For providers that do
// not report capabilities, adapters infer them from model-name patterns;
// those inferred values are best-effort defaults, not guarantees.
type ModelCapabilities struct {
	Streaming     bool `json:"streaming" yaml:"streaming"`
	Tools         bool `json:"tools" yaml:"tools"`
	Vision        bool `json:"vision" yaml:"vision"`
	JSON          bool `json:"json" yaml:"json"`
	MaxTokens     int  `json:"max_tokens,omitempty" yaml:"max_tokens"`
	ContextLength int  `json:"context_length,omitempty" yaml:"context_length"`
}

// DiscoveredModel is one model found by a provider discovery pass.
// ID is the canonical "provider-name/model-name" identifier; Name is the
// provider-native model name sent on the wire.
type DiscoveredModel struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ProviderName string            `json:"provider_name"`
	ProviderKind ProviderKind      `json:"provider_kind"`
	Capabilities ModelCapabilities `json:"capabilities"`
}

// ModelRef is a resolved pairing of a caller-visible alias, a concrete
// provider endpoint, and the provider-native model identifier. Only model
// resolution produces a ModelRef; ingress decoding never constructs one
// directly.
type ModelRef struct {
	Alias    string           `json:"alias"`
	Provider ProviderEndpoint `json:"provider"`
	ModelID  string           `json:"model_id"`
}

// Role is a message author role. Adapters map roles their backend does
// not know (e.g. developer) onto the closest supported one.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType discriminates the ContentPart union.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
	PartBlob  PartType = "blob"
	PartAudio PartType = "audio"
	PartFile  PartType = "file"
)

// ContentPart is one ordered element of a message. Exactly the fields for
// the given Type are set. Adapters that cannot represent a part type must
// degrade it to text or drop it with a diagnostic; they must never reorder
// the surviving parts.
type ContentPart struct {
	Type PartType `json:"type"`

	// PartText
	Text string `json:"text,omitempty"`

	// PartImage
	ImageURL  string `json:"image_url,omitempty"`
	ImageMIME string `json:"image_mime,omitempty"`

	// PartBlob
	BlobID   string `json:"blob_id,omitempty"`
	BlobMIME string `json:"blob_mime,omitempty"`

	// PartAudio: base64 payload plus format name ("wav", "mp3", ...).
	AudioData   string `json:"audio_data,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`

	// PartFile
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart builds an image content part referencing a URL or data URI.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImage, ImageURL: url}
}

// Message is a role plus an ordered sequence of content parts. Part order
// is preserved end to end. ToolCalls carries completed calls on assistant
// history messages; ToolCallID links a tool-result message to the call it
// answers.
type Message struct {
	Role       Role              `json:"role"`
	Parts      []ContentPart     `json:"parts"`
	Name       string            `json:"name,omitempty"`
	ToolCalls  []ToolCallSummary `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
}

// ToolSpec is a named function with a JSON-schema parameter description.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

// ToolChoiceMode enumerates the tool-choice policies.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNamed    ToolChoiceMode = "named"
	ToolChoiceAllowed  ToolChoiceMode = "allowed"
)

// ToolChoice is the tool-choice policy for a request. Name is set for
// ToolChoiceNamed; Allowed lists the permitted subset for ToolChoiceAllowed.
// The ingress layer validates that a named choice references a tool present
// in the request's tool list before the adapter ever sees it.
type ToolChoice struct {
	Mode    ToolChoiceMode `json:"mode"`
	Name    string         `json:"name,omitempty"`
	Allowed []string       `json:"allowed,omitempty"`
}

// Sampling carries decoding parameters. Nil pointer fields mean "not set";
// adapters fill provider-specific defaults only for absent fields and never
// forward meaningless zero values.
type Sampling struct {
	Temperature       *float64           `json:"temperature,omitempty"`
	TopP              *float64           `json:"top_p,omitempty"`
	TopK              *int               `json:"top_k,omitempty"`
	MaxTokens         *int               `json:"max_tokens,omitempty"`
	PresencePenalty   *float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64           `json:"frequency_penalty,omitempty"`
	Stop              []string           `json:"stop,omitempty"`
	ParallelToolCalls *bool              `json:"parallel_tool_calls,omitempty"`
	Seed              *int64             `json:"seed,omitempty"`
	LogitBias         map[string]float64 `json:"logit_bias,omitempty"`
	Logprobs          *bool              `json:"logprobs,omitempty"`
	TopLogprobs       *int               `json:"top_logprobs,omitempty"`
}

// ResponseFormat requests a specific output shape. Type is "text",
// "json_object", or "json_schema"; the schema fields are set only for
// "json_schema".
type ResponseFormat struct {
	Type              string          `json:"type"`
	SchemaName        string          `json:"schema_name,omitempty"`
	SchemaDescription string          `json:"schema_description,omitempty"`
	Schema            json.RawMessage `json:"schema,omitempty"`
	Strict            *bool           `json:"strict,omitempty"`
}

// AudioOutput hints at spoken output rendering.
type AudioOutput struct {
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
}

// UserLocation approximates the caller's location for web search.
type UserLocation struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// WebSearchOptions carries web-search hints through to providers that
// support them.
type WebSearchOptions struct {
	Location    *UserLocation `json:"user_location,omitempty"`
	ContextSize string        `json:"search_context_size,omitempty"`
}

// Prediction carries predicted-output content for providers supporting
// speculative decoding against a known draft.
type Prediction struct {
	Content string `json:"content"`
}

// Metadata keys with defined meaning. Everything else in ChatRequest
// metadata is free-form and forwarded opportunistically.
const (
	// MetadataRequestID is always present: a unique identifier generated
	// once per inbound request and reused across internal retries of the
	// same logical request. N-way fan-out sub-requests each get their own.
	MetadataRequestID = "request_id"

	MetadataUser             = "user"
	MetadataReasoningEffort  = "reasoning_effort"
	MetadataReasoningSummary = "reasoning_summary"
	MetadataTextVerbosity    = "text_verbosity"
)

// ChatRequest is the canonical chat request IR. It is immutable after
// construction: a fresh value is built per inbound request, consumed by
// exactly one adapter call, and discarded.
type ChatRequest struct {
	Model      ModelRef          `json:"model"`
	Messages   []Message         `json:"messages"`
	Tools      []ToolSpec        `json:"tools,omitempty"`
	ToolChoice ToolChoice        `json:"tool_choice"`
	Sampling   Sampling          `json:"sampling"`
	Stream     bool              `json:"stream"`
	Format     *ResponseFormat   `json:"response_format,omitempty"`
	Audio      *AudioOutput      `json:"audio_output,omitempty"`
	WebSearch  *WebSearchOptions `json:"web_search_options,omitempty"`
	Prediction *Prediction       `json:"prediction,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// Timeout overrides the endpoint timeout for this request. Zero means
	// use the endpoint's.
	Timeout time.Duration `json:"request_timeout,omitempty"`

	CacheKey         string `json:"cache_key,omitempty"`
	SafetyIdentifier string `json:"safety_identifier,omitempty"`
}

// RequestID returns the unique request identifier stamped into metadata
// by the ingress layer, or the empty string if none was set.
func (r *ChatRequest) RequestID() string {
	return r.Metadata[MetadataRequestID]
}
