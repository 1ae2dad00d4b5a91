package ollama

// Wire types for the Ollama chat protocol.

// chatRequest is the request body for /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

// chatMessage is a single conversation turn. Images carry raw base64
// payloads without a data-URI prefix.
type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// chatOptions is the sampling options bag.
type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

// chatChunk is one newline-delimited JSON object in a streamed response,
// and also the complete body of a non-streaming response.
type chatChunk struct {
	Model     string       `json:"model"`
	CreatedAt string       `json:"created_at"`
	Message   *chatContent `json:"message,omitempty"`
	Done      bool         `json:"done"`

	// Set on the final chunk.
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`

	// Set instead of Message when the daemon reports an error mid-stream.
	Error string `json:"error,omitempty"`
}

// chatContent is the message payload of a chunk.
type chatContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// tagsResponse is the body of GET /api/tags.
type tagsResponse struct {
	Models []tagModel `json:"models"`
}

// tagModel is one locally available model, e.g. "llama3.2:latest".
type tagModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
}

// errorResponse is the daemon's error envelope for non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}
