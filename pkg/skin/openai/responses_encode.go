package openai

import (
	"net/http"
	"time"

	"github.com/rhuss/weiche/pkg/api"
)

// Outbound wire shapes for the /v1/responses surface.

type wireResponsesChunk struct {
	ID        string              `json:"id"`
	Object    string              `json:"object"`
	CreatedAt int64               `json:"created_at"`
	Status    string              `json:"status"`
	Output    []wireResponsesItem `json:"output"`
}

type wireResponsesItem struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Status    string                `json:"status"`
	Role      string                `json:"role,omitempty"`
	Content   []wireResponsesText   `json:"content,omitempty"`
	CallID    string                `json:"call_id,omitempty"`
	Name      string                `json:"name,omitempty"`
	Arguments string                `json:"arguments,omitempty"`
}

type wireResponsesText struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type wireResponsesDocument struct {
	ID          string              `json:"id"`
	Object      string              `json:"object"`
	CreatedAt   int64               `json:"created_at"`
	Status      string              `json:"status"`
	Model       string              `json:"model"`
	Output      []wireResponsesItem `json:"output"`
	ServiceTier string              `json:"service_tier"`
	Usage       *wireResponsesUsage `json:"usage,omitempty"`
}

type wireResponsesUsage struct {
	InputTokens        int `json:"input_tokens"`
	InputTokensDetails struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details"`
	OutputTokens        int `json:"output_tokens"`
	OutputTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
	TotalTokens int `json:"total_tokens"`
}

// streamResponses re-encodes the canonical event stream as Responses
// style chunk frames: in_progress message chunks for deltas and a final
// completed chunk. Errors follow the same pre/post first-frame split as
// the chat surface.
func streamResponses(w http.ResponseWriter, events <-chan api.StreamEvent, requestID string) *api.AdapterError {
	sse := newSSEWriter(w)
	msgID := api.NewMessageID()

	frame := func(status, itemStatus, text string) wireResponsesChunk {
		return wireResponsesChunk{
			ID:        "resp_" + requestID,
			Object:    "response.chunk",
			CreatedAt: time.Now().Unix(),
			Status:    status,
			Output: []wireResponsesItem{{
				ID:     msgID,
				Type:   "message",
				Status: itemStatus,
				Role:   "assistant",
				Content: []wireResponsesText{{
					Type: "output_text",
					Text: text,
				}},
			}},
		}
	}

	for ev := range events {
		switch ev.Type {
		case api.EventTextDelta:
			if err := sse.writeData(frame("in_progress", "in_progress", ev.Text)); err != nil {
				return nil
			}

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
			if err := sse.writeData(frame("completed", "completed", "")); err != nil {
				return nil
			}
			sse.writeDone()
			return nil
		}
	}
	if !sse.hasStarted() {
		return api.InternalError("event stream ended without a terminal event")
	}
	return nil
}

// encodeResponsesDocument aggregates one run into a Responses document:
// a completed message item (and one function_call item per tool call),
// usage with detail blocks, and a defaulted service tier.
func encodeResponsesDocument(requestID, modelAlias string, run runResult) wireResponsesDocument {
	doc := wireResponsesDocument{
		ID:          "resp_" + requestID,
		Object:      "response",
		CreatedAt:   time.Now().Unix(),
		Status:      "completed",
		Model:       modelAlias,
		ServiceTier: "default",
	}

	doc.Output = append(doc.Output, wireResponsesItem{
		ID:     api.NewMessageID(),
		Type:   "message",
		Status: "completed",
		Role:   "assistant",
		Content: []wireResponsesText{{
			Type: "output_text",
			Text: run.text,
		}},
	})
	for _, call := range run.toolCalls {
		doc.Output = append(doc.Output, wireResponsesItem{
			ID:        api.NewMessageID(),
			Type:      "function_call",
			Status:    "completed",
			CallID:    call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
		})
	}

	if run.usage != nil {
		usage := &wireResponsesUsage{
			InputTokens:  run.usage.PromptTokens,
			OutputTokens: run.usage.CompletionTokens,
			TotalTokens:  run.usage.PromptTokens + run.usage.CompletionTokens,
		}
		if run.meta != nil {
			if d := run.meta.PromptDetails; d != nil {
				usage.InputTokensDetails.CachedTokens = d.CachedTokens
			}
			if d := run.meta.CompletionDetails; d != nil {
				usage.OutputTokensDetails.ReasoningTokens = d.ReasoningTokens
			}
		}
		doc.Usage = usage
	}
	if run.meta != nil && run.meta.ServiceTier != "" {
		doc.ServiceTier = run.meta.ServiceTier
	}
	return doc
}
