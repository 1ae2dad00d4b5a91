package openaichat

import (
	"log/slog"

	"github.com/rhuss/weiche/pkg/api"
)

// buildChatRequest translates the IR into a Chat Completions request
// body. Absent sampling fields are omitted rather than defaulted; the
// backend applies its own defaults.
func buildChatRequest(req *api.ChatRequest) chatCompletionRequest {
	out := chatCompletionRequest{
		Model:             req.Model.ModelID,
		Messages:          buildMessages(req.Messages),
		Temperature:       req.Sampling.Temperature,
		TopP:              req.Sampling.TopP,
		MaxTokens:         req.Sampling.MaxTokens,
		Stop:              req.Sampling.Stop,
		Seed:              req.Sampling.Seed,
		LogitBias:         req.Sampling.LogitBias,
		Logprobs:          req.Sampling.Logprobs,
		TopLogprobs:       req.Sampling.TopLogprobs,
		FrequencyPenalty:  req.Sampling.FrequencyPenalty,
		PresencePenalty:   req.Sampling.PresencePenalty,
		ParallelToolCalls: req.Sampling.ParallelToolCalls,
		Stream:            req.Stream,
		User:              req.Metadata[api.MetadataUser],
	}

	if req.Stream {
		out.StreamOptions = &chatStreamOptions{IncludeUsage: true}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Schema,
				Strict:      tool.Strict,
			},
		})
	}
	out.ToolChoice = buildToolChoice(req.ToolChoice, len(req.Tools) > 0)

	if req.Format != nil {
		out.ResponseFormat = buildResponseFormat(req.Format)
	}

	return out
}

// buildToolChoice maps the tool-choice policy onto the wire union:
// a plain string for auto/none/required, an object for a named function.
// The allowed-subset mode has no Chat Completions equivalent and degrades
// to auto with a diagnostic.
func buildToolChoice(choice api.ToolChoice, haveTools bool) any {
	if !haveTools {
		return nil
	}
	switch choice.Mode {
	case api.ToolChoiceNone:
		return "none"
	case api.ToolChoiceRequired:
		return "required"
	case api.ToolChoiceNamed:
		return map[string]any{
			"type":     "function",
			"function": map[string]string{"name": choice.Name},
		}
	case api.ToolChoiceAllowed:
		slog.Debug("allowed-subset tool choice not supported by chat completions, using auto",
			"allowed", choice.Allowed,
		)
		return "auto"
	case api.ToolChoiceAuto, "":
		return "auto"
	default:
		return "auto"
	}
}

func buildResponseFormat(format *api.ResponseFormat) any {
	switch format.Type {
	case "json_object":
		return map[string]string{"type": "json_object"}
	case "json_schema":
		schema := map[string]any{
			"name":   format.SchemaName,
			"schema": format.Schema,
		}
		if format.SchemaDescription != "" {
			schema["description"] = format.SchemaDescription
		}
		if format.Strict != nil {
			schema["strict"] = *format.Strict
		}
		return map[string]any{"type": "json_schema", "json_schema": schema}
	default:
		return nil
	}
}

// buildMessages maps IR messages onto wire messages. A message with a
// single text part uses the plain string content form; anything
// multimodal uses the content-part array.
func buildMessages(messages []api.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		wire := chatMessage{
			Role:       string(mapRole(msg.Role)),
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, chatToolCall{
				ID:   call.ID,
				Type: "function",
				Function: chatFunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		wire.Content = buildContent(msg.Parts)
		out = append(out, wire)
	}
	return out
}

// mapRole passes the developer role through: backends that predate it
// treat unknown roles as system-adjacent, and newer ones honor it.
func mapRole(role api.Role) api.Role {
	return role
}

// buildContent returns a plain string for single-text messages, a part
// array otherwise. Parts the protocol cannot carry degrade to text or
// are dropped with a diagnostic, preserving the order of survivors.
func buildContent(parts []api.ContentPart) any {
	if len(parts) == 1 && parts[0].Type == api.PartText {
		return parts[0].Text
	}
	if len(parts) == 0 {
		return ""
	}

	wire := make([]chatContentPart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case api.PartText:
			wire = append(wire, chatContentPart{Type: "text", Text: part.Text})
		case api.PartImage:
			wire = append(wire, chatContentPart{
				Type:     "image_url",
				ImageURL: &chatImageURL{URL: part.ImageURL},
			})
		case api.PartFile:
			if part.FileData != "" {
				wire = append(wire, chatContentPart{Type: "text", Text: part.FileData})
			} else {
				slog.Debug("dropping file reference without inline data", "file_id", part.FileID)
			}
		default:
			slog.Debug("dropping content part unsupported by chat completions", "part_type", string(part.Type))
		}
	}
	return wire
}
