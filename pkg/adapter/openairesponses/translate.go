package openairesponses

import (
	"log/slog"

	"github.com/rhuss/weiche/pkg/api"
)

// buildRequest translates the IR into the Responses API wire shape.
// store is always false: the gateway owns conversation state, the
// backend must not retain it.
func buildRequest(req *api.ChatRequest) responsesRequest {
	out := responsesRequest{
		Model:           req.Model.ModelID,
		Input:           buildInput(req.Messages),
		Store:           false,
		Stream:          req.Stream,
		Temperature:     req.Sampling.Temperature,
		TopP:            req.Sampling.TopP,
		MaxOutputTokens: req.Sampling.MaxTokens,
		User:            req.Metadata[api.MetadataUser],
		SafetyID:        req.SafetyIdentifier,
		PromptCacheKey:  req.CacheKey,
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, responsesTool{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Schema,
			Strict:      tool.Strict,
		})
	}
	out.ToolChoice = buildToolChoice(req.ToolChoice, len(req.Tools) > 0)

	if effort := req.Metadata[api.MetadataReasoningEffort]; effort != "" {
		out.Reasoning = &reasoningConfig{
			Effort:  effort,
			Summary: req.Metadata[api.MetadataReasoningSummary],
		}
	}

	text := buildTextConfig(req)
	out.Text = text

	return out
}

// buildToolChoice maps the policy onto the Responses union. Unlike Chat
// Completions, the allowed-subset mode has a native representation.
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
		return map[string]string{"type": "function", "name": choice.Name}
	case api.ToolChoiceAllowed:
		tools := make([]map[string]string, 0, len(choice.Allowed))
		for _, name := range choice.Allowed {
			tools = append(tools, map[string]string{"type": "function", "name": name})
		}
		return map[string]any{"type": "allowed_tools", "mode": "auto", "tools": tools}
	default:
		return "auto"
	}
}

func buildTextConfig(req *api.ChatRequest) *textConfig {
	var cfg textConfig
	if verbosity := req.Metadata[api.MetadataTextVerbosity]; verbosity != "" {
		cfg.Verbosity = verbosity
	}
	if req.Format != nil {
		switch req.Format.Type {
		case "json_object":
			cfg.Format = map[string]string{"type": "json_object"}
		case "json_schema":
			format := map[string]any{
				"type":   "json_schema",
				"name":   req.Format.SchemaName,
				"schema": req.Format.Schema,
			}
			if req.Format.SchemaDescription != "" {
				format["description"] = req.Format.SchemaDescription
			}
			if req.Format.Strict != nil {
				format["strict"] = *req.Format.Strict
			}
			cfg.Format = format
		}
	}
	if cfg.Format == nil && cfg.Verbosity == "" {
		return nil
	}
	return &cfg
}

// buildInput flattens the conversation into Responses input items: one
// message item per plain message, one function_call item per historical
// tool call, one function_call_output item per tool result.
func buildInput(messages []api.Message) []inputItem {
	items := make([]inputItem, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case api.RoleTool:
			items = append(items, inputItem{
				Type:   "function_call_output",
				CallID: msg.ToolCallID,
				Output: flattenText(msg.Parts),
			})
			continue

		case api.RoleAssistant:
			for _, call := range msg.ToolCalls {
				items = append(items, inputItem{
					Type:      "function_call",
					CallID:    call.ID,
					Name:      call.Name,
					Arguments: call.Arguments,
					Status:    "completed",
				})
			}
			if len(msg.Parts) == 0 {
				continue
			}
			items = append(items, inputItem{
				Type:    "message",
				Role:    string(api.RoleAssistant),
				Content: buildContent(msg.Parts, true),
				Status:  "completed",
			})

		default:
			items = append(items, inputItem{
				Type:    "message",
				Role:    string(msg.Role),
				Content: buildContent(msg.Parts, false),
			})
		}
	}
	return items
}

// buildContent maps parts onto the content union: a plain string for a
// single text part, otherwise an array of typed parts. Assistant history
// messages use the output_text part type, everything else input_text.
func buildContent(parts []api.ContentPart, assistant bool) any {
	if len(parts) == 1 && parts[0].Type == api.PartText {
		return parts[0].Text
	}

	textType := "input_text"
	if assistant {
		textType = "output_text"
	}

	wire := make([]inputContentPart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case api.PartText:
			wire = append(wire, inputContentPart{Type: textType, Text: part.Text})
		case api.PartImage:
			wire = append(wire, inputContentPart{Type: "input_image", ImageURL: part.ImageURL})
		case api.PartFile:
			wire = append(wire, inputContentPart{
				Type:     "input_file",
				FileID:   part.FileID,
				Filename: part.Filename,
				FileData: part.FileData,
			})
		default:
			slog.Debug("dropping content part unsupported by responses input", "part_type", string(part.Type))
		}
	}
	return wire
}

func flattenText(parts []api.ContentPart) string {
	var text string
	for _, part := range parts {
		if part.Type == api.PartText {
			text += part.Text
		}
	}
	return text
}
