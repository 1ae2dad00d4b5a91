package openai

import (
	"github.com/tidwall/gjson"

	"github.com/rhuss/weiche/pkg/api"
)

// decodeResponsesRequest maps an inbound Responses API request onto the
// canonical form. The input union (plain string, item array, bare part
// array) is inspected with gjson rather than modeled as wire structs.
func decodeResponsesRequest(req *wireResponsesRequest, model api.ModelRef) (*api.ChatRequest, *api.AdapterError) {
	messages, err := decodeResponsesInput(req.Input)
	if err != nil {
		return nil, err
	}
	if req.Instructions != "" {
		messages = append([]api.Message{{
			Role:  api.RoleSystem,
			Parts: []api.ContentPart{api.TextPart(req.Instructions)},
		}}, messages...)
	}
	if len(messages) == 0 {
		return nil, api.InvalidError("input must contain at least one message")
	}

	var tools []api.ToolSpec
	for _, t := range req.Tools {
		if t.Type != "function" {
			continue
		}
		tools = append(tools, api.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Parameters,
			Strict:      t.Strict,
		})
	}
	choice, err := decodeResponsesToolChoice(req.ToolChoice, tools)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		api.MetadataRequestID: api.NewRequestID(),
	}
	if req.User != "" {
		metadata[api.MetadataUser] = req.User
	}
	if req.Reasoning != nil {
		if req.Reasoning.Effort != "" {
			metadata[api.MetadataReasoningEffort] = req.Reasoning.Effort
		}
		if req.Reasoning.Summary != "" {
			metadata[api.MetadataReasoningSummary] = req.Reasoning.Summary
		}
	}
	if req.Text != nil && req.Text.Verbosity != "" {
		metadata[api.MetadataTextVerbosity] = req.Text.Verbosity
	}

	return &api.ChatRequest{
		Model:      model,
		Messages:   messages,
		Tools:      tools,
		ToolChoice: choice,
		Sampling: api.Sampling{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			MaxTokens:   req.MaxOutputTokens,
		},
		Stream:   req.Stream,
		Metadata: metadata,
	}, nil
}

// decodeResponsesInput converts the input union into messages. Item
// arrays may interleave messages with historical function_call and
// function_call_output items.
func decodeResponsesInput(raw []byte) ([]api.Message, *api.AdapterError) {
	input := gjson.ParseBytes(raw)

	switch input.Type {
	case gjson.String:
		return []api.Message{{
			Role:  api.RoleUser,
			Parts: []api.ContentPart{api.TextPart(input.String())},
		}}, nil
	case gjson.JSON:
		if !input.IsArray() {
			return nil, api.InvalidError("input must be a string or an array")
		}
	default:
		return nil, api.InvalidError("input must be a string or an array")
	}

	var messages []api.Message
	var looseText string

	for _, item := range input.Array() {
		if item.Type == gjson.String {
			if looseText != "" {
				looseText += "\n"
			}
			looseText += item.String()
			continue
		}

		switch item.Get("type").String() {
		case "function_call":
			messages = append(messages, api.Message{
				Role: api.RoleAssistant,
				ToolCalls: []api.ToolCallSummary{{
					ID:        item.Get("call_id").String(),
					Name:      item.Get("name").String(),
					Arguments: item.Get("arguments").String(),
				}},
			})

		case "function_call_output":
			messages = append(messages, api.Message{
				Role:       api.RoleTool,
				ToolCallID: item.Get("call_id").String(),
				Parts:      []api.ContentPart{api.TextPart(item.Get("output").String())},
			})

		case "message", "":
			role := decodeRole(item.Get("role").String())
			parts := decodeResponsesContent(item.Get("content"))
			if len(parts) == 0 {
				continue
			}
			messages = append(messages, api.Message{Role: role, Parts: parts})

		default:
			// Unknown item types are skipped rather than rejected; the
			// Responses surface grows faster than any gateway tracks.
		}
	}

	if looseText != "" {
		messages = append(messages, api.Message{
			Role:  api.RoleUser,
			Parts: []api.ContentPart{api.TextPart(looseText)},
		})
	}
	return messages, nil
}

// decodeResponsesContent handles a message item's content: a plain
// string or an array of typed parts (input_text/output_text/input_image).
func decodeResponsesContent(content gjson.Result) []api.ContentPart {
	if content.Type == gjson.String {
		return []api.ContentPart{api.TextPart(content.String())}
	}
	if !content.IsArray() {
		return nil
	}

	var parts []api.ContentPart
	for _, part := range content.Array() {
		switch part.Get("type").String() {
		case "input_text", "output_text", "text":
			parts = append(parts, api.TextPart(part.Get("text").String()))
		case "input_image":
			if url := part.Get("image_url").String(); url != "" {
				parts = append(parts, api.ImagePart(url))
			}
		case "input_file":
			parts = append(parts, api.ContentPart{
				Type:     api.PartFile,
				FileID:   part.Get("file_id").String(),
				Filename: part.Get("filename").String(),
				FileData: part.Get("file_data").String(),
			})
		}
	}
	return parts
}

// decodeResponsesToolChoice normalizes the Responses tool_choice union,
// whose named form carries the function name flat instead of nested.
func decodeResponsesToolChoice(raw []byte, tools []api.ToolSpec) (api.ToolChoice, *api.AdapterError) {
	if len(raw) == 0 {
		return api.ToolChoice{Mode: api.ToolChoiceAuto}, nil
	}

	choice := gjson.ParseBytes(raw)
	if choice.Type == gjson.String {
		switch choice.String() {
		case "none":
			return api.ToolChoice{Mode: api.ToolChoiceNone}, nil
		case "required":
			return api.ToolChoice{Mode: api.ToolChoiceRequired}, nil
		case "auto", "":
			return api.ToolChoice{Mode: api.ToolChoiceAuto}, nil
		default:
			return api.ToolChoice{}, api.InvalidError("unknown tool_choice %q", choice.String())
		}
	}

	if choice.Get("type").String() == "allowed_tools" {
		var allowed []string
		for _, t := range choice.Get("tools").Array() {
			if name := t.Get("name").String(); name != "" {
				allowed = append(allowed, name)
			}
		}
		return api.ToolChoice{Mode: api.ToolChoiceAllowed, Allowed: allowed}, nil
	}

	name := choice.Get("name").String()
	if name == "" {
		return api.ToolChoice{}, api.InvalidError("tool_choice must be a string or name a function")
	}
	for _, t := range tools {
		if t.Name == name {
			return api.ToolChoice{Mode: api.ToolChoiceNamed, Name: name}, nil
		}
	}
	return api.ToolChoice{}, api.InvalidError("tool_choice names %q which is not in the tool list", name)
}
