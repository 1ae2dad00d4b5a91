package openai

import (
	"encoding/json"

	"github.com/rhuss/weiche/pkg/api"
)

// decodeChatRequest maps an inbound Chat Completions request onto the
// canonical form. It returns the request and the number of completions
// asked for; wire-level validation failures come back as invalid-request
// errors before any adapter is involved.
func decodeChatRequest(req *wireChatRequest, model api.ModelRef) (*api.ChatRequest, int, *api.AdapterError) {
	if len(req.Messages) == 0 {
		return nil, 0, api.InvalidError("messages must not be empty")
	}

	messages := make([]api.Message, 0, len(req.Messages))
	for i, wm := range req.Messages {
		msg, err := decodeMessage(&wm)
		if err != nil {
			return nil, 0, api.InvalidError("messages[%d]: %s", i, err.Message)
		}
		messages = append(messages, msg)
	}

	tools := decodeTools(req.Tools, req.Functions)
	choice, err := decodeToolChoice(req.ToolChoice, req.FunctionCall, tools)
	if err != nil {
		return nil, 0, err
	}

	metadata := map[string]string{
		api.MetadataRequestID: api.NewRequestID(),
	}
	if req.User != "" {
		metadata[api.MetadataUser] = req.User
	}
	if req.ReasoningEffort != "" {
		metadata[api.MetadataReasoningEffort] = req.ReasoningEffort
	}
	if req.Verbosity != "" {
		metadata[api.MetadataTextVerbosity] = req.Verbosity
	}

	out := &api.ChatRequest{
		Model:      model,
		Messages:   messages,
		Tools:      tools,
		ToolChoice: choice,
		Sampling:   decodeSampling(req),
		Stream:     req.Stream,
		Format:     decodeResponseFormat(req.ResponseFormat),
		Metadata:   metadata,
		CacheKey:   req.PromptCacheKey,

		SafetyIdentifier: req.SafetyIdentifier,
	}

	if req.Audio != nil {
		out.Audio = &api.AudioOutput{Voice: req.Audio.Voice, Format: req.Audio.Format}
	}
	if ws := req.WebSearchOptions; ws != nil {
		search := &api.WebSearchOptions{ContextSize: ws.SearchContextSize}
		if ws.UserLocation != nil && ws.UserLocation.Approximate != nil {
			loc := ws.UserLocation.Approximate
			search.Location = &api.UserLocation{
				Country:  loc.Country,
				Region:   loc.Region,
				City:     loc.City,
				Timezone: loc.Timezone,
			}
		}
		out.WebSearch = search
	}
	if p := req.Prediction; p != nil && p.Type == "content" {
		if content := decodePredictionContent(p.Content); content != "" {
			out.Prediction = &api.Prediction{Content: content}
		}
	}

	n := 1
	if req.N != nil {
		n = *req.N
		if n < 1 {
			return nil, 0, api.InvalidError("n must be at least 1")
		}
	}
	return out, n, nil
}

// decodeMessage maps one wire message. Unknown roles fall back to user;
// legacy role aliases keep working.
func decodeMessage(wm *wireMessage) (api.Message, *api.AdapterError) {
	msg := api.Message{
		Role:       decodeRole(wm.Role),
		Name:       wm.Name,
		ToolCallID: wm.ToolCallID,
	}

	parts, err := decodeContent(wm.Content)
	if err != nil {
		return api.Message{}, err
	}
	msg.Parts = parts

	for _, tc := range wm.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, api.ToolCallSummary{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return msg, nil
}

func decodeRole(role string) api.Role {
	switch role {
	case "developer":
		return api.RoleDeveloper
	case "system":
		return api.RoleSystem
	case "assistant":
		return api.RoleAssistant
	case "tool", "function":
		return api.RoleTool
	case "user":
		return api.RoleUser
	default:
		return api.RoleUser
	}
}

// decodeContent handles the content union: null (assistant tool-call
// messages carry no content), a plain string, or an array of typed parts.
func decodeContent(raw json.RawMessage) ([]api.ContentPart, *api.AdapterError) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []api.ContentPart{api.TextPart(text)}, nil
	}

	var wireParts []wireContentPart
	if err := json.Unmarshal(raw, &wireParts); err != nil {
		return nil, api.InvalidError("content must be a string or an array of content parts")
	}

	parts := make([]api.ContentPart, 0, len(wireParts))
	for _, wp := range wireParts {
		switch wp.Type {
		case "text":
			parts = append(parts, api.TextPart(wp.Text))
		case "image_url":
			url, err := decodeImageURL(wp.ImageURL)
			if err != nil {
				return nil, err
			}
			parts = append(parts, api.ImagePart(url))
		case "input_audio":
			if wp.InputAudio != nil {
				parts = append(parts, api.ContentPart{
					Type:        api.PartAudio,
					AudioData:   wp.InputAudio.Data,
					AudioFormat: wp.InputAudio.Format,
				})
			}
		case "file":
			if wp.File != nil {
				parts = append(parts, api.ContentPart{
					Type:     api.PartFile,
					FileID:   wp.File.FileID,
					Filename: wp.File.Filename,
					FileData: wp.File.FileData,
				})
			}
		default:
			return nil, api.InvalidError("unsupported content part type %q", wp.Type)
		}
	}
	return parts, nil
}

// decodeImageURL accepts both the object form {"url": "..."} and the
// legacy bare-string form.
func decodeImageURL(raw json.RawMessage) (string, *api.AdapterError) {
	var url string
	if err := json.Unmarshal(raw, &url); err == nil {
		return url, nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.URL == "" {
		return "", api.InvalidError("image_url must be a string or an object with a url field")
	}
	return obj.URL, nil
}

// decodeTools merges the tools array with the legacy functions array.
// A legacy function whose name collides with a tool is dropped; the
// tools entry wins.
func decodeTools(tools []wireTool, functions []wireFunctionDef) []api.ToolSpec {
	var out []api.ToolSpec
	seen := make(map[string]bool)

	for _, t := range tools {
		if t.Type != "function" {
			continue
		}
		out = append(out, api.ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Schema:      t.Function.Parameters,
			Strict:      t.Function.Strict,
		})
		seen[t.Function.Name] = true
	}
	for _, f := range functions {
		if seen[f.Name] {
			continue
		}
		out = append(out, api.ToolSpec{
			Name:        f.Name,
			Description: f.Description,
			Schema:      f.Parameters,
		})
	}
	return out
}

// decodeToolChoice normalizes tool_choice (and the legacy function_call
// field, which wins when present) into the canonical policy. A named
// choice must reference a tool from the same request.
func decodeToolChoice(raw, legacy json.RawMessage, tools []api.ToolSpec) (api.ToolChoice, *api.AdapterError) {
	if len(legacy) > 0 {
		return decodeChoiceValue(legacy, tools, true)
	}
	if len(raw) > 0 {
		return decodeChoiceValue(raw, tools, false)
	}
	return api.ToolChoice{Mode: api.ToolChoiceAuto}, nil
}

func decodeChoiceValue(raw json.RawMessage, tools []api.ToolSpec, legacy bool) (api.ToolChoice, *api.AdapterError) {
	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch mode {
		case "none":
			return api.ToolChoice{Mode: api.ToolChoiceNone}, nil
		case "required":
			return api.ToolChoice{Mode: api.ToolChoiceRequired}, nil
		case "auto", "":
			return api.ToolChoice{Mode: api.ToolChoiceAuto}, nil
		default:
			return api.ToolChoice{}, api.InvalidError("unknown tool_choice %q", mode)
		}
	}

	var name string
	if legacy {
		var fc struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &fc); err != nil || fc.Name == "" {
			return api.ToolChoice{}, api.InvalidError("function_call must be a string or name a function")
		}
		name = fc.Name
	} else {
		var tc struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		}
		if err := json.Unmarshal(raw, &tc); err != nil || tc.Function.Name == "" {
			return api.ToolChoice{}, api.InvalidError("tool_choice must be a string or name a function")
		}
		name = tc.Function.Name
	}

	for _, t := range tools {
		if t.Name == name {
			return api.ToolChoice{Mode: api.ToolChoiceNamed, Name: name}, nil
		}
	}
	return api.ToolChoice{}, api.InvalidError("tool_choice names %q which is not in the tool list", name)
}

// decodeSampling fills the canonical sampling block. Temperature and
// top_p default to 1.0 when absent; zero-valued penalties are suppressed
// since they mean "unset" on this wire.
func decodeSampling(req *wireChatRequest) api.Sampling {
	s := api.Sampling{
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		Seed:              req.Seed,
		LogitBias:         req.LogitBias,
		Logprobs:          req.Logprobs,
		TopLogprobs:       req.TopLogprobs,
		ParallelToolCalls: req.ParallelToolCalls,
		Stop:              decodeStop(req.Stop),
	}

	if s.Temperature == nil {
		one := 1.0
		s.Temperature = &one
	}
	if s.TopP == nil {
		one := 1.0
		s.TopP = &one
	}

	if req.MaxCompletionTokens != nil {
		s.MaxTokens = req.MaxCompletionTokens
	} else {
		s.MaxTokens = req.MaxTokens
	}

	if req.PresencePenalty != nil && *req.PresencePenalty != 0 {
		s.PresencePenalty = req.PresencePenalty
	}
	if req.FrequencyPenalty != nil && *req.FrequencyPenalty != 0 {
		s.FrequencyPenalty = req.FrequencyPenalty
	}
	return s
}

// decodeStop accepts both the single-string and string-array forms.
func decodeStop(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func decodeResponseFormat(rf *wireResponseFormat) *api.ResponseFormat {
	if rf == nil || rf.Type == "" || rf.Type == "text" {
		return nil
	}
	out := &api.ResponseFormat{Type: rf.Type}
	if rf.JSONSchema != nil {
		out.SchemaName = rf.JSONSchema.Name
		out.SchemaDescription = rf.JSONSchema.Description
		out.Schema = rf.JSONSchema.Schema
		out.Strict = rf.JSONSchema.Strict
	}
	return out
}

// decodePredictionContent accepts a plain string or an array of text
// parts and returns the concatenated text.
func decodePredictionContent(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var out string
	for _, p := range parts {
		out += p.Text
	}
	return out
}
