package openai

import (
	"encoding/json"
	"testing"

	"github.com/rhuss/weiche/pkg/api"
)

func TestDecodeResponsesInputString(t *testing.T) {
	messages, err := decodeResponsesInput([]byte(`"just a prompt"`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != api.RoleUser || messages[0].Parts[0].Text != "just a prompt" {
		t.Errorf("messages = %+v", messages)
	}
}

func TestDecodeResponsesInputItems(t *testing.T) {
	messages, err := decodeResponsesInput([]byte(`[
		{"type": "message", "role": "system", "content": "be brief"},
		{"role": "user", "content": [
			{"type": "input_text", "text": "what is this?"},
			{"type": "input_image", "image_url": "https://example.com/x.png"}
		]},
		{"type": "function_call", "call_id": "call_1", "name": "lookup", "arguments": "{}"},
		{"type": "function_call_output", "call_id": "call_1", "output": "42"}
	]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("messages = %+v", messages)
	}
	if messages[0].Role != api.RoleSystem {
		t.Errorf("messages[0] = %+v", messages[0])
	}
	if len(messages[1].Parts) != 2 || messages[1].Parts[1].Type != api.PartImage {
		t.Errorf("messages[1] = %+v", messages[1])
	}
	if messages[2].Role != api.RoleAssistant || messages[2].ToolCalls[0].ID != "call_1" {
		t.Errorf("messages[2] = %+v", messages[2])
	}
	if messages[3].Role != api.RoleTool || messages[3].ToolCallID != "call_1" || messages[3].Parts[0].Text != "42" {
		t.Errorf("messages[3] = %+v", messages[3])
	}
}

func TestDecodeResponsesInputLooseStrings(t *testing.T) {
	messages, err := decodeResponsesInput([]byte(`["first line", "second line"]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 || messages[0].Parts[0].Text != "first line\nsecond line" {
		t.Errorf("messages = %+v", messages)
	}
}

func TestDecodeResponsesInputRejectsObjects(t *testing.T) {
	if _, err := decodeResponsesInput([]byte(`{"not": "valid"}`)); err == nil {
		t.Error("bare object input should be rejected")
	}
	if _, err := decodeResponsesInput([]byte(`42`)); err == nil {
		t.Error("numeric input should be rejected")
	}
}

func TestDecodeResponsesInputSkipsUnknownItems(t *testing.T) {
	messages, err := decodeResponsesInput([]byte(`[
		{"type": "item_reference", "id": "ref_1"},
		{"type": "message", "role": "user", "content": "hi"}
	]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("unknown item types should be skipped: %+v", messages)
	}
}

func TestDecodeResponsesRequestInstructions(t *testing.T) {
	wire := &wireResponsesRequest{
		Model:        "llama3.2",
		Input:        json.RawMessage(`"hello"`),
		Instructions: "answer like a pirate",
	}

	req, err := decodeResponsesRequest(wire, testModelRef())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if req.Messages[0].Role != api.RoleSystem || req.Messages[0].Parts[0].Text != "answer like a pirate" {
		t.Errorf("instructions message = %+v", req.Messages[0])
	}
	if req.RequestID() == "" {
		t.Error("request id must be stamped")
	}
}

func TestDecodeResponsesRequestEmptyInput(t *testing.T) {
	wire := &wireResponsesRequest{Model: "m", Input: json.RawMessage(`[]`)}
	if _, err := decodeResponsesRequest(wire, testModelRef()); err == nil {
		t.Error("empty input should be rejected")
	}
}

func TestDecodeResponsesToolChoice(t *testing.T) {
	tools := []api.ToolSpec{{Name: "lookup"}}

	choice, err := decodeResponsesToolChoice(nil, tools)
	if err != nil || choice.Mode != api.ToolChoiceAuto {
		t.Errorf("absent choice = %+v, %v", choice, err)
	}

	choice, err = decodeResponsesToolChoice([]byte(`{"type":"function","name":"lookup"}`), tools)
	if err != nil || choice.Mode != api.ToolChoiceNamed || choice.Name != "lookup" {
		t.Errorf("named choice = %+v, %v", choice, err)
	}

	choice, err = decodeResponsesToolChoice([]byte(`{"type":"allowed_tools","mode":"auto","tools":[{"type":"function","name":"a"},{"type":"function","name":"b"}]}`), tools)
	if err != nil || choice.Mode != api.ToolChoiceAllowed || len(choice.Allowed) != 2 {
		t.Errorf("allowed choice = %+v, %v", choice, err)
	}

	if _, err := decodeResponsesToolChoice([]byte(`{"type":"function","name":"ghost"}`), tools); err == nil {
		t.Error("naming an absent tool should be rejected")
	}
}

func TestDecodeResponsesRequestReasoningMetadata(t *testing.T) {
	wire := &wireResponsesRequest{
		Model: "m",
		Input: json.RawMessage(`"hi"`),
	}
	wire.Reasoning = &struct {
		Effort  string `json:"effort,omitempty"`
		Summary string `json:"summary,omitempty"`
	}{Effort: "medium", Summary: "auto"}

	req, err := decodeResponsesRequest(wire, testModelRef())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Metadata[api.MetadataReasoningEffort] != "medium" {
		t.Errorf("effort = %q", req.Metadata[api.MetadataReasoningEffort])
	}
	if req.Metadata[api.MetadataReasoningSummary] != "auto" {
		t.Errorf("summary = %q", req.Metadata[api.MetadataReasoningSummary])
	}
}
