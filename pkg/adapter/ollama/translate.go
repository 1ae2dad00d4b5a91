package ollama

import (
	"log/slog"
	"strings"

	"github.com/rhuss/weiche/pkg/api"
)

// buildChatRequest translates the IR into the daemon's request shape.
// Text parts are concatenated per message; data-URI images become inline
// base64 payloads. Parts the protocol cannot carry are dropped with a
// diagnostic, preserving the order of the surviving content.
func buildChatRequest(req *api.ChatRequest) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages))

	for _, msg := range req.Messages {
		var content strings.Builder
		var images []string

		for _, part := range msg.Parts {
			switch part.Type {
			case api.PartText:
				content.WriteString(part.Text)
			case api.PartImage:
				if data, ok := inlineImageData(part.ImageURL); ok {
					images = append(images, data)
				} else {
					slog.Warn("dropping remote image reference, daemon accepts inline data only",
						"request_id", req.RequestID())
				}
			case api.PartFile:
				if part.FileData != "" {
					content.WriteString(part.FileData)
				} else {
					slog.Warn("dropping file reference without inline data",
						"request_id", req.RequestID(), "file_id", part.FileID)
				}
			default:
				slog.Warn("dropping unsupported content part",
					"request_id", req.RequestID(), "part_type", string(part.Type))
			}
		}

		messages = append(messages, chatMessage{
			Role:    mapRole(msg.Role),
			Content: content.String(),
			Images:  images,
		})
	}

	return chatRequest{
		Model:    req.Model.ModelID,
		Messages: messages,
		Stream:   req.Stream,
		Options:  buildOptions(req.Sampling),
	}
}

// mapRole maps IR roles onto the daemon's vocabulary. The daemon has no
// developer role; it degrades to system.
func mapRole(role api.Role) string {
	switch role {
	case api.RoleSystem, api.RoleDeveloper:
		return "system"
	case api.RoleAssistant:
		return "assistant"
	case api.RoleTool:
		return "tool"
	default:
		return "user"
	}
}

// buildOptions maps the canonical sampling parameters onto the options
// bag. Absent fields stay absent; the daemon applies its own defaults.
func buildOptions(s api.Sampling) *chatOptions {
	opts := &chatOptions{
		Temperature: s.Temperature,
		TopP:        s.TopP,
		TopK:        s.TopK,
		NumPredict:  s.MaxTokens,
		Seed:        s.Seed,
	}
	if len(s.Stop) > 0 {
		opts.Stop = s.Stop
	}
	if opts.Temperature == nil && opts.TopP == nil && opts.TopK == nil &&
		opts.NumPredict == nil && opts.Seed == nil && opts.Stop == nil {
		return nil
	}
	return opts
}

// inlineImageData extracts the base64 payload from a data URI. Remote
// URLs are rejected: the daemon only accepts inline data.
func inlineImageData(url string) (string, bool) {
	if !strings.HasPrefix(url, "data:") {
		return "", false
	}
	if idx := strings.Index(url, ";base64,"); idx >= 0 {
		return url[idx+len(";base64,"):], true
	}
	return "", false
}
