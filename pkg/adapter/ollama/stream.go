package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/debug"
)

// parseStream reads newline-delimited JSON chunks from the daemon and
// translates them into canonical events on ch. The channel is NOT closed
// here; the caller closes it.
//
// Cancellation is checked at every line boundary, never mid-parse. Once
// observed, a terminal error event is emitted and no further upstream
// bytes are read.
func parseStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			ch <- api.FromContextError(ctx.Err()).Event()
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		debug.Raw("streaming", string(line))

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			slog.Warn("skipping malformed daemon chunk",
				"error", err.Error(),
				"chunk", debug.Truncate(string(line), 256),
			)
			continue
		}

		if chunk.Error != "" {
			ch <- api.ErrorEvent("provider_error", chunk.Error)
			return
		}

		if chunk.Message != nil && chunk.Message.Content != "" {
			ch <- api.TextDelta(chunk.Message.Content)
		}

		if chunk.Done {
			if chunk.PromptEvalCount > 0 || chunk.EvalCount > 0 {
				ch <- api.Tokens(chunk.PromptEvalCount, chunk.EvalCount)
			}
			ch <- api.Done()
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			ch <- api.FromContextError(ctx.Err()).Event()
			return
		}
		ch <- api.ErrorEvent("stream_error", "daemon stream read error: "+err.Error())
		return
	}

	// The daemon closed the connection without a done chunk.
	ch <- api.ErrorEvent("stream_error", "daemon stream ended without done flag")
}

// decodeResponse maps one complete non-streaming response through the same
// event vocabulary the streaming path uses.
func decodeResponse(resp *chatChunk) []api.StreamEvent {
	var events []api.StreamEvent

	if resp.Error != "" {
		return []api.StreamEvent{api.ErrorEvent("provider_error", resp.Error)}
	}
	if resp.Message != nil && resp.Message.Content != "" {
		events = append(events, api.TextDelta(resp.Message.Content))
	}
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		events = append(events, api.Tokens(resp.PromptEvalCount, resp.EvalCount))
	}
	return append(events, api.Done())
}
