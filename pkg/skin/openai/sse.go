package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter frames JSON payloads as Chat Completions style SSE: bare
// "data:" lines with a trailing [DONE] sentinel. Headers are set lazily
// on the first write so pre-stream failures can still produce a plain
// JSON error response.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) writeData(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling SSE payload: %w", err)
	}
	s.ensureHeaders()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing SSE frame: %w", err)
	}
	return s.rc.Flush()
}

func (s *sseWriter) writeDone() error {
	s.ensureHeaders()
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("writing SSE sentinel: %w", err)
	}
	return s.rc.Flush()
}

func (s *sseWriter) hasStarted() bool {
	return s.started
}

func (s *sseWriter) ensureHeaders() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}
