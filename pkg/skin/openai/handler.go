package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/api"
	"github.com/rhuss/weiche/pkg/catalog"
)

// Config holds the ingress handler settings.
type Config struct {
	// MaxBodySize caps inbound request bodies in bytes.
	MaxBodySize int64
}

// DefaultConfig returns the default handler configuration.
func DefaultConfig() Config {
	return Config{MaxBodySize: 10 << 20}
}

// Handler serves the public OpenAI-compatible surface.
type Handler struct {
	router  *adapter.Router
	catalog *catalog.Catalog
	config  Config
}

// NewHandler creates the ingress handler.
func NewHandler(router *adapter.Router, cat *catalog.Catalog, cfg Config) *Handler {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	return &Handler{router: router, catalog: cat, config: cfg}
}

// Register mounts the public routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/chat/completions", h.handleChatCompletions)
	mux.HandleFunc("POST /v1/responses", h.handleResponses)
	mux.HandleFunc("GET /v1/models", h.handleModels)
}

// handleChatCompletions serves POST /v1/chat/completions.
func (h *Handler) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var wireReq wireChatRequest
	if !h.readBody(w, r, &wireReq) {
		return
	}

	model, ok := h.catalog.Resolve(wireReq.Model)
	if !ok {
		writeModelNotFound(w, wireReq.Model)
		return
	}

	req, n, decErr := decodeChatRequest(&wireReq, model)
	if decErr != nil {
		writeInvalidRequest(w, "invalid_request", decErr.Message)
		return
	}

	if !h.checkToolSupport(w, req) {
		return
	}

	if req.Stream && n > 1 {
		writeInvalidRequest(w, "unsupported_n_stream", "Streaming with n > 1 is not supported")
		return
	}

	if req.Stream {
		events, err := h.router.RouteChat(r.Context(), req)
		if err != nil {
			writeRouteError(w, err)
			return
		}
		defer drain(events)
		if streamErr := streamChatCompletion(w, events, req.RequestID(), model.Alias); streamErr != nil {
			writeAdapterError(w, streamErr)
		}
		return
	}

	// Sequential fan-out: each run is an independent request with a fresh
	// request id; one failed run fails the whole response.
	runs := make([]runResult, 0, n)
	for i := 0; i < n; i++ {
		subReq := req
		if n > 1 {
			subReq = withFreshRequestID(req)
		}
		events, err := h.router.RouteChat(r.Context(), subReq)
		if err != nil {
			writeRouteError(w, err)
			return
		}
		run, runErr := collectRun(events)
		drain(events)
		if runErr != nil {
			writeAdapterError(w, runErr)
			return
		}
		runs = append(runs, run)
	}

	writeJSON(w, encodeChatResponse(req.RequestID(), model.Alias, runs))
}

// handleResponses serves POST /v1/responses.
func (h *Handler) handleResponses(w http.ResponseWriter, r *http.Request) {
	var wireReq wireResponsesRequest
	if !h.readBody(w, r, &wireReq) {
		return
	}

	model, ok := h.catalog.Resolve(wireReq.Model)
	if !ok {
		writeModelNotFound(w, wireReq.Model)
		return
	}

	req, decErr := decodeResponsesRequest(&wireReq, model)
	if decErr != nil {
		writeInvalidRequest(w, "invalid_request", decErr.Message)
		return
	}

	if !h.checkToolSupport(w, req) {
		return
	}

	events, err := h.router.RouteChat(r.Context(), req)
	if err != nil {
		writeRouteError(w, err)
		return
	}
	defer drain(events)

	if req.Stream {
		if streamErr := streamResponses(w, events, req.RequestID()); streamErr != nil {
			writeAdapterError(w, streamErr)
		}
		return
	}

	run, runErr := collectRun(events)
	if runErr != nil {
		writeAdapterError(w, runErr)
		return
	}
	writeJSON(w, encodeResponsesDocument(req.RequestID(), model.Alias, run))
}

// handleModels serves GET /v1/models. Discovery runs fresh on each call
// so newly pulled local models show up without a restart.
func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	h.catalog.Discover(r.Context(), h.router.Registry())

	models := h.catalog.Models()
	list := wireModelList{Object: "list", Data: make([]wireModel, 0, len(models))}
	for _, m := range models {
		list.Data = append(list.Data, wireModel{
			ID:      m.ID,
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: m.ProviderName,
		})
	}
	writeJSON(w, list)
}

// checkToolSupport rejects tool-bearing requests whose resolved adapter
// protocol cannot express tools; without the check the tool specs would
// silently vanish on the backend wire. It writes the error response
// itself and reports whether dispatch may proceed.
func (h *Handler) checkToolSupport(w http.ResponseWriter, req *api.ChatRequest) bool {
	if len(req.Tools) == 0 {
		return true
	}
	if ad, ok := h.router.Registry().Get(req.Model.Provider.Kind); ok && !ad.Capabilities().Tools {
		writeInvalidRequest(w, "tools_unsupported",
			fmt.Sprintf("Model '%s' is served over a protocol without tool support", req.Model.Alias))
		return false
	}
	return true
}

// readBody validates the content type, caps the body size, and decodes
// the JSON request. It writes the error response itself and reports
// whether decoding succeeded.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "content_type",
			"Content-Type must be application/json")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "body",
				fmt.Sprintf("request body too large (max %d bytes)", h.config.MaxBodySize))
			return false
		}
		writeInvalidRequest(w, "invalid_request_body", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeRouteError handles a dispatch failure (before any stream bytes).
func writeRouteError(w http.ResponseWriter, err error) {
	var adapterErr *api.AdapterError
	if errors.As(err, &adapterErr) {
		writeAdapterError(w, adapterErr)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "routing_failed", err.Error())
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("writing response failed", "error", err.Error())
	}
}

// withFreshRequestID copies the request with its own request id so each
// fan-out run is independently traceable.
func withFreshRequestID(req *api.ChatRequest) *api.ChatRequest {
	sub := *req
	sub.Metadata = make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		sub.Metadata[k] = v
	}
	sub.Metadata[api.MetadataRequestID] = api.NewRequestID()
	return &sub
}

// drain consumes any events left on an abandoned stream so the producing
// goroutine can observe cancellation and exit.
func drain(events <-chan api.StreamEvent) {
	go func() {
		for range events {
		}
	}()
}
