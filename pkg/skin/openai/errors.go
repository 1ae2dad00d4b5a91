package openai

import (
	"encoding/json"
	"net/http"

	"github.com/rhuss/weiche/pkg/api"
)

type wireError struct {
	Error wireErrorBody `json:"error"`
}

type wireErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, errType, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(wireError{Error: wireErrorBody{
		Message: message,
		Type:    errType,
		Code:    code,
	}})
}

func writeModelNotFound(w http.ResponseWriter, model string) {
	writeError(w, http.StatusNotFound, "invalid_request_error", "model_not_found",
		"Model '"+model+"' not found")
}

func writeInvalidRequest(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusBadRequest, "invalid_request_error", code, message)
}

// writeAdapterError maps the error taxonomy onto HTTP statuses: caller
// mistakes are 400, upstream timeouts 504, everything the provider or
// transport broke 502, invariant violations 500.
func writeAdapterError(w http.ResponseWriter, err *api.AdapterError) {
	switch err.Kind {
	case api.ErrInvalid:
		writeError(w, http.StatusBadRequest, "invalid_request_error", err.Code, err.Message)
	case api.ErrTimeout:
		writeError(w, http.StatusGatewayTimeout, "timeout_error", err.Code, err.Message)
	case api.ErrProvider:
		writeError(w, http.StatusBadGateway, "provider_error", err.Code, err.Message)
	case api.ErrHTTP:
		writeError(w, http.StatusBadGateway, "connection_error", err.Code, err.Message)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Code, err.Message)
	}
}
