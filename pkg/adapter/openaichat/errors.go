package openaichat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rhuss/weiche/pkg/api"
)

// mapHTTPError converts a non-2xx backend response into an adapter
// error, parsing the OpenAI error envelope for a code and message when
// present.
func mapHTTPError(resp *http.Response) *api.AdapterError {
	code, message := extractError(resp.Body)
	if code == "" {
		code = strconv.Itoa(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if message == "" {
			message = "invalid request to backend"
		}
		return api.InvalidError("%s", message)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		return api.ProviderError(code, message)

	case resp.StatusCode == http.StatusRequestTimeout:
		if message == "" {
			message = "backend request timed out"
		}
		return api.TimeoutError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("backend error (HTTP %d)", resp.StatusCode)
		}
		return api.ProviderError(code, message)
	}
}

// extractError parses the {"error": {...}} envelope, returning the error
// code and message when the body carries them.
func extractError(body io.Reader) (code, message string) {
	if body == nil {
		return "", ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "", ""
	}

	var envelope chatErrorResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", ""
	}
	switch c := envelope.Error.Code.(type) {
	case string:
		code = c
	case float64:
		code = strconv.Itoa(int(c))
	}
	if code == "" {
		code = envelope.Error.Type
	}
	return code, envelope.Error.Message
}
