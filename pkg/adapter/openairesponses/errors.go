package openairesponses

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rhuss/weiche/pkg/api"
)

// mapHTTPError converts a non-2xx response into an adapter error using
// the OpenAI error envelope when the body carries one.
func mapHTTPError(resp *http.Response) *api.AdapterError {
	code, message := extractError(resp.Body)
	if code == "" {
		code = strconv.Itoa(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if message == "" {
			message = "invalid request to backend"
		}
		return api.InvalidError("%s", message)
	case http.StatusRequestTimeout:
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

func extractError(body io.Reader) (code, message string) {
	if body == nil {
		return "", ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "", ""
	}

	var envelope errorEnvelope
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
