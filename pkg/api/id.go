package api

import (
	"strings"

	"github.com/google/uuid"
)

// NewRequestID generates the unique per-request identifier stamped into
// ChatRequest metadata. Each inbound request gets exactly one; fan-out
// sub-requests each get a fresh one.
func NewRequestID() string {
	return uuid.NewString()
}

// NewFingerprint synthesizes a system fingerprint in the "fp_xxxxxxxx"
// shape OpenAI uses, for providers that do not report one.
func NewFingerprint() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "fp_" + hex[:8]
}

// NewMessageID generates a Responses-API output item identifier.
func NewMessageID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
