// Package ollama adapts the canonical IR to the Ollama local daemon chat
// protocol: JSON requests against /api/chat with an options bag and inline
// base64 images, streamed back as newline-delimited JSON objects carrying
// a done flag. Model discovery uses /api/tags.
package ollama
