// Package openairesponses adapts the official OpenAI Responses API:
// POST /v1/responses with item-based input and response.* SSE events,
// GET /v1/models for discovery.
package openairesponses
