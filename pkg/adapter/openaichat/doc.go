// Package openaichat adapts the generic OpenAI-compatible Chat
// Completions protocol: POST /v1/chat/completions with SSE framing for
// streams, GET /v1/models for discovery. It covers any backend speaking
// this dialect (vLLM, LiteLLM, OpenRouter, llama.cpp server).
package openaichat
