// Package openai is the public-facing ingress: it decodes OpenAI-style
// wire requests (Chat Completions and Responses) into the canonical
// request form, resolves the model to a provider endpoint, dispatches
// through the router, and re-encodes the canonical event stream as SSE
// chunks or one aggregated JSON document.
package openai
