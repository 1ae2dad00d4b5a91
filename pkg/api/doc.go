// Package api defines the canonical, provider-agnostic request and event
// model shared by all gateway components.
//
// A ChatRequest is the intermediate representation (IR) built once per
// inbound request by the ingress skin and consumed by exactly one adapter
// invocation. StreamEvent is the canonical output vocabulary every adapter
// translates its backend's wire protocol into, regardless of whether the
// backend call was streaming or not. Both are pure data: translation logic
// lives in the adapter and skin packages.
package api
