// Package transport provides the HTTP serving layer for the weiche
// gateway: middleware for panic recovery, request ID assignment
// (X-Request-ID), and structured access logging, plus a server wrapper
// with graceful shutdown.
//
// The middleware chain wraps plain http.Handler values, so the ingress
// surface in pkg/skin stays free of cross-cutting concerns. HTTP serving
// uses net/http with Go 1.22+ ServeMux routing patterns; structured
// logging uses log/slog.
package transport
