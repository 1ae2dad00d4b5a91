// Package debug provides opt-in diagnostic logging for the gateway.
//
// WEICHE_DEBUG selects categories (comma separated: adapters, catalog,
// skin, streaming, config, or all). WEICHE_LOG_LEVEL selects verbosity
// (ERROR, WARN, INFO, DEBUG, TRACE); TRACE additionally unlocks Raw,
// which dumps wire payloads verbatim to stderr for copy-paste debugging
// of provider protocols.
package debug

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug. Wire-payload dumps are gated
// behind it.
const LevelTrace = slog.LevelDebug - 4

// enabled is the active category set. Written only by Init and the
// package init, both before request traffic starts.
var enabled map[string]bool

func init() {
	enabled = splitCategories(os.Getenv("WEICHE_DEBUG"))
}

// Init applies category and level settings from configuration. The
// WEICHE_DEBUG and WEICHE_LOG_LEVEL environment variables win over the
// supplied values.
func Init(categories, level string) {
	if env := os.Getenv("WEICHE_DEBUG"); env != "" {
		categories = env
	}
	enabled = splitCategories(categories)

	if env := os.Getenv("WEICHE_LOG_LEVEL"); env != "" {
		level = env
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})))
}

// Enabled reports whether a category is switched on. Callers use it to
// skip expensive formatting.
func Enabled(category string) bool {
	return enabled["all"] || enabled[category]
}

// Log emits a debug-level message when the category is switched on.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message when the category is switched on.
// Visible only with WEICHE_LOG_LEVEL=TRACE.
func Trace(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(nil, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// Raw writes a wire payload verbatim to stderr, without slog framing.
// Emitted only when the category is switched on and the level is TRACE.
func Raw(category, payload string) {
	if !Enabled(category) || !slog.Default().Enabled(nil, LevelTrace) {
		return
	}
	fmt.Fprintln(os.Stderr, payload)
}

// Truncate caps s for inline log attributes, marking the cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, category := range strings.Split(s, ",") {
		if category = strings.TrimSpace(strings.ToLower(category)); category != "" {
			m[category] = true
		}
	}
	return m
}
