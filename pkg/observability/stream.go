package observability

import (
	"time"

	"github.com/rhuss/weiche/pkg/api"
)

// ObserveStream forwards events from in and records provider metrics when
// the stream terminates: one weiche_provider_requests_total increment with
// the terminal outcome, the stream duration, and token counts if the
// provider reported usage. The returned channel closes when in closes.
func ObserveStream(provider, model string, in <-chan api.StreamEvent) <-chan api.StreamEvent {
	out := make(chan api.StreamEvent, 1)
	start := time.Now()

	go func() {
		defer close(out)
		status := "aborted"
		inputTokens, outputTokens := 0, 0
		for ev := range in {
			switch ev.Type {
			case api.EventTokens:
				inputTokens = ev.InputTokens
				outputTokens = ev.OutputTokens
			case api.EventDone:
				status = "ok"
			case api.EventError:
				status = "error"
			}
			out <- ev
		}

		ProviderRequestsTotal.WithLabelValues(provider, model, status).Inc()
		ProviderLatency.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
		if inputTokens > 0 {
			ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
		}
		if outputTokens > 0 {
			ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
		}
	}()

	return out
}
