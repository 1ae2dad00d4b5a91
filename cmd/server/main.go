// Command server runs the weiche LLM gateway.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, WEICHE_CONFIG env, ./config.yaml, /etc/weiche/config.yaml),
// then WEICHE_* environment overrides:
//
//	WEICHE_PORT          - Listen port (default: 8080)
//	WEICHE_BACKEND_URL   - Single-backend base URL (provider "default")
//	WEICHE_BACKEND_KIND  - Single-backend kind: ollama, openai-compat, openai
//	WEICHE_API_KEY       - Single-backend API key
//	WEICHE_PROVIDERS     - JSON array of full provider specs
//	WEICHE_METRICS       - Enable/disable the Prometheus endpoint
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/weiche/pkg/adapter"
	"github.com/rhuss/weiche/pkg/adapter/ollama"
	"github.com/rhuss/weiche/pkg/adapter/openaichat"
	"github.com/rhuss/weiche/pkg/adapter/openairesponses"
	"github.com/rhuss/weiche/pkg/catalog"
	"github.com/rhuss/weiche/pkg/config"
	"github.com/rhuss/weiche/pkg/debug"
	"github.com/rhuss/weiche/pkg/observability"
	"github.com/rhuss/weiche/pkg/skin/openai"
	"github.com/rhuss/weiche/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// WEICHE_DEBUG / WEICHE_LOG_LEVEL take effect before anything logs.
	debug.Init("", "")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Register the one adapter per provider kind.
	registry := adapter.NewRegistry()
	registry.Register(ollama.New())
	registry.Register(openaichat.New())
	registry.Register(openairesponses.New())
	router := adapter.NewRouter(registry)

	// Populate the catalog and run the initial discovery pass. Providers
	// that are down at startup are skipped and picked up again on the
	// next /v1/models listing.
	cat := catalog.New()
	for _, spec := range cfg.Providers {
		cat.AddProvider(spec.Provider())
	}
	count := cat.Discover(context.Background(), registry)
	slog.Info("initial model discovery complete",
		"providers", len(cfg.Providers),
		"models", count,
	)

	handler := openai.NewHandler(router, cat, openai.Config{
		MaxBodySize: cfg.Server.MaxBodySize,
	})

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	srv := transport.NewServer(observability.MetricsMiddleware(mux),
		transport.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transport.WithReadTimeout(cfg.Server.ReadTimeout),
		transport.WithWriteTimeout(cfg.Server.WriteTimeout),
	)

	slog.Info("weiche gateway starting",
		"port", cfg.Server.Port,
		"providers", len(cfg.Providers),
	)
	return srv.ListenAndServe()
}
