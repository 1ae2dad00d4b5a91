package transport

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServerServesWithDefaultMiddleware(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(handler,
		WithLogger(quiet),
		WithShutdownTimeout(2*time.Second),
	)
	go s.ServeOn(ln)
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Errorf("body = %q, want \"pong\"", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header from default middleware")
	}
}

func TestServerOptionOverrides(t *testing.T) {
	s := NewServer(http.NotFoundHandler(),
		WithAddr(":9999"),
		WithReadTimeout(5*time.Second),
		WithWriteTimeout(10*time.Second),
	)
	if s.config.Addr != ":9999" {
		t.Errorf("addr = %q, want \":9999\"", s.config.Addr)
	}
	if s.httpServer.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", s.httpServer.ReadTimeout)
	}
	if s.httpServer.WriteTimeout != 10*time.Second {
		t.Errorf("write timeout = %v, want 10s", s.httpServer.WriteTimeout)
	}
}
