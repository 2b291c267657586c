package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/br-emissions/internal/choropleth"
	"github.com/mohammed-shakir/br-emissions/internal/core/config"
	"github.com/mohammed-shakir/br-emissions/internal/dataset"
	"github.com/mohammed-shakir/br-emissions/internal/metrics"
)

type stubBackend struct {
	table *dataset.Table
}

func (s stubBackend) Table(context.Context) (dataset.View, error) {
	if s.table == nil {
		return nil, errors.New("not loaded")
	}
	return s.table, nil
}

func (s stubBackend) Layer(context.Context, choropleth.Format) (choropleth.Layer, error) {
	return choropleth.Layer{}, errors.New("no boundaries")
}

func (s stubBackend) Readiness() (bool, []string) {
	if s.table == nil {
		return false, nil
	}
	return true, []string{"table"}
}

func TestNewHandler_Routes(t *testing.T) {
	tbl, err := dataset.New([]string{"Acre"}, []int{2020}, [][]float64{{1}})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	cfg := config.FromEnv()
	cfg.MetricsEnabled = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := metrics.Init(metrics.Config{})

	srv := httptest.NewServer(NewHandler(cfg, logger, stubBackend{table: tbl}, p.Handler()))
	defer srv.Close()

	for path, want := range map[string]int{
		"/healthz":   http.StatusOK,
		"/readyz":    http.StatusOK,
		"/metrics":   http.StatusOK,
		"/api/years": http.StatusOK,
		"/nope":      http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path) // #nosec G107 -- test server URL
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s status=%d want %d", path, resp.StatusCode, want)
		}
	}

	resp, err := http.Get(srv.URL + "/metrics") // #nosec G107 -- test server URL
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("expected http_requests_total after API traffic")
	}
}

func TestNewHandler_NotReady(t *testing.T) {
	cfg := config.FromEnv()
	cfg.MetricsEnabled = false
	h := NewHandler(cfg, slog.New(slog.DiscardHandler), stubBackend{}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d want 503", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled should 404, got %d", rr.Code)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, slog.New(slog.DiscardHandler), http.NotFoundHandler()) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
