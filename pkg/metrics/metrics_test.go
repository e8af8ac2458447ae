package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var testCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sra_metrics_test_total",
	Help: "Counter registered by the metrics package tests",
})

func TestRegistry(t *testing.T) {
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler(t *testing.T) {
	testCounter.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sra_metrics_test_total 1") {
		t.Error("handler output misses a promauto-registered counter")
	}
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := Serve(ctx, "127.0.0.1:0", zerolog.Nop())
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if srv == nil {
		t.Fatal("Serve() returned nil server")
	}
}

func TestServe_BadAddress(t *testing.T) {
	if _, err := Serve(context.Background(), "256.0.0.1:bad", zerolog.Nop()); err == nil {
		t.Error("Serve() with invalid address should fail")
	}
}

func TestServe_Scrape(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := Serve(ctx, addr, zerolog.Nop()); err != nil {
		t.Skipf("port %s was taken again: %v", addr, err)
	}

	resp, err := http.Get("http://" + addr + Path)
	if err != nil {
		t.Fatalf("scrape error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("scrape output misses default collectors")
	}
}
