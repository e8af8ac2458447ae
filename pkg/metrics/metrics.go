// Package metrics exposes the Prometheus metrics of the SRA client.
// All metrics are defined in their respective packages (eutils, fetch,
// reconcile, cache, ratelimit) and registered via promauto; this package
// serves them and documents them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// Path is where the listener serves metrics.
const Path = "/metrics"

// Handler returns the HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs a metrics listener on addr until ctx is done. It returns once
// the listener is bound so callers learn about address errors immediately.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := listen(addr)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics listener failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Str("path", Path).Msg("Serving metrics")
	return srv, nil
}

func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	return ln, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/eutils):
//   - eutils_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - eutils_request_duration_seconds{endpoint} (Histogram): Time until response headers
//   - eutils_errors_total{class} (Counter): Failures by class (client, server, network, decode, remote)
//   - eutils_documents_total (Counter): Experiment packages streamed
//
// Pacing Metrics (pkg/ratelimit):
//   - eutils_rate_limit_throttles_total (Counter): Requests delayed by the limiter
//   - eutils_rate_limit_wait_seconds (Histogram): Time spent waiting for a token
//
// Fetch Metrics (pkg/fetch, pkg/reconcile):
//   - sra_batches_total{mode, result} (Counter): Batches accepted or failed
//   - sra_records_total (Counter): Records collated
//   - sra_fetch_duration_seconds{operation, result} (Histogram): Whole fetch duration
//   - sra_reconcile_failures_total{mode} (Counter): Batches rejected by reconciliation
//
// Cache Metrics (pkg/cache):
//   - sra_cache_hits_total{link} (Counter): Project resolution cache hits
//   - sra_cache_misses_total{link,reason} (Counter): Absent, expired or corrupt entries
//   - sra_cache_resolved_ids (Histogram): Uids per stored resolution
//   - sra_cache_errors_total{operation} (Counter): Redis failures
//
// Example Prometheus Queries:
//
//   # Documents per batch
//   rate(eutils_documents_total[5m]) / rate(sra_batches_total[5m])
//
//   # Share of time spent waiting on the rate limiter
//   rate(eutils_rate_limit_wait_seconds_sum[5m])
//
//   # P95 time to first byte
//   histogram_quantile(0.95, rate(eutils_request_duration_seconds_bucket[5m]))
