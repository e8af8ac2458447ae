// Package ratelimit paces requests to the E-utilities service. NCBI allows
// three requests per second per client without an API key and rejects
// requests beyond that, so every remote call waits for a token first.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultRate is the request rate allowed without an API key.
const DefaultRate = 3.0

// Prometheus metrics for request pacing.
var (
	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eutils_rate_limit_throttles_total",
		Help: "Total number of requests delayed by the rate limiter",
	})

	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eutils_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate limit token",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
	})
)

// Limiter gates outgoing requests with a token bucket.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a limiter allowing perSecond requests with a burst of
// one. A non-positive rate disables pacing.
func NewLimiter(perSecond float64, logger zerolog.Logger) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Limit returns the configured requests per second.
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	waited := time.Since(start)
	if waited > time.Millisecond {
		throttlesTotal.Inc()
		throttleWaitSeconds.Observe(waited.Seconds())
		l.logger.Debug().
			Dur("waited", waited).
			Msg("Request delayed by rate limiter")
	}
	return nil
}
