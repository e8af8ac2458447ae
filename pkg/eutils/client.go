// Package eutils is the client for the NCBI E-utilities endpoints used to
// resolve projects and to stream SRA experiment packages.
package eutils

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sra-metadata-client/pkg/logging"
	"github.com/Sternrassler/sra-metadata-client/pkg/ratelimit"
	"github.com/Sternrassler/sra-metadata-client/pkg/sra"
	"github.com/antchfx/xmlquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the E-utilities root.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Endpoints and fixed request values.
const (
	EndpointFetch = "/efetch.fcgi"
	EndpointLink  = "/elink.fcgi"

	// Database is the efetch target namespace.
	Database = "sra"

	// ProjectRunLink translates a BioProject uid into SRA uids.
	ProjectRunLink = "bioproject_sra"
)

// Prometheus metrics for E-utilities requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_requests_total",
		Help: "Total E-utilities requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eutils_request_duration_seconds",
		Help:    "Time until E-utilities response headers arrive, by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eutils_errors_total",
		Help: "Total E-utilities failures by class",
	}, []string{"class"})

	documentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eutils_documents_total",
		Help: "Total experiment packages streamed from efetch",
	})
)

// Client issues E-utilities requests. It holds no per-fetch state and makes
// one request at a time per caller.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the E-utilities root, without trailing slash.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a whole exchange, including draining a streamed body.
	Timeout time.Duration

	// RateLimit is the maximum requests per second (<= 0 disables pacing).
	RateLimit float64
}

// DefaultConfig returns the configuration for the public NCBI service.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   5 * time.Minute,
		RateLimit: ratelimit.DefaultRate,
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := logging.NewLogger("eutils")

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.NewLimiter(cfg.RateLimit, logger),
		config:     cfg,
		logger:     logger,
	}, nil
}

// SetHTTPClient replaces the HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Fetch requests the experiment packages for ids and returns a stream over
// them. retmax caps the number of records returned; callers pass the batch
// size. The caller must Close the stream.
func (c *Client) Fetch(ctx context.Context, ids []string, retmax int) (*DocumentStream, error) {
	form := encodeForm(
		"db", Database,
		"retmax", strconv.Itoa(retmax),
		"id", strings.Join(ids, ","),
	)

	resp, err := c.post(ctx, EndpointFetch, form)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("accessions", len(ids)).
		Int("retmax", retmax).
		Msg("Streaming experiment packages")

	return newDocumentStream(resp.Body, EndpointFetch, c.logger), nil
}

// ResolveProject returns the SRA uids linked to a BioProject uid.
func (c *Client) ResolveProject(ctx context.Context, projectUID string) ([]string, error) {
	form := encodeForm(
		"linkname", ProjectRunLink,
		"from_uid", projectUID,
	)

	resp, err := c.post(ctx, EndpointLink, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := xmlquery.Parse(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &TransportError{
			Endpoint:   EndpointLink,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode link response",
			Err:        err,
		}
	}

	if e := xmlquery.FindOne(doc, "//"+sra.ErrorTag); e != nil {
		errorsTotal.WithLabelValues(string(ErrorClassRemote)).Inc()
		return nil, &RemoteError{Endpoint: EndpointLink, Message: e.InnerText()}
	}

	var ids []string
	for _, n := range xmlquery.Find(doc, "//Link/Id") {
		if id := strings.TrimSpace(n.InnerText()); id != "" {
			ids = append(ids, id)
		}
	}

	c.logger.Debug().
		Str("from_uid", projectUID).
		Int("links", len(ids)).
		Msg("Resolved project links")

	return ids, nil
}

// post sends a form-encoded POST and returns the response once its status is
// known to be OK. The response body is left open for the caller.
func (c *Client) post(ctx context.Context, endpoint, form string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		errClass := classifyError(nil, err)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("E-utilities request failed")
		return nil, &TransportError{
			Endpoint:   endpoint,
			ErrorClass: errClass,
			Message:    "request failed",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		errClass := classifyError(resp, nil)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("E-utilities request error")
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	return resp, nil
}

// classifyError categorizes a failed exchange.
func classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		// Redirects and other non-200 successes are still unusable bodies.
		return ErrorClassClient
	}
}

// encodeForm encodes key/value pairs as an application/x-www-form-urlencoded
// body, keeping the given field order.
func encodeForm(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pairs[i]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pairs[i+1]))
	}
	return b.String()
}
