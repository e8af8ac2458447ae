// Package fetch retrieves SRA metadata for run or project accessions and
// assembles it into a table. Batches are fetched one at a time; any failure
// aborts the whole fetch and no partial table is returned.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/sra-metadata-client/pkg/accession"
	"github.com/Sternrassler/sra-metadata-client/pkg/batch"
	"github.com/Sternrassler/sra-metadata-client/pkg/cache"
	"github.com/Sternrassler/sra-metadata-client/pkg/eutils"
	"github.com/Sternrassler/sra-metadata-client/pkg/logging"
	"github.com/Sternrassler/sra-metadata-client/pkg/reconcile"
	"github.com/Sternrassler/sra-metadata-client/pkg/sra"
	"github.com/Sternrassler/sra-metadata-client/pkg/table"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sra_batches_total",
		Help: "Total batches processed by reconciliation mode and result",
	}, []string{"mode", "result"})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sra_records_total",
		Help: "Total records collated from experiment packages",
	})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sra_fetch_duration_seconds",
		Help:    "Duration of whole fetch operations by operation and result",
		Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"operation", "result"})
)

// Source is the remote service a Fetcher reads from.
type Source interface {
	Fetch(ctx context.Context, ids []string, retmax int) (*eutils.DocumentStream, error)
	ResolveProject(ctx context.Context, projectUID string) ([]string, error)
}

// ProgressFunc is called before each batch is requested.
type ProgressFunc func(b batch.Batch)

// Config holds the fetcher configuration.
type Config struct {
	// Source is required.
	Source Source

	// Cache optionally stores project resolutions.
	Cache *cache.Manager

	// BatchSize is the number of accessions per request (0 selects
	// batch.DefaultSize).
	BatchSize int

	// Progress is optional.
	Progress ProgressFunc
}

// Fetcher runs fetch operations. It holds no per-fetch state and may be
// shared; each call gets its own batches, stream and tracker.
type Fetcher struct {
	source    Source
	cache     *cache.Manager
	batchSize int
	progress  ProgressFunc
	logger    zerolog.Logger
}

// New creates a fetcher.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = batch.DefaultSize
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("%w (got %d)", batch.ErrInvalidSize, cfg.BatchSize)
	}

	return &Fetcher{
		source:    cfg.Source,
		cache:     cfg.Cache,
		batchSize: cfg.BatchSize,
		progress:  cfg.Progress,
		logger:    logging.NewLogger("fetch"),
	}, nil
}

// BatchSize returns the configured batch size.
func (f *Fetcher) BatchSize() int {
	return f.batchSize
}

// FetchRuns fetches run accessions. Every requested accession must come back
// as the primary id of a returned document.
func (f *Fetcher) FetchRuns(ctx context.Context, ids []string) (*table.Table, error) {
	logger := f.operationLogger("runs")
	start := time.Now()

	t, err := f.run(ctx, logger, ids, reconcile.Strict)
	observe("runs", start, err)
	return t, err
}

// FetchProject resolves a BioProject accession into its linked SRA uids and
// fetches them. Returned documents cannot be matched to the uids, so only
// their number is checked.
func (f *Fetcher) FetchProject(ctx context.Context, project string) (*table.Table, error) {
	logger := f.operationLogger("project").With().Str("project", project).Logger()
	start := time.Now()

	t, err := f.fetchProject(ctx, logger, project)
	observe("project", start, err)
	return t, err
}

func (f *Fetcher) fetchProject(ctx context.Context, logger zerolog.Logger, project string) (*table.Table, error) {
	uid, err := accession.ProjectUID(project)
	if err != nil {
		return nil, err
	}

	ids, err := f.resolve(ctx, logger, uid)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", project, err)
	}
	if len(ids) == 0 {
		return nil, &accession.ValidationError{Field: "project", Value: project, Reason: "no linked SRA records"}
	}

	logger.Info().Int("linked", len(ids)).Msg("Resolved project")
	return f.run(ctx, logger, ids, reconcile.Relaxed)
}

// resolve returns the SRA uids linked to a project uid, consulting the cache
// first when one is configured. Cache failures only cost a remote call.
func (f *Fetcher) resolve(ctx context.Context, logger zerolog.Logger, uid string) ([]string, error) {
	key := cache.LinkKey(eutils.ProjectRunLink, uid)

	if f.cache != nil {
		entry, err := f.cache.Get(ctx, key)
		switch {
		case err == nil:
			logger.Debug().Str("key", key.String()).Msg("Project resolution cache hit")
			return entry.IDs, nil
		case errors.Is(err, cache.ErrCacheMiss):
			logger.Debug().Str("key", key.String()).Msg("Project resolution cache miss")
		case errors.Is(err, cache.ErrInvalidEntry):
			logger.Warn().Err(err).Str("project_uid", uid).Msg("Discarded cached project resolution")
		default:
			logger.Warn().Err(err).Str("project_uid", uid).Msg("Project resolution cache unavailable")
		}
	}

	ids, err := f.source.ResolveProject(ctx, uid)
	if err != nil {
		return nil, err
	}

	if f.cache != nil && len(ids) > 0 {
		if err := f.cache.Set(ctx, key, f.cache.NewEntry(ids)); err != nil {
			logger.Warn().Err(err).Str("project_uid", uid).Msg("Failed to cache project resolution")
		}
	}
	return ids, nil
}

// run partitions ids and fetches every batch in order, reconciling each one
// before the next is requested.
func (f *Fetcher) run(ctx context.Context, logger zerolog.Logger, ids []string, mode reconcile.Mode) (*table.Table, error) {
	if len(ids) == 0 {
		return nil, &accession.ValidationError{Field: "ids", Reason: "no accessions to fetch"}
	}

	batches, err := batch.Partition(ids, f.batchSize)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("accessions", len(ids)).
		Int("batches", len(batches)).
		Str("mode", mode.String()).
		Msg("Fetching metadata")

	asm := table.NewAssembler()
	tracker := reconcile.NewTracker(mode)

	for _, b := range batches {
		tracker.Reset()
		if f.progress != nil {
			f.progress(b)
		}
		logger.Info().
			Int("batch", b.Index).
			Int("of", b.Total).
			Int("start", b.Start).
			Int("end", b.End).
			Msg("Checking " + b.String())

		if err := f.fetchBatch(ctx, logger, b, tracker, asm); err != nil {
			batchesTotal.WithLabelValues(mode.String(), "failed").Inc()
			logger.Error().Err(err).Int("batch", b.Index).Msg("Fetch aborted")
			return nil, err
		}
		batchesTotal.WithLabelValues(mode.String(), "accepted").Inc()
	}

	t, err := asm.Build()
	if err != nil {
		logger.Error().Err(err).Msg("Fetch aborted")
		return nil, err
	}

	logger.Info().Int("records", t.Len()).Int("columns", len(t.Columns())).Msg("Fetch complete")
	return t, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, logger zerolog.Logger, b batch.Batch, tracker *reconcile.Tracker, asm *table.Assembler) error {
	stream, err := f.source.Fetch(ctx, b.IDs, f.batchSize)
	if err != nil {
		return fmt.Errorf("batch %d/%d: %w", b.Index, b.Total, err)
	}
	defer stream.Close()

	for {
		doc, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("batch %d/%d: %w", b.Index, b.Total, err)
		}

		rec, err := sra.Collate(doc)
		if err != nil {
			return fmt.Errorf("batch %d/%d: %w", b.Index, b.Total, err)
		}
		tracker.Observe(rec.ID())
		asm.Add(rec)
		recordsTotal.Inc()

		logger.Debug().Str("id", rec.ID()).Int("fields", rec.Len()).Msg("Collated document")
	}

	return tracker.Check(b)
}

func (f *Fetcher) operationLogger(operation string) zerolog.Logger {
	return f.logger.With().
		Str("fetch_id", uuid.NewString()).
		Str("operation", operation).
		Logger()
}

func observe(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
