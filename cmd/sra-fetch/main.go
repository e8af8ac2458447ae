package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/sra-metadata-client/internal/config"
	"github.com/Sternrassler/sra-metadata-client/pkg/accession"
	"github.com/Sternrassler/sra-metadata-client/pkg/batch"
	"github.com/Sternrassler/sra-metadata-client/pkg/cache"
	"github.com/Sternrassler/sra-metadata-client/pkg/eutils"
	"github.com/Sternrassler/sra-metadata-client/pkg/fetch"
	"github.com/Sternrassler/sra-metadata-client/pkg/logging"
	"github.com/Sternrassler/sra-metadata-client/pkg/metadata"
	"github.com/Sternrassler/sra-metadata-client/pkg/metrics"
	"github.com/Sternrassler/sra-metadata-client/pkg/table"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

const defaultOutput = "sra-metadata.tsv"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries what the subcommands share once configuration is loaded.
type app struct {
	out     io.Writer
	cfg     *config.Config
	logger  zerolog.Logger
	cleanup []func()
}

func newCommand(out io.Writer) *cli.Command {
	a := &app{out: out}

	return &cli.Command{
		Name:  "sra-fetch",
		Usage: "fetch SRA run metadata from NCBI E-utilities",
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, a.setup(ctx)
		},
		After: func(ctx context.Context, c *cli.Command) error {
			a.close()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "runs",
				Usage: "fetch metadata for the run accessions listed in a metadata file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "metadata",
						Aliases:  []string{"m"},
						Usage:    "metadata TSV holding run accessions",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "column",
						Usage: "column holding the run accessions (detected when omitted)",
					},
					&cli.BoolFlag{
						Name:  "skip-missing",
						Usage: "ignore samples without a run accession",
					},
					batchSizeFlag(),
					outputFlag(),
				},
				Action: a.runs,
			},
			{
				Name:      "project",
				Usage:     "fetch metadata for every run of a BioProject",
				ArgsUsage: "PRJNA...",
				Flags:     []cli.Flag{batchSizeFlag(), outputFlag()},
				Action:    a.project,
			},
		},
	}
}

func batchSizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "batch-size",
		Usage: "accessions per request (default from SRA_BATCH_SIZE)",
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   defaultOutput,
		Usage:   "TSV file receiving the fetched metadata",
	}
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg

	logging.Setup(cfg.Logging())
	a.logger = logging.NewLogger("sra-fetch")

	if cfg.MetricsAddr != "" {
		if _, err := metrics.Serve(ctx, cfg.MetricsAddr, a.logger); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() {
	for _, fn := range a.cleanup {
		fn()
	}
	a.cleanup = nil
}

// fetcher builds a fetcher from the loaded configuration and flags.
func (a *app) fetcher(c *cli.Command) (*fetch.Fetcher, error) {
	client, err := eutils.New(a.cfg.Eutils())
	if err != nil {
		return nil, err
	}

	size := a.cfg.BatchSize
	if c.IsSet("batch-size") {
		size = int(c.Int("batch-size"))
		if size <= 0 {
			return nil, fmt.Errorf("--batch-size: %w (got %d)", batch.ErrInvalidSize, size)
		}
	}

	fc := fetch.Config{
		Source:    client,
		BatchSize: size,
		Progress: func(b batch.Batch) {
			if b.Total > 1 {
				fmt.Fprintln(a.out, "Checking "+b.String())
			}
		},
	}

	if a.cfg.RedisURL != "" {
		opts, err := a.cfg.RedisOptions()
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(opts)
		a.cleanup = append(a.cleanup, func() { rdb.Close() })
		fc.Cache = cache.NewManager(rdb, a.cfg.CacheTTL)
	}

	return fetch.New(fc)
}

func (a *app) runs(ctx context.Context, c *cli.Command) error {
	md, err := metadata.LoadFile(c.String("metadata"))
	if err != nil {
		return err
	}

	ids, err := accession.Collect(md, c.String("column"), c.Bool("skip-missing"))
	if err != nil {
		return err
	}

	f, err := a.fetcher(c)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "SRA-run accessions collected. Checking for existence on SRA.")
	t, err := f.FetchRuns(ctx, ids)
	if err != nil {
		return err
	}
	return a.finish(c, t)
}

func (a *app) project(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one BioProject accession, got %d arguments", c.NArg())
	}

	f, err := a.fetcher(c)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Checking for BioProject and run files on SRA")
	t, err := f.FetchProject(ctx, c.Args().First())
	if err != nil {
		return err
	}
	return a.finish(c, t)
}

func (a *app) finish(c *cli.Command, t *table.Table) error {
	fmt.Fprintln(a.out, "All accessions appear to exist.")

	path := c.String("output")
	if err := metadata.WriteTableFile(path, t); err != nil {
		return err
	}

	a.logger.Info().Str("output", path).Int("records", t.Len()).Msg("Wrote metadata")
	return nil
}
