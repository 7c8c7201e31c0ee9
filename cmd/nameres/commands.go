package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/nameres/config"
	"github.com/poiesic/nameres/core"
	"github.com/poiesic/nameres/ingestion"
	"github.com/poiesic/nameres/resolve"
	"github.com/poiesic/nameres/source"
	"github.com/poiesic/nameres/storage"
	"github.com/urfave/cli/v2"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:   "ingest",
		Usage:  "Embed a synonym corpus and load it into a fresh collection",
		Action: ingestAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Aliases:  []string{"s"},
				Usage:    "Directory of synonym files, one partition per file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Synonym file format (babel, tsv, auto)",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of names to embed and upsert per batch",
			},
			&cli.BoolFlag{
				Name:  "pipelined",
				Usage: "Embed the next batch while the previous one is written",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts for transient embedding or index failures",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N points (0 disables)",
			},
		},
	}
}

func ingestAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ingest := &cfg.Ingest
	if c.IsSet("format") {
		ingest.Format = c.String("format")
	}
	if c.IsSet("batch-size") {
		ingest.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("pipelined") {
		ingest.Pipelined = c.Bool("pipelined")
	}
	if c.IsSet("max-retries") {
		ingest.MaxAttempts = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		ingest.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("report-interval") {
		ingest.ReportInterval = c.Int("report-interval")
	}

	format, err := source.ParseFormat(ingest.Format)
	if err != nil {
		return err
	}
	src, err := source.Directory(c.String("source"), format)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	var opts []ingestion.Option
	if ingest.ReportInterval > 0 {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter, ingest.ReportInterval))
	}
	pipeline, err := svc.NewPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	errw := c.App.ErrWriter
	fmt.Fprintf(errw, "Source: %s (%s)\n", c.String("source"), format)
	describe(errw, cfg)
	fmt.Fprintln(errw)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx, src)
	if summary != nil {
		summary.Print(c.App.Writer)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve lookups over HTTP",
		Action: serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
			},
			&cli.DurationFlag{
				Name:  "request-timeout",
				Usage: "Timeout for the embed and search work of one request",
			},
		},
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("request-timeout") {
		cfg.Server.RequestTimeout = c.Duration("request-timeout")
	}

	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := svc.NewResolver()
	if err != nil {
		return err
	}
	if err := resolver.CheckCompatibility(ctx); err != nil {
		if !errors.Is(err, storage.ErrCollectionNotFound) && !errors.Is(err, core.ErrUnavailable) {
			return err
		}
		// Lookups answer 503 until the collection is ingested or reachable.
		slog.Warn("index not ready", "err", err)
	}

	srv, err := svc.NewServer()
	if err != nil {
		return err
	}
	describe(c.App.ErrWriter, cfg)
	return srv.Run(ctx)
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Resolve a string once and print the matching concepts",
		ArgsUsage: "TEXT...",
		Action:    lookupAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of nearest names to consider",
				Value: resolve.DefaultLimit,
			},
			&cli.StringFlag{
				Name:  "biolink-type",
				Usage: "Keep only concepts of this Biolink type",
			},
			&cli.StringFlag{
				Name:  "only-prefixes",
				Usage: "Pipe-separated CURIE prefixes to keep, e.g. MONDO|EFO",
			},
			&cli.StringFlag{
				Name:  "exclude-prefixes",
				Usage: "Pipe-separated CURIE prefixes to drop",
			},
			&cli.BoolFlag{
				Name:  "explain",
				Usage: "Trace each lookup stage to stderr",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
	}
}

func lookupAction(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return errors.New("lookup text is required")
	}

	q := resolve.NewQuery(text)
	q.Limit = c.Int("limit")
	q.BiolinkType = c.String("biolink-type")
	q.OnlyPrefixes = resolve.ParsePrefixes(c.String("only-prefixes"))
	q.ExcludePrefixes = resolve.ParsePrefixes(c.String("exclude-prefixes"))
	if err := q.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	resolver, err := svc.NewResolver()
	if err != nil {
		return err
	}

	monitor := resolve.LookupMonitor(nil)
	if c.Bool("explain") {
		monitor = resolve.NewWriterMonitor(c.App.ErrWriter)
	}

	start := time.Now()
	results, err := resolver.LookupWithMonitor(c.Context, q, monitor)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tCURIE\tLABEL\tTYPES")
	for _, r := range results {
		fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\n", r.Score, r.Curie, r.Label, strings.Join(r.Types, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "%d results in %s\n", len(results), elapsed(start))
	return nil
}

func countCommand() *cli.Command {
	return &cli.Command{
		Name:   "count",
		Usage:  "Print the number of indexed points",
		Action: countAction,
	}
}

func countAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := openService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	count, err := svc.Index().Count(c.Context)
	if err != nil {
		return fmt.Errorf("count %s: %w", svc.Index().Name(), err)
	}
	fmt.Fprintln(c.App.Writer, count)
	return nil
}

func initConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "init-config",
		Usage:  "Write the default configuration to the --config path",
		Action: initConfigAction,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing file",
			},
		},
	}
}

func initConfigAction(c *cli.Context) error {
	path := c.String("config")
	if !c.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Wrote %s\n", path)
	return nil
}
