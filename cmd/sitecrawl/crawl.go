package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/extract"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	sclog "github.com/nao1215/sitecrawl/internal/log"
	"github.com/nao1215/sitecrawl/internal/report"
	"github.com/nao1215/sitecrawl/internal/robots"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl a website and extract the main text of every page",
		Long: `Crawl visits every page reachable from the seed URL on the same host,
breadth-first, and records one result per normalized URL:

  success            text, title and the extraction method used
  skipped_non_html   content type of a non-HTML response
  error              timeout, transport failure or non-2xx status
  processing_error   the page could not be parsed

Results are written to the output file every --checkpoint pages, when the
frontier is empty, and when the crawl is interrupted with Ctrl+C. Crawl
state is also saved to a local database so that --resume can continue an
interrupted crawl from where it stopped.

Exit status is 0 when the crawl completed, 130 when it was interrupted,
and 1 on any other error.

Examples:
  # Crawl a site with default settings
  sitecrawl crawl https://example.com/

  # Slower crawl with a custom output file
  sitecrawl crawl --delay 2s -o example.json https://example.com/

  # Continue an interrupted crawl
  sitecrawl crawl --resume https://example.com/

  # Four workers sharing one request every 250ms
  sitecrawl crawl -w 4 --delay 250ms https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"JSON snapshot file")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Pause before every request")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of a single request")
	cmd.Flags().IntP("checkpoint", "n", config.DefaultCheckpointInterval,
		"Processed pages between checkpoints")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent sent with every request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetch workers")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Extra attempts for transient fetch failures")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff,
		"Base delay between retries")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop after this many pages (0 = unlimited)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest response body read, in bytes")
	cmd.Flags().BoolP("resume", "r", false,
		"Continue the saved crawl of the seed")
	cmd.Flags().Bool("respect-robots", true,
		"Follow robots.txt rules")
	cmd.Flags().Bool("no-state", false,
		"Do not save crawl state for --resume")
	cmd.Flags().String("state-dir", config.XDGDataDir(),
		"Directory of the crawl-state database")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().String("cookie", "",
		"Cookie header sent with every request")
	cmd.Flags().StringToString("header", nil,
		"Extra request header as name=value (repeatable)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: ./.sitecrawl, then the XDG config dir, then ~/.sitecrawl)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := sclog.New(os.Stderr, sclog.Options{Verbose: cfg.Verbose, JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The handler only requests cancellation; the crawl loop saves the
	// final snapshot before returning.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupt received. Stopping crawl and saving final data...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// getBoolFlag reads a persistent flag from the command or the root.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags that were set explicitly, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly given file must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
		cfg.ConfigFilePath = configPath
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("output") {
		if cfg.OutputPath, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("checkpoint") {
		if cfg.CheckpointInterval, err = flags.GetInt("checkpoint"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("retries") {
		if cfg.Retries, err = flags.GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("retry-backoff") {
		if cfg.RetryBackoff, err = flags.GetDuration("retry-backoff"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("respect-robots") {
		if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("state-dir") {
		if cfg.StateDir, err = flags.GetString("state-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cookie") {
		if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
			return nil, err
		}
	}

	headers, err := flags.GetStringToString("header")
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		cfg.Headers[k] = v
	}

	if cfg.Resume, err = flags.GetBool("resume"); err != nil {
		return nil, err
	}
	noState, err := flags.GetBool("no-state")
	if err != nil {
		return nil, err
	}
	cfg.SaveState = !noState

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	if len(args) > 0 {
		cfg.Seed = args[0]
	}

	return cfg, nil
}

// newExtractor builds the extractor from the extraction settings.
func newExtractor(cfg *config.Config, logger *slog.Logger) (*extract.Extractor, error) {
	return extract.New(
		extract.WithLandmarkID(cfg.Extract.LandmarkID),
		extract.WithWrapperClass(cfg.Extract.WrapperClass),
		extract.WithWrapperBoilerplate(cfg.Extract.WrapperBoilerplate),
		extract.WithFallbackBoilerplate(cfg.Extract.FallbackBoilerplate),
		extract.WithFallbackClassPatterns(cfg.Extract.FallbackClassPatterns),
		extract.WithLogger(logger),
	)
}

// newFetcher builds the HTTP fetcher and wraps it in a Retrier.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetcher.HTTPFetcher, fetcher.Fetcher, error) {
	base, err := fetcher.New(
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithCookie(cfg.Cookie),
		fetcher.WithHeaders(cfg.Headers),
		fetcher.WithProxy(cfg.ProxyAddress),
		fetcher.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	// Requests in flight outlive an interrupt, with or without retries.
	policy := fetcher.DefaultRetryPolicy()
	policy.Retries = cfg.Retries
	policy.Backoff = cfg.RetryBackoff
	return base, fetcher.NewRetrier(base, policy, logger), nil
}

// openState opens the state database and returns the crawl state to run:
// the saved one when resuming, a fresh one otherwise. db is nil when state
// saving is disabled.
func openState(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*crawler.State, *database.CrawlDB, error) {
	st, err := crawler.NewState(cfg.Seed)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.SaveState && !cfg.Resume {
		return st, nil, nil
	}

	db, err := database.Open(cfg.StateDir, database.DefaultOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// An interrupt before the first fetch must still leave consistent state.
	ctx = context.WithoutCancel(ctx)

	if !cfg.Resume {
		if err := db.Reset(ctx, st.Seed()); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, nil, fmt.Errorf("failed to reset saved state: %w", err)
		}
		return st, db, nil
	}

	snap, err := db.LoadState(ctx, st.Seed())
	switch {
	case errors.Is(err, database.ErrNoState):
		fmt.Fprintf(out, "No saved crawl for %s, starting a new one.\n", st.Seed())
		return st, db, nil
	case err != nil:
		_ = db.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("failed to load saved state: %w", err)
	}

	restored, err := crawler.RestoreState(snap)
	if err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}
	logger.Info("resuming crawl", "seed", snap.Seed, "processed", snap.Processed, "pending", len(snap.Queue))
	fmt.Fprintf(out, "Resuming crawl: %d pages done, %d pending.\n", snap.Processed, len(snap.Queue))
	return restored, db, nil
}

// runCrawl executes a crawl described by cfg.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	base, f, err := newFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	ex, err := newExtractor(cfg, logger)
	if err != nil {
		return fmt.Errorf("invalid extraction settings: %w", err)
	}

	st, db, err := openState(ctx, cfg, logger, out)
	if err != nil {
		return err
	}

	sinks := []report.Checkpointer{report.NewJSONWriter(cfg.OutputPath)}
	if db != nil {
		defer db.Close()
		if cfg.SaveState {
			sinks = append(sinks, db)
		}
	}

	policy := robots.New(cfg.UserAgent, cfg.RespectRobots,
		robots.WithHTTPClient(base.Client()),
		robots.WithLogger(logger),
	)

	delay := cfg.CrawlDelay
	if d := policy.CrawlDelay(context.WithoutCancel(ctx), st.Seed()); d > delay {
		logger.Info("robots.txt raises the crawl delay", "delay", d)
		delay = d
	}

	printBanner(out, cfg, st, policy, delay)

	spider := crawler.NewSpider(f, ex,
		crawler.WithPacer(fetcher.NewPacer(delay, cfg.Workers)),
		crawler.WithRobots(policy),
		crawler.WithCheckpointer(report.NewMultiCheckpointer(sinks...)),
		crawler.WithCheckpointInterval(cfg.CheckpointInterval),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLogger(logger),
	)

	summary, err := spider.Crawl(ctx, st)
	if err != nil {
		return err
	}

	if _, err := report.NewSimpleWriter(out).Write(report.Completion{
		Outcome:          summary.Outcome.String(),
		Processed:        summary.Processed,
		ProcessedThisRun: summary.ProcessedThisRun,
		Visited:          summary.Visited,
		Pending:          summary.Pending,
		LimitReached:     summary.LimitReached,
		Elapsed:          summary.Elapsed,
		Output:           cfg.OutputPath,
	}); err != nil {
		logger.Warn("failed to print summary", "error", err)
	}

	if summary.Outcome == crawler.OutcomeInterrupted {
		return errInterrupted
	}
	return nil
}

// printBanner prints the crawl settings before the first request.
func printBanner(out io.Writer, cfg *config.Config, st *crawler.State, policy *robots.Policy, delay time.Duration) {
	if !policy.Respect() {
		fmt.Fprintln(out, "WARNING: robots.txt rules are ignored. Crawl only sites you are allowed to.")
	}
	fmt.Fprintf(out, "Starting crawl for %s\n", st.Seed())
	fmt.Fprintf(out, "Allowed domain: %s\n", st.Host())
	fmt.Fprintf(out, "Output file: %s\n", cfg.OutputPath)
	fmt.Fprintf(out, "Request delay: %s\n", delay)
	fmt.Fprintf(out, "Saving progress every %d pages\n", cfg.CheckpointInterval)
	if cfg.SaveState {
		fmt.Fprintf(out, "Crawl state: %s\n", cfg.StatePath())
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop gracefully and save final progress.")
}
