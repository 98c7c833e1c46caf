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

	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/discovery"
	"github.com/nao1215/tldcrawl/internal/model"
	"github.com/nao1215/tldcrawl/internal/transport"
)

// defaultProgressInterval is how often the running crawl logs its counters.
const defaultProgressInterval = 30 * time.Second

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discover domains and update the catalog",
		Long: `Crawl runs every enabled discovery strategy and the crawl worker pool,
and keeps <output-dir>/<label>_domains.json up to date as domains are found.

Strategies run in two phases. Certificate transparency, seeds, zone
transfer and search run first and concurrently. Subdomain brute forcing
runs afterwards over every domain found so far. Pages reached by any
strategy are crawled while discovery is still running.

A crawl resumes from the existing catalog file: known domains are never
recorded twice. Press Ctrl+C to stop; the catalog is saved before exit.

Examples:
  # Crawl .rw with default settings
  tldcrawl crawl

  # Only use certificate transparency and seeds, 200 pages at most
  tldcrawl crawl --strategy ct_log,seed --max-pages 200

  # Route requests through two proxies and render pages with Chrome
  tldcrawl crawl --proxy socks5://127.0.0.1:9050 --proxy http://10.0.0.2:3128 --headless

  # Catalog a different top-level domain
  tldcrawl crawl --suffix .ke --seed go.ke --seed kenet.or.ke`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Scope flags
	cmd.Flags().String("suffix", config.DefaultTargetSuffix, "Top-level domain to catalog")
	cmd.Flags().StringSlice("seed", nil, "Seed domain (repeatable, replaces the default seeds)")
	cmd.Flags().StringSlice("strategy", nil,
		"Discovery strategy: ct_log, seed, zone_transfer, search, bruteforce (default: all)")
	cmd.Flags().StringSlice("engine", nil, "Search engine for the search strategy (repeatable)")

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages to fetch")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth, "Maximum link depth")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency, "Number of concurrent fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout, "Timeout for each request")
	cmd.Flags().StringSlice("proxy", nil, "Proxy URL, http:// https:// or socks5:// (repeatable)")
	cmd.Flags().Bool("headless", false, "Render search pages and link-less pages with headless Chrome")
	cmd.Flags().Bool("no-robots", false, "Ignore robots.txt")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir, "Directory for the catalog files")
	cmd.Flags().String("db-dir", "", "Run history database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false, "Do not record the run in the history database")
	cmd.Flags().Duration("progress", defaultProgressInterval, "Interval of progress log lines, 0 disables")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger)

	progress, err := cmd.Flags().GetDuration("progress")
	if err != nil {
		return err
	}

	// Cancel on interrupt; the orchestrator still writes the final snapshot.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), progress, logger)
}

// buildConfig creates a Config from defaults, the config file and the flags
// that were set explicitly, in that order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.ApplyTo(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormat(cmd)
	return cfg, nil
}

// applyFlags copies every explicitly set flag into cfg.
//
// Design decision: Only changed flags are applied. Flag defaults equal the
// config defaults, so applying them unconditionally would silently undo the
// config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	set := func(name string, apply func() error) {
		if err == nil && flags.Changed(name) {
			err = apply()
		}
	}
	str := func(dst *string, name string) func() error {
		return func() (e error) { *dst, e = flags.GetString(name); return }
	}
	slice := func(dst *[]string, name string) func() error {
		return func() (e error) { *dst, e = flags.GetStringSlice(name); return }
	}
	integer := func(dst *int, name string) func() error {
		return func() (e error) { *dst, e = flags.GetInt(name); return }
	}

	set("suffix", str(&cfg.TargetSuffix, "suffix"))
	set("seed", slice(&cfg.Seeds, "seed"))
	set("strategy", slice(&cfg.Strategies, "strategy"))
	set("engine", slice(&cfg.SearchEngines, "engine"))
	set("proxy", slice(&cfg.Proxies, "proxy"))
	set("max-pages", integer(&cfg.MaxPages, "max-pages"))
	set("depth", integer(&cfg.MaxDepth, "depth"))
	set("concurrency", integer(&cfg.Concurrency, "concurrency"))
	set("output-dir", str(&cfg.OutputDir, "output-dir"))
	set("db-dir", str(&cfg.DBDir, "db-dir"))
	set("timeout", func() (e error) { cfg.RequestTimeout, e = flags.GetDuration("timeout"); return })
	set("headless", func() (e error) { cfg.Headless, e = flags.GetBool("headless"); return })
	set("no-robots", func() error {
		ignore, e := flags.GetBool("no-robots")
		cfg.RespectRobots = !ignore
		return e
	})
	set("no-db", func() error {
		off, e := flags.GetBool("no-db")
		cfg.SaveToDB = !off
		return e
	})
	return err
}

// runCrawl wires and runs one crawl and prints its summary to out.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, progress time.Duration, logger *slog.Logger) error {
	rt, err := discovery.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("catalog loaded",
		"path", rt.Store.Path(),
		"known_domains", rt.Preloaded,
		"run_id", rt.RunID,
	)
	checkProxies(ctx, rt.Pool, logger)

	stopProgress := startProgress(rt.Orchestrator, progress, logger)
	summary, runErr := rt.Orchestrator.Run(ctx)
	stopProgress()

	printSummary(out, rt, summary)

	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(out, "Crawl interrupted; the catalog holds every domain found so far.")
		return nil
	}
	return runErr
}

// checkProxies drops unreachable proxies from the pool before the run.
// When none is left the crawl falls back to direct connections.
func checkProxies(ctx context.Context, pool *transport.Pool, logger *slog.Logger) {
	configured := pool.Len()
	if configured == 0 {
		return
	}
	pool.Retain(func(ep *transport.Endpoint) bool {
		status := ep.Check(ctx)
		if status != transport.ProxyStatusOK {
			logger.Warn("proxy unavailable, removing it from the pool", "proxy", ep.Name(), "status", status.String())
			return false
		}
		return true
	})
	if pool.Len() == 0 {
		logger.Warn("no configured proxy is reachable, using direct connections", "configured", configured)
		return
	}
	logger.Info("proxy pool verified", "usable", pool.Len(), "configured", configured)
}

// statsSource is polled by the progress reporter.
type statsSource interface {
	Stats() model.RunStats
}

// startProgress logs the run counters every interval until the returned
// function is called.
func startProgress(src statsSource, interval time.Duration, logger *slog.Logger) func() {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s := src.Stats()
				logger.Info("progress",
					"pages_crawled", s.PagesCrawled,
					"domains_discovered", s.DomainsDiscovered,
					"elapsed", s.Elapsed.Round(time.Second),
				)
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

// printSummary writes the human-readable run summary.
func printSummary(out io.Writer, rt *discovery.Runtime, summary *discovery.Summary) {
	if summary == nil {
		return
	}
	fmt.Fprintf(out, "\nCrawl finished in %s\n", summary.Stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  Pages crawled:   %d\n", summary.Stats.PagesCrawled)
	fmt.Fprintf(out, "  New domains:     %d\n", summary.Stats.DomainsDiscovered)
	fmt.Fprintf(out, "  Catalog size:    %d\n", rt.Catalog.Len())
	fmt.Fprintf(out, "  Catalog:         %s\n", rt.Store.Path())
	if summary.ArchivePath != "" {
		fmt.Fprintf(out, "  Archive:         %s\n", summary.ArchivePath)
	}
	if len(summary.Failed) > 0 {
		fmt.Fprintf(out, "  Failed sources:  %v\n", summary.Failed)
	}
}
