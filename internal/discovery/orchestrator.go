package discovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tldcrawl/internal/catalog"
	"github.com/nao1215/tldcrawl/internal/crawler"
	"github.com/nao1215/tldcrawl/internal/fetcher"
	tlog "github.com/nao1215/tldcrawl/internal/log"
	"github.com/nao1215/tldcrawl/internal/model"
)

// Run outcomes reported to the history.
const (
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
)

// History records the outcome of a run.
type History interface {
	FinishRun(ctx context.Context, id, status string, pages int64, domainsAdded int) error
}

// Archiver copies the final catalog to a timestamped file.
type Archiver interface {
	Archive() (string, error)
}

// Summary is the result of a finished run.
type Summary struct {
	Stats model.RunStats
	// Failed lists the strategies that returned an error.
	Failed []string
	// ArchivePath is the timestamped copy of the final catalog, if written.
	ArchivePath string
}

// Orchestrator owns one crawl run: the worker pool, the discovery phases and
// the run state.
//
// Design decision: Strategies run in phases, like pipeline steps, but the
// steps of one phase run concurrently and the worker pool runs alongside all
// phases. Phase 1 holds every independent source; phase 2 holds brute
// forcing, which needs phase 1's discoveries. A failed strategy is logged
// and the run continues, matching a pipeline with continue-on-error.
type Orchestrator struct {
	crawler  *crawler.Crawler
	catalog  *catalog.Catalog
	target   model.Target
	env      Env
	phases   [][]Strategy
	logger   *slog.Logger
	clock    fetcher.Clock
	history  History
	archiver Archiver
	closers  []io.Closer

	runID           string
	searchEngines   []string
	checkpointEvery int64
	crawlerOpts     []crawler.Option

	running atomic.Bool
	mu      sync.RWMutex
	start   time.Time
	end     time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPhase appends a phase. Strategies within one phase run concurrently.
func WithPhase(strategies ...Strategy) Option {
	return func(o *Orchestrator) {
		if len(strategies) > 0 {
			o.phases = append(o.phases, strategies)
		}
	}
}

// WithCrawlerOptions passes options to the worker pool.
func WithCrawlerOptions(opts ...crawler.Option) Option {
	return func(o *Orchestrator) {
		o.crawlerOpts = append(o.crawlerOpts, opts...)
	}
}

// WithCheckpointEvery writes a full snapshot every n crawled pages.
// Zero disables page-count checkpoints.
func WithCheckpointEvery(n int) Option {
	return func(o *Orchestrator) {
		o.checkpointEvery = int64(n)
	}
}

// WithRunID sets the run identifier written to the catalog metadata.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// WithSearchEngines sets the engines listed in the catalog metadata.
func WithSearchEngines(engines []string) Option {
	return func(o *Orchestrator) {
		o.searchEngines = engines
	}
}

// WithHistory records the run outcome when the run ends.
func WithHistory(h History) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithArchiver writes a timestamped copy of the catalog when the run ends.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) {
		o.archiver = a
	}
}

// WithCloser registers a resource released when the run ends, however it
// ends. The headless browser is registered here.
func WithCloser(c io.Closer) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.closers = append(o.closers, c)
		}
	}
}

// WithClock sets the time source for pauses and run timing.
func WithClock(c fetcher.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithRand sets the random source handed to strategies.
func WithRand(r *fetcher.Rand) Option {
	return func(o *Orchestrator) {
		o.env.Rand = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator whose worker pool drains frontier with f and
// records into cat.
func New(frontier *crawler.Frontier, f fetcher.Fetcher, cat *catalog.Catalog, target model.Target, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog: cat,
		target:  target,
		logger:  tlog.NewDiscardLogger(),
		clock:   fetcher.SystemClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.env.Rand == nil {
		o.env.Rand = fetcher.NewRand(uint64(time.Now().UnixNano())) //nolint:gosec // non-negative
	}
	o.env.Target = target
	o.env.Frontier = frontier
	o.env.Catalog = cat
	o.env.Clock = o.clock
	o.env.Logger = o.logger

	crawlerOpts := append([]crawler.Option{
		crawler.WithLogger(o.logger.With("component", "crawler")),
	}, o.crawlerOpts...)
	crawlerOpts = append(crawlerOpts, crawler.WithPageHook(o.onPage))
	o.crawler = crawler.New(frontier, f, cat, target, crawlerOpts...)
	return o
}

// StrategyNames returns the names of every scheduled strategy in phase order.
func (o *Orchestrator) StrategyNames() []string {
	var names []string
	for _, phase := range o.phases {
		for _, s := range phase {
			names = append(names, s.Name())
		}
	}
	return names
}

// Stats returns a snapshot of the run counters. It is safe to call from any
// goroutine while the run is in progress.
func (o *Orchestrator) Stats() model.RunStats {
	o.mu.RLock()
	start, end := o.start, o.end
	o.mu.RUnlock()

	stats := model.RunStats{
		Running:           o.running.Load(),
		PagesCrawled:      o.crawler.Pages(),
		DomainsDiscovered: o.catalog.Added(),
		StartTime:         start,
	}
	switch {
	case start.IsZero():
	case end.IsZero():
		stats.Elapsed = o.clock.Now().Sub(start)
	default:
		stats.Elapsed = end.Sub(start)
	}
	return stats
}

// Run executes every phase with the worker pool running alongside, then
// writes the final snapshot and the archive. It returns ctx's error when the
// run was cancelled; the summary is valid either way.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	o.mu.Lock()
	o.start = o.clock.Now()
	o.end = time.Time{}
	o.mu.Unlock()
	o.running.Store(true)
	defer o.close()

	o.logger.Info("crawl started",
		"suffix", o.target.Suffix(),
		"strategies", o.StrategyNames(),
		"run_id", o.runID,
	)

	producersDone := make(chan struct{})
	crawlDone := make(chan error, 1)
	go func() {
		crawlDone <- o.crawler.Run(ctx, producersDone)
	}()

	var failed []string
	for i, phase := range o.phases {
		if ctx.Err() != nil {
			break
		}
		o.logger.Info("discovery phase started", "phase", i+1, "strategies", len(phase))
		failed = append(failed, o.runPhase(ctx, phase)...)
	}
	close(producersDone)
	runErr := <-crawlDone

	o.mu.Lock()
	o.end = o.clock.Now()
	o.mu.Unlock()
	o.running.Store(false)

	// Persistence and bookkeeping must finish even after cancellation.
	final := context.WithoutCancel(ctx)
	o.checkpoint("final")

	summary := &Summary{Stats: o.Stats(), Failed: failed}
	if o.archiver != nil {
		path, err := o.archiver.Archive()
		if err != nil {
			o.logger.Error("failed to archive catalog", "error", err)
		} else {
			summary.ArchivePath = path
		}
	}
	if o.history != nil && o.runID != "" {
		outcome := OutcomeCompleted
		if runErr != nil {
			outcome = OutcomeCanceled
		}
		if err := o.history.FinishRun(final, o.runID, outcome, summary.Stats.PagesCrawled, summary.Stats.DomainsDiscovered); err != nil {
			o.logger.Error("failed to record run outcome", "error", err)
		}
	}

	o.logger.Info("crawl finished",
		"pages_crawled", summary.Stats.PagesCrawled,
		"domains_discovered", summary.Stats.DomainsDiscovered,
		"elapsed", summary.Stats.Elapsed.Round(time.Second),
	)
	return summary, runErr
}

// runPhase runs the strategies of one phase concurrently and returns the
// names of those that failed.
func (o *Orchestrator) runPhase(ctx context.Context, phase []Strategy) []string {
	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)
	for _, s := range phase {
		g.Go(func() error {
			env := o.env
			env.Logger = o.logger.With("strategy", s.Name())
			if err := s.Run(ctx, &env); err != nil && !errors.Is(err, context.Canceled) {
				env.Logger.Warn("strategy failed", "error", err)
				mu.Lock()
				failed = append(failed, s.Name())
				mu.Unlock()
			}
			o.checkpoint(s.Name())
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // strategy goroutines never return errors
	return failed
}

// onPage checkpoints every checkpointEvery pages.
func (o *Orchestrator) onPage(_ context.Context, pages int64) {
	if o.checkpointEvery > 0 && pages%o.checkpointEvery == 0 {
		o.checkpoint("pages")
	}
}

// checkpoint writes a full snapshot with the current run metadata.
func (o *Orchestrator) checkpoint(reason string) {
	err := o.catalog.Checkpoint(o.metadata())
	switch {
	case err == nil:
		o.logger.Debug("checkpoint written", "reason", reason, "domains", o.catalog.Len())
	case errors.Is(err, catalog.ErrNoStore):
	default:
		o.logger.Error("checkpoint failed", "reason", reason, "error", err)
	}
}

// metadata describes the run for the catalog document.
func (o *Orchestrator) metadata() model.DocumentMetadata {
	stats := o.Stats()
	engines := o.searchEngines
	if engines == nil {
		engines = []string{}
	}
	return model.DocumentMetadata{
		CrawlDate:         stats.StartTime.UTC(),
		CrawlDuration:     stats.Elapsed.Round(time.Millisecond).String(),
		SearchEnginesUsed: engines,
		DiscoveryMethods:  o.StrategyNames(),
		RunID:             o.runID,
	}
}

// close releases registered resources.
func (o *Orchestrator) close() {
	o.running.Store(false)
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			o.logger.Warn("failed to release resource", "error", err)
		}
	}
}
