package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tldcrawl/internal/fetcher"
	tlog "github.com/nao1215/tldcrawl/internal/log"
	"github.com/nao1215/tldcrawl/internal/model"
)

// Gate decides whether a URL may be fetched.
type Gate interface {
	IsAllowed(ctx context.Context, rawURL string) bool
}

// Renderer loads a page through a headless browser.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (*fetcher.Result, error)
}

// Recorder receives discovered domains. Add returns false for duplicates.
type Recorder interface {
	Add(ctx context.Context, rec model.DomainRecord) bool
}

// PageHook is called after every successfully fetched page with the new
// page count. The orchestrator uses it for periodic checkpoints.
type PageHook func(ctx context.Context, pages int64)

// idlePoll bounds how long the dispatcher sleeps without any signal.
const idlePoll = 250 * time.Millisecond

// Crawler is the worker pool that drains the Frontier.
//
// Design decision: One dispatcher goroutine pops batches and hands each item
// to an errgroup with SetLimit(concurrency), following the pipeline batch
// processor. Workers never return errors; a failed page is logged and
// skipped so one bad host cannot stop the run.
//
// The page budget is reserved at dispatch time (pages + in flight), so the
// number of fetched pages never exceeds maxPages.
type Crawler struct {
	frontier    *Frontier
	fetcher     fetcher.Fetcher
	renderer    Renderer
	gate        Gate
	parser      *Parser
	recorder    Recorder
	target      model.Target
	maxPages    int64
	concurrency int
	ignore      []string
	follow      []string
	onPage      PageHook
	logger      *slog.Logger

	pages    atomic.Int64
	inflight atomic.Int64
	idle     chan struct{}
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithConcurrency sets the number of parallel workers.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		c.concurrency = n
	}
}

// WithMaxPages sets the page budget for the run.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		c.maxPages = int64(n)
	}
}

// WithRenderer enables the headless escalation path.
func WithRenderer(r Renderer) Option {
	return func(c *Crawler) {
		c.renderer = r
	}
}

// WithGate sets the robots gate. Without one every URL is allowed.
func WithGate(g Gate) Option {
	return func(c *Crawler) {
		c.gate = g
	}
}

// WithPageHook sets the per-page callback.
func WithPageHook(hook PageHook) Option {
	return func(c *Crawler) {
		c.onPage = hook
	}
}

// WithIgnorePatterns sets URL path patterns that are never followed.
// Patterns use glob syntax (e.g., "/admin/*", "*.php").
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignore = patterns
	}
}

// WithFollowPatterns restricts followed links to matching paths.
// Empty means all paths are allowed (subject to ignore patterns).
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.follow = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler draining frontier with f and recording domains
// into rec.
func New(frontier *Frontier, f fetcher.Fetcher, rec Recorder, target model.Target, opts ...Option) *Crawler {
	c := &Crawler{
		frontier:    frontier,
		fetcher:     f,
		parser:      NewParser(),
		recorder:    rec,
		target:      target,
		maxPages:    1000,
		concurrency: 5,
		logger:      tlog.NewDiscardLogger(),
		idle:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Pages returns the number of pages fetched so far.
func (c *Crawler) Pages() int64 {
	return c.pages.Load()
}

// Run dispatches frontier items until the page budget is spent, the
// frontier is drained after producersDone is closed, or ctx is cancelled.
// A nil producersDone means no producer is running. Run waits for in-flight
// workers before returning; the only error it returns is ctx's.
func (c *Crawler) Run(ctx context.Context, producersDone <-chan struct{}) error {
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	producing := producersDone != nil
	for ctx.Err() == nil {
		if c.pages.Load() >= c.maxPages {
			c.logger.Info("page budget reached", "max_pages", c.maxPages)
			break
		}
		budget := c.maxPages - c.pages.Load() - c.inflight.Load()

		var batch []model.FrontierItem
		if budget > 0 {
			batch = c.frontier.PopBatch(int(min(budget, int64(c.concurrency))))
		}

		if len(batch) == 0 {
			if !producing && c.inflight.Load() == 0 && c.frontier.Len() == 0 {
				break
			}
			select {
			case <-ctx.Done():
			case <-c.frontier.Notify():
			case <-c.idle:
			case <-producersDone:
				producersDone = nil
				producing = false
			case <-time.After(idlePoll):
			}
			continue
		}

		for _, item := range batch {
			c.inflight.Add(1)
			g.Go(func() error {
				defer c.done()
				c.process(ctx, item)
				return nil
			})
		}
	}

	_ = g.Wait()
	return ctx.Err()
}

// done releases an in-flight slot and wakes the dispatcher.
func (c *Crawler) done() {
	c.inflight.Add(-1)
	select {
	case c.idle <- struct{}{}:
	default:
	}
}

// process runs gate, fetch, extract and record for one item.
func (c *Crawler) process(ctx context.Context, item model.FrontierItem) {
	logger := c.logger.With("url", item.URL, "depth", item.Depth)

	if c.gate != nil && !c.gate.IsAllowed(ctx, item.URL) {
		logger.Debug("disallowed by robots.txt")
		return
	}

	res, err := c.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Debug("fetch failed, skipping", "error", err)
		}
		return
	}
	pages := c.pages.Add(1)

	links, meta := c.extract(ctx, item.URL, res)

	method := item.Source
	if method == "" {
		method = model.MethodCrawl
	}
	if rec, ok := model.NewDomainRecord(item.URL, method, meta); ok {
		if c.recorder.Add(ctx, rec) {
			logger.Info("domain discovered", "domain", rec.Domain, "method", rec.DiscoveryMethod)
		}
	}

	children := make([]model.FrontierItem, 0, len(links))
	for _, link := range links {
		if !c.target.Matches(link) {
			continue
		}
		if rec, ok := model.NewDomainRecord(link, model.MethodLink, model.PageMetadata{}); ok {
			if c.recorder.Add(ctx, rec) {
				logger.Debug("domain discovered from link", "domain", rec.Domain)
			}
		}
		if item.Depth+1 > c.frontier.MaxDepth() || !c.shouldFollow(link) {
			continue
		}
		if model.IsValidURL(link) && !c.frontier.IsVisited(link) {
			children = append(children, model.FrontierItem{URL: link, Depth: item.Depth + 1, Source: model.MethodCrawl})
		}
	}
	c.frontier.Push(children...)

	if c.onPage != nil {
		c.onPage(ctx, pages)
	}
}

// extract parses the page and escalates to the renderer when an HTML page
// yields no links.
func (c *Crawler) extract(ctx context.Context, rawURL string, res *fetcher.Result) ([]string, model.PageMetadata) {
	if !res.IsHTML() {
		return nil, model.PageMetadata{}
	}
	base := res.FinalURL
	if base == "" {
		base = rawURL
	}
	links, meta := c.parser.Extract(res.Body, base)
	if len(links) > 0 || c.renderer == nil {
		return links, meta
	}

	rendered, err := c.renderer.Render(ctx, rawURL)
	if err != nil {
		c.logger.Debug("headless render failed", "url", rawURL, "error", err)
		return links, meta
	}
	rLinks, rMeta := c.parser.Extract(rendered.Body, rendered.FinalURL)
	if rMeta.IsZero() {
		rMeta = meta
	}
	c.logger.Debug("page rendered after empty extraction", "url", rawURL, "links", len(rLinks))
	return rLinks, rMeta
}
