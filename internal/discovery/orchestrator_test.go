package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/tldcrawl/internal/catalog"
	"github.com/nao1215/tldcrawl/internal/crawler"
	"github.com/nao1215/tldcrawl/internal/model"
)

// funcStrategy adapts a function to Strategy.
type funcStrategy struct {
	name string
	run  func(ctx context.Context, env *Env) error
}

func (s *funcStrategy) Name() string { return s.name }

func (s *funcStrategy) Run(ctx context.Context, env *Env) error { return s.run(ctx, env) }

type fakeHistory struct {
	mu      sync.Mutex
	id      string
	outcome string
	pages   int64
	added   int
}

func (h *fakeHistory) FinishRun(_ context.Context, id, status string, pages int64, added int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.id, h.outcome, h.pages, h.added = id, status, pages, added
	return nil
}

type countingCloser struct {
	closed atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return nil
}

func TestOrchestratorRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := model.NewTarget(".rw")
	store := catalog.NewStore(dir, target.Label(), catalog.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	}))
	cat := catalog.New(catalog.WithStore(store))

	pages := &pageFetcher{pages: map[string]string{
		"https://gov.rw":             `<html><head><title>Gov</title></head><body><a href="https://minict.gov.rw/">MINICT</a></body></html>`,
		"https://minict.gov.rw/":     `<html><head><title>MINICT</title></head><body>no links</body></html>`,
		"https://search-hit.co.rw/":  `<html><title>Hit</title></html>`,
		"https://never-fetched.rw/x": `<html></html>`,
	}}

	passive := &funcStrategy{name: "passive", run: func(ctx context.Context, env *Env) error {
		env.record(ctx, "https://ct-only.rw", model.MethodCertificateTransparency, ctLogTitle)
		return nil
	}}
	seed := NewSeed([]string{"gov.rw"})
	search := &funcStrategy{name: "search:fake", run: func(_ context.Context, env *Env) error {
		env.Frontier.Push(model.FrontierItem{URL: "https://search-hit.co.rw/", Source: model.MethodSearchEngine})
		return nil
	}}
	broken := &funcStrategy{name: "broken", run: func(context.Context, *Env) error {
		return errors.New("upstream down")
	}}

	var sawPhase1 atomic.Bool
	phase2 := &funcStrategy{name: "phase2", run: func(_ context.Context, env *Env) error {
		sawPhase1.Store(env.Catalog.Contains("ct-only.rw"))
		return nil
	}}

	history := &fakeHistory{}
	closer := &countingCloser{}
	frontier := crawler.NewFrontier(target, 3)
	o := New(frontier, pages, cat, target,
		WithPhase(passive, seed, search, broken),
		WithPhase(phase2),
		WithCrawlerOptions(crawler.WithConcurrency(2), crawler.WithMaxPages(10)),
		WithCheckpointEvery(1),
		WithRunID("run-1"),
		WithSearchEngines([]string{"fake"}),
		WithHistory(history),
		WithArchiver(store),
		WithCloser(closer),
		WithClock(&fakeClock{}),
	)

	if got := o.StrategyNames(); !slices.Equal(got, []string{"passive", "seed", "search:fake", "broken", "phase2"}) {
		t.Errorf("StrategyNames() = %v", got)
	}

	summary, err := o.Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !sawPhase1.Load() {
		t.Error("phase 2 should see phase 1 discoveries")
	}
	if !slices.Equal(summary.Failed, []string{"broken"}) {
		t.Errorf("Failed = %v", summary.Failed)
	}
	if summary.Stats.Running || summary.Stats.PagesCrawled != 3 {
		t.Errorf("Stats = %+v, want 3 pages and not running", summary.Stats)
	}
	if closer.closed.Load() != 1 {
		t.Errorf("closer called %d times, want 1", closer.closed.Load())
	}

	for domain, method := range map[string]model.DiscoveryMethod{
		"ct-only.rw":       model.MethodCertificateTransparency,
		"gov.rw":           model.MethodSeed,
		"minict.gov.rw":    model.MethodLink,
		"search-hit.co.rw": model.MethodSearchEngine,
	} {
		rec, ok := cat.Get(domain)
		if !ok || rec.DiscoveryMethod != method {
			t.Errorf("%s recorded as %+v, want method %s", domain, rec, method)
		}
	}

	doc, err := catalog.ReadDocument(filepath.Join(dir, "rw_domains.json"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Metadata.RunID != "run-1" || doc.Metadata.DomainsFound != 4 || !slices.Equal(doc.Metadata.SearchEnginesUsed, []string{"fake"}) {
		t.Errorf("final metadata = %+v", doc.Metadata)
	}
	if filepath.Base(summary.ArchivePath) != "rw_domains_20240501_130000.json" {
		t.Errorf("ArchivePath = %s", summary.ArchivePath)
	}

	if history.id != "run-1" || history.outcome != OutcomeCompleted || history.pages != 3 || history.added != 4 {
		t.Errorf("history = %+v", history)
	}
}

func TestOrchestratorCanceled(t *testing.T) {
	t.Parallel()

	target := model.NewTarget(".rw")
	cat := catalog.New(catalog.WithStore(catalog.NewStore(t.TempDir(), "rw")))
	ctx, cancel := context.WithCancel(t.Context())

	blocking := &funcStrategy{name: "blocking", run: func(ctx context.Context, env *Env) error {
		env.record(ctx, "https://early.rw", model.MethodCertificateTransparency, ctLogTitle)
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}}
	var ranLater atomic.Bool
	later := &funcStrategy{name: "later", run: func(context.Context, *Env) error {
		ranLater.Store(true)
		return nil
	}}

	history := &fakeHistory{}
	closer := &countingCloser{}
	o := New(crawler.NewFrontier(target, 1), &pageFetcher{}, cat, target,
		WithPhase(blocking),
		WithPhase(later),
		WithRunID("run-2"),
		WithHistory(history),
		WithCloser(closer),
	)

	summary, err := o.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if ranLater.Load() {
		t.Error("later phase should not start after cancellation")
	}
	if len(summary.Failed) != 0 {
		t.Errorf("cancellation is not a strategy failure, got %v", summary.Failed)
	}
	if history.outcome != OutcomeCanceled {
		t.Errorf("outcome = %s, want canceled", history.outcome)
	}
	if closer.closed.Load() != 1 {
		t.Error("resources must be released on cancellation")
	}
	if cat.Dirty() {
		t.Error("final checkpoint should succeed after cancellation")
	}
}

func TestOrchestratorStatsBeforeRun(t *testing.T) {
	t.Parallel()

	target := model.NewTarget(".rw")
	o := New(crawler.NewFrontier(target, 1), &pageFetcher{}, catalog.New(), target)
	stats := o.Stats()
	if stats.Running || stats.PagesCrawled != 0 || stats.Elapsed != 0 || !stats.StartTime.IsZero() {
		t.Errorf("Stats() before Run = %+v", stats)
	}
}
