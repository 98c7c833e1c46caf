package discovery

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/tldcrawl/internal/catalog"
	"github.com/nao1215/tldcrawl/internal/fetcher"
	tlog "github.com/nao1215/tldcrawl/internal/log"
	"github.com/nao1215/tldcrawl/internal/model"
)

// fakeClock records sleeps instead of waiting.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sleeps)
}

// memQueue collects pushed frontier items.
type memQueue struct {
	mu    sync.Mutex
	items []model.FrontierItem
}

func (q *memQueue) Push(items ...model.FrontierItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

func (q *memQueue) urls() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.items))
	for _, it := range q.items {
		out = append(out, it.URL)
	}
	return out
}

// pageFetcher serves canned pages keyed by URL.
type pageFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *pageFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &fetcher.StatusError{Code: 503}
	}
	return &fetcher.Result{URL: rawURL, FinalURL: rawURL, StatusCode: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

func (f *pageFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// newTestEnv returns an Env over an in-memory catalog and queue.
func newTestEnv(t *testing.T) (*Env, *catalog.Catalog, *memQueue, *fakeClock) {
	t.Helper()

	cat := catalog.New()
	queue := &memQueue{}
	clock := &fakeClock{}
	env := &Env{
		Target:   model.NewTarget(".rw"),
		Frontier: queue,
		Catalog:  cat,
		Clock:    clock,
		Rand:     fetcher.NewRand(7),
		Logger:   tlog.NewDiscardLogger(),
	}
	return env, cat, queue, clock
}
