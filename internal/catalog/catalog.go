package catalog

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	tlog "github.com/nao1215/tldcrawl/internal/log"
	"github.com/nao1215/tldcrawl/internal/model"
)

// Sink receives every newly added record, after the JSON flush.
type Sink interface {
	RecordDomain(ctx context.Context, rec model.DomainRecord) error
}

// Catalog is the insertion-ordered, first-write-wins set of discovered
// domains shared by every strategy and worker.
//
// Design decision: The lock covers only the in-memory map. Flushing to the
// store and the sinks happens after the lock is released, so a slow disk
// never stalls the workers. A failed flush marks the catalog dirty and the
// next Checkpoint rewrites the whole snapshot.
type Catalog struct {
	store  *Store
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	order   []string
	records map[string]model.DomainRecord
	added   int

	dirty atomic.Bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithStore enables incremental persistence.
func WithStore(s *Store) Option {
	return func(c *Catalog) {
		c.store = s
	}
}

// WithSink registers an additional consumer of new records.
func WithSink(s Sink) Option {
	return func(c *Catalog) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New creates an empty Catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		logger:  tlog.NewDiscardLogger(),
		now:     time.Now,
		records: make(map[string]model.DomainRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preload inserts records from a previous run without flushing them or
// counting them as added. It returns the number of records inserted.
func (c *Catalog) Preload(recs []model.DomainRecord) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, rec := range recs {
		key := model.CanonicalDomain(rec.Domain)
		if key == "" {
			continue
		}
		if _, ok := c.records[key]; ok {
			continue
		}
		rec.Domain = key
		c.records[key] = rec
		c.order = append(c.order, key)
		n++
	}
	return n
}

// Add inserts rec unless its canonical domain is already present.
// It reports whether the record was new.
func (c *Catalog) Add(ctx context.Context, rec model.DomainRecord) bool {
	key := model.CanonicalDomain(rec.Domain)
	if key == "" {
		return false
	}
	rec.Domain = key
	if rec.DiscoveredAt.IsZero() {
		rec.DiscoveredAt = c.now().UTC()
	}

	c.mu.Lock()
	if _, ok := c.records[key]; ok {
		c.mu.Unlock()
		return false
	}
	c.records[key] = rec
	c.order = append(c.order, key)
	c.added++
	c.mu.Unlock()

	c.flush(ctx, rec)
	return true
}

// flush persists one new record to the store and every sink.
func (c *Catalog) flush(ctx context.Context, rec model.DomainRecord) {
	if c.store != nil {
		if err := c.store.Merge(rec); err != nil {
			c.dirty.Store(true)
			c.logger.Error("failed to persist domain, will retry at next checkpoint",
				"domain", rec.Domain, "error", err)
		}
	}
	for _, sink := range c.sinks {
		if err := sink.RecordDomain(ctx, rec); err != nil {
			c.logger.Error("failed to record domain in sink", "domain", rec.Domain, "error", err)
		}
	}
}

// Contains reports whether domain (in any case, with or without "www.")
// is present.
func (c *Catalog) Contains(domain string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.records[model.CanonicalDomain(domain)]
	return ok
}

// Get returns the record for domain.
func (c *Catalog) Get(domain string) (model.DomainRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[model.CanonicalDomain(domain)]
	return rec, ok
}

// Len returns the number of records, preloaded ones included.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Added returns the number of records added by Add during this run.
func (c *Catalog) Added() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.added
}

// Domains returns the domains in insertion order.
func (c *Catalog) Domains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Records returns a copy of the records in insertion order.
func (c *Catalog) Records() []model.DomainRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.DomainRecord, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.records[key])
	}
	return out
}

// Document builds a catalog document from the current records.
func (c *Catalog) Document(meta model.DocumentMetadata) *model.CatalogDocument {
	doc := model.NewCatalogDocument()
	doc.Metadata = meta
	if doc.Metadata.SearchEnginesUsed == nil {
		doc.Metadata.SearchEnginesUsed = []string{}
	}
	doc.Domains = c.Records()
	doc.Metadata.DomainsFound = len(doc.Domains)
	return doc
}

// Dirty reports whether an incremental flush failed since the last
// successful checkpoint.
func (c *Catalog) Dirty() bool {
	return c.dirty.Load()
}

// Checkpoint writes a full snapshot with meta. A successful write clears the
// dirty flag.
func (c *Catalog) Checkpoint(meta model.DocumentMetadata) error {
	if c.store == nil {
		return ErrNoStore
	}
	if err := c.store.WriteSnapshot(c.Document(meta)); err != nil {
		c.dirty.Store(true)
		return err
	}
	c.dirty.Store(false)
	return nil
}
