package discovery

import (
	"context"
	"log/slog"

	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
)

// Strategy is one source of candidate domains.
//
// Design decision: A Strategy either records domains directly in the
// catalog (passive sources such as certificate transparency) or pushes URLs
// into the frontier for the worker pool to fetch (seeds, search results).
// Errors are returned to the orchestrator, which logs them and carries on,
// so no single source can abort a run.
type Strategy interface {
	// Name returns the strategy name used in logs and run metadata.
	Name() string

	// Run executes the strategy until it is exhausted or ctx is done.
	Run(ctx context.Context, env *Env) error
}

// Queue accepts URLs for the worker pool.
type Queue interface {
	Push(items ...model.FrontierItem)
}

// Catalog is the shared set of discovered domains.
type Catalog interface {
	Add(ctx context.Context, rec model.DomainRecord) bool
	Contains(domain string) bool
	Domains() []string
}

// Env is the run state handed to every strategy.
type Env struct {
	// Target classifies hosts against the crawled top-level domain.
	Target model.Target

	// Frontier receives URLs to be fetched by the worker pool.
	Frontier Queue

	// Catalog receives domains recorded without a fetch.
	Catalog Catalog

	// Clock provides sleeps that honor cancellation.
	Clock fetcher.Clock

	// Rand drives randomized pauses.
	Rand *fetcher.Rand

	// Logger is scoped to the strategy by the orchestrator.
	Logger *slog.Logger
}

// record adds a domain found without fetching it. The title marks the
// source, as no page metadata exists.
func (e *Env) record(ctx context.Context, rawURL string, method model.DiscoveryMethod, title string) bool {
	if !e.Target.Matches(rawURL) {
		return false
	}
	rec, ok := model.NewDomainRecord(rawURL, method, model.PageMetadata{Title: title})
	if !ok {
		return false
	}
	return e.Catalog.Add(ctx, rec)
}
