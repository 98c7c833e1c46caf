package discovery

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
)

const bruteForceTitle = "Found via subdomain enumeration"

// CommonLabels is the subdomain dictionary tried against every known domain.
var CommonLabels = []string{
	"www", "mail", "webmail", "api", "dev", "stage", "test", "demo",
	"admin", "shop", "blog", "portal", "app", "mobile", "m",
	"support", "help", "forum", "community", "news", "media",
	"cloud", "cdn", "static", "assets", "images", "files",
	"login", "auth", "sso", "accounts", "alumni", "library",
	"research", "jobs", "careers", "hr", "moodle", "learn",
	"lms", "sis", "erp", "crm", "smtp", "imap", "pop",
	"services", "vpn", "remote", "intranet", "extranet",
}

// Prober checks whether a host serves HTTP.
type Prober interface {
	// Probe returns the URL that answered and true, or "" and false.
	Probe(ctx context.Context, host string) (string, bool)
}

// HTTPProber sends HEAD requests, HTTPS first and HTTP second. Any status
// below 400 after redirects means the host exists.
type HTTPProber struct {
	client     Doer
	timeout    time.Duration
	userAgents []string
	rand       *fetcher.Rand
}

// NewHTTPProber creates a prober. Each HEAD request is bounded by timeout.
func NewHTTPProber(client Doer, timeout time.Duration, userAgents []string, rnd *fetcher.Rand) *HTTPProber {
	if rnd == nil {
		rnd = fetcher.NewRand(uint64(time.Now().UnixNano())) //nolint:gosec // timestamps are non-negative
	}
	return &HTTPProber{client: client, timeout: timeout, userAgents: userAgents, rand: rnd}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, host string) (string, bool) {
	for _, scheme := range []string{"https", "http"} {
		u := scheme + "://" + host
		if p.head(ctx, u) {
			return u, true
		}
		if ctx.Err() != nil {
			return "", false
		}
	}
	return "", false
}

func (p *HTTPProber) head(ctx context.Context, rawURL string) bool {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return false
	}
	if ua := p.rand.Pick(p.userAgents); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}

// BruteForce tries common subdomain labels against every domain found so
// far and every seed.
//
// Design decision: It runs in the second phase so the catalog already holds
// the certificate transparency, seed and search discoveries. Probes run on
// an errgroup bounded by the crawl concurrency and never return errors, so
// one unreachable host does not cancel the others.
type BruteForce struct {
	prober      Prober
	seeds       []string
	labels      []string
	concurrency int
}

// BruteForceOption configures a BruteForce.
type BruteForceOption func(*BruteForce)

// WithLabels replaces the subdomain dictionary.
func WithLabels(labels []string) BruteForceOption {
	return func(b *BruteForce) {
		b.labels = labels
	}
}

// WithProbeConcurrency sets the number of parallel probes.
func WithProbeConcurrency(n int) BruteForceOption {
	return func(b *BruteForce) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBruteForce creates the strategy.
func NewBruteForce(prober Prober, seeds []string, opts ...BruteForceOption) *BruteForce {
	b := &BruteForce{
		prober:      prober,
		seeds:       seeds,
		labels:      CommonLabels,
		concurrency: config.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "bruteforce".
func (b *BruteForce) Name() string {
	return config.StrategyBruteForce
}

// Run probes every candidate not yet in the catalog.
func (b *BruteForce) Run(ctx context.Context, env *Env) error {
	candidates := b.candidates(env)
	env.Logger.Info("probing subdomain candidates", "count", len(candidates))

	var found atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, host := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			u, ok := b.prober.Probe(gctx, host)
			if !ok {
				return nil
			}
			if env.record(gctx, u, model.MethodSubdomainEnumeration, bruteForceTitle) {
				found.Add(1)
				env.Logger.Debug("subdomain found", "host", host)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probe goroutines never return errors

	env.Logger.Info("subdomain enumeration finished", "found", found.Load())
	return ctx.Err()
}

// candidates builds label.base for every catalog domain and seed, skipping
// duplicates and domains the catalog already holds.
func (b *BruteForce) candidates(env *Env) []string {
	bases := env.Catalog.Domains()
	for _, seed := range b.seeds {
		bases = append(bases, model.CanonicalDomain(model.ExtractDomain(seedURL(seed))))
	}

	seen := make(map[string]struct{})
	var out []string
	for _, base := range bases {
		if base == "" || !env.Target.MatchesHost(base) {
			continue
		}
		for _, label := range b.labels {
			host := label + "." + base
			key := model.CanonicalDomain(host)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if env.Catalog.Contains(key) {
				continue
			}
			out = append(out, host)
		}
	}
	return out
}
