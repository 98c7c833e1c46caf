package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	tlog "github.com/nao1215/tldcrawl/internal/log"
)

// maxRobotsSize caps the robots.txt body read per domain.
const maxRobotsSize = 512 * 1024

// Decision is the cached robots verdict for one domain.
type Decision struct {
	Allowed   bool
	FetchedAt time.Time
}

// Gate decides whether a URL may be fetched according to robots.txt.
//
// Design decision: Only a "User-agent: *" group that disallows "/" blocks a
// domain. Path-level rules are ignored. The crawler only needs the landing
// page of each domain to record it, so the coarse rule keeps the cache to one
// boolean per domain while still honoring operators who opt out entirely.
//
// Every failure (network error, non-200 status, unparseable body) is
// treated as allowed and cached for the rest of the run.
type Gate struct {
	client    *http.Client
	respect   bool
	timeout   time.Duration
	userAgent string
	scheme    string
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]Decision
	group singleflight.Group
}

// Option configures a Gate.
type Option func(*Gate)

// WithRespect toggles robots.txt handling. When false IsAllowed always
// returns true without any request.
func WithRespect(respect bool) Option {
	return func(g *Gate) {
		g.respect = respect
	}
}

// WithTimeout sets the robots.txt download timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.timeout = d
	}
}

// WithUserAgent sets the User-Agent header of robots.txt requests.
func WithUserAgent(ua string) Option {
	return func(g *Gate) {
		g.userAgent = ua
	}
}

// WithScheme overrides the scheme used to fetch robots.txt. It is "https"
// by default; tests use "http" against an httptest server.
func WithScheme(scheme string) Option {
	return func(g *Gate) {
		g.scheme = scheme
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate that fetches robots.txt with client.
func NewGate(client *http.Client, opts ...Option) *Gate {
	g := &Gate{
		client:  client,
		respect: true,
		timeout: 5 * time.Second,
		scheme:  "https",
		logger:  tlog.NewDiscardLogger(),
		now:     time.Now,
		cache:   make(map[string]Decision),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	return g
}

// IsAllowed reports whether rawURL may be fetched.
// Unparseable URLs are reported as not allowed; the frontier filters them
// earlier, so this only guards direct callers.
func (g *Gate) IsAllowed(ctx context.Context, rawURL string) bool {
	if !g.respect {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	return g.decide(ctx, strings.ToLower(u.Host)).Allowed
}

// Lookup returns the cached decision for domain, if any.
func (g *Gate) Lookup(domain string) (Decision, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.cache[strings.ToLower(domain)]
	return d, ok
}

// decide returns the cached decision for domain, fetching robots.txt once.
// Concurrent first queries for the same domain share one request.
func (g *Gate) decide(ctx context.Context, domain string) Decision {
	if d, ok := g.Lookup(domain); ok {
		return d
	}

	v, _, _ := g.group.Do(domain, func() (any, error) {
		if d, ok := g.Lookup(domain); ok {
			return d, nil
		}
		d := Decision{Allowed: g.fetchAllowed(ctx, domain), FetchedAt: g.now()}
		g.mu.Lock()
		g.cache[domain] = d
		g.mu.Unlock()
		return d, nil
	})
	return v.(Decision) //nolint:forcetypeassert // the closure only returns Decision
}

// fetchAllowed downloads and evaluates robots.txt for domain.
func (g *Gate) fetchAllowed(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	robotsURL := g.scheme + "://" + domain + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt unavailable, allowing", "domain", domain, "error", err)
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Debug("robots.txt not found, allowing", "domain", domain, "status", resp.StatusCode)
		return true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return true
	}
	allowed := Evaluate(body)
	if !allowed {
		g.logger.Debug("robots.txt disallows the whole site", "domain", domain)
	}
	return allowed
}

// Evaluate reports whether a robots.txt body allows crawling the site.
// It returns false only when the "*" group disallows "/".
func Evaluate(body []byte) bool {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return true
	}
	group := data.FindGroup("*")
	if group == nil {
		return true
	}
	return group.Test("/")
}
