package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
)

// Default pause between two result page requests.
const (
	DefaultSearchPauseMin = 3 * time.Second
	DefaultSearchPauseMax = 7 * time.Second
)

// SessionFunc opens a named browser session used as a page source.
type SessionFunc func(name string) (fetcher.Fetcher, error)

// Search scrapes one search engine for pages under the target and queues
// them at depth 0.
//
// Design decision: Every engine goes through the same loop; engine
// differences live in the Engine descriptor. When a session source is
// configured, result pages come from one long-lived browser tab per engine,
// which keeps the engine's cookies across pages. If the browser cannot
// start, the strategy falls back to the HTTP fetcher.
type Search struct {
	engine   Engine
	http     fetcher.Fetcher
	sessions SessionFunc
	queries  []string
	pages    int
	pauseMin time.Duration
	pauseMax time.Duration
}

// SearchOption configures a Search.
type SearchOption func(*Search)

// WithSessions makes the strategy read result pages through a browser.
func WithSessions(fn SessionFunc) SearchOption {
	return func(s *Search) {
		s.sessions = fn
	}
}

// WithQueries replaces the query variants.
func WithQueries(queries []string) SearchOption {
	return func(s *Search) {
		s.queries = queries
	}
}

// WithSearchPages caps the result pages per query.
func WithSearchPages(n int) SearchOption {
	return func(s *Search) {
		if n > 0 {
			s.pages = n
		}
	}
}

// WithSearchPause sets the randomized pause between result pages.
func WithSearchPause(lo, hi time.Duration) SearchOption {
	return func(s *Search) {
		s.pauseMin = lo
		s.pauseMax = hi
	}
}

// NewSearch creates the strategy for the named engine.
func NewSearch(engine string, httpFetcher fetcher.Fetcher, opts ...SearchOption) (*Search, error) {
	desc, ok := Engines[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	s := &Search{
		engine:   desc,
		http:     httpFetcher,
		pages:    3,
		pauseMin: DefaultSearchPauseMin,
		pauseMax: DefaultSearchPauseMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns "search:<engine>".
func (s *Search) Name() string {
	return "search:" + s.engine.Name
}

// Run queries every variant, page by page. A failed page or a page without
// target links ends that query.
func (s *Search) Run(ctx context.Context, env *Env) error {
	source := s.source(env)
	queries := s.queries
	if len(queries) == 0 {
		queries = SearchQueries(env.Target.Suffix())
	}
	pages := min(s.pages, s.engine.MaxPages)

	total := 0
	first := true
	for _, query := range queries {
		for page := range pages {
			if !first {
				if err := env.Clock.Sleep(ctx, env.Rand.Between(s.pauseMin, s.pauseMax)); err != nil {
					return err
				}
			}
			first = false

			pageURL := s.engine.PageURL(query, page)
			res, err := source.Fetch(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				env.Logger.Warn("search page failed", "query", query, "page", page+1, "error", err)
				break
			}

			base := res.FinalURL
			if base == "" {
				base = pageURL
			}
			items := s.targetItems(env, ResultLinks(s.engine, res.Body, base))
			env.Logger.Debug("search page read", "query", query, "page", page+1, "found", len(items))
			if len(items) == 0 {
				break
			}
			env.Frontier.Push(items...)
			total += len(items)
		}
	}
	env.Logger.Info("search finished", "queued", total)
	return nil
}

func (s *Search) source(env *Env) fetcher.Fetcher {
	if s.sessions == nil {
		return s.http
	}
	session, err := s.sessions(s.Name())
	if err != nil {
		if !errors.Is(err, fetcher.ErrRendererClosed) {
			env.Logger.Warn("browser unavailable, using plain HTTP", "error", err)
		}
		return s.http
	}
	return session
}

func (s *Search) targetItems(env *Env, links []string) []model.FrontierItem {
	items := make([]model.FrontierItem, 0, len(links))
	for _, link := range links {
		if !model.IsValidURL(link) || !env.Target.Matches(link) {
			continue
		}
		items = append(items, model.FrontierItem{URL: link, Depth: 0, Source: model.MethodSearchEngine})
	}
	return items
}

// ResultLinks extracts result URLs from a search result page. The engine
// selectors are applied in order; when none of them yields a link, every
// anchor on the page is used. Redirect wrappers are unwrapped and relative
// links resolved against base.
func ResultLinks(engine Engine, body []byte, base string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = &url.URL{}
	}

	var links []string
	seen := make(map[string]struct{})
	collect := func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		link := unwrapRedirect(baseURL, href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	for _, selector := range engine.Selectors {
		doc.Find(selector).Each(collect)
	}
	if len(links) == 0 {
		doc.Find("a[href]").Each(collect)
	}
	return links
}

// redirectParams are query parameters that carry the real destination of
// an engine's click-tracking link, in lookup order.
var redirectParams = []string{"uddg", "q", "url"}

// unwrapRedirect resolves href against base and, when it is a redirect
// link, returns the destination instead.
func unwrapRedirect(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)

	query := abs.Query()
	for _, param := range redirectParams {
		if param == "q" && abs.Path != "/url" {
			continue
		}
		if dest := query.Get(param); strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://") {
			return dest
		}
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
