package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	tlog "github.com/nao1215/tldcrawl/internal/log"
)

// RenderOptions configures the headless browser.
type RenderOptions struct {
	// Timeout bounds one Render call.
	Timeout time.Duration
	// UserAgents is the pool the browser user agent is drawn from at start.
	UserAgents []string
	// Proxy is passed to Chrome as --proxy-server. Chrome ignores
	// credentials embedded in the URL.
	Proxy string
	// MaxBodySize truncates the rendered HTML.
	MaxBodySize int64
	// ScrollPause is the wait after each scroll step.
	ScrollPause time.Duration
	// ConcurrentTabs bounds parallel one-shot renders.
	ConcurrentTabs int
	// DisableHeadless shows the browser window; for debugging only.
	DisableHeadless bool
}

// Renderer loads pages in a headless Chrome driven by chromedp.
//
// Design decision: One browser process is started lazily on first use and
// lives until Close. One-shot renders open a fresh tab each. Search-engine
// scraping uses named sessions so consecutive result pages share a tab and
// its cookies, the way a person paging through results would.
type Renderer struct {
	opts   RenderOptions
	sem    chan struct{}
	logger *slog.Logger
	rand   *Rand

	mu            sync.Mutex
	closed        bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context //nolint:containedctx // browser lifetime is owned by the Renderer
	browserCancel context.CancelFunc
	sessions      map[string]*Session
}

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithRenderLogger sets the logger.
func WithRenderLogger(logger *slog.Logger) RenderOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithRenderRand replaces the random source used to pick the user agent.
func WithRenderRand(rnd *Rand) RenderOption {
	return func(r *Renderer) {
		r.rand = rnd
	}
}

// NewRenderer creates a Renderer. No browser is started until the first
// render.
func NewRenderer(opts RenderOptions, options ...RenderOption) *Renderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.ScrollPause <= 0 {
		opts.ScrollPause = 500 * time.Millisecond
	}
	if opts.ConcurrentTabs <= 0 {
		opts.ConcurrentTabs = 2
	}
	r := &Renderer{
		opts:     opts,
		sem:      make(chan struct{}, opts.ConcurrentTabs),
		logger:   tlog.NewDiscardLogger(),
		sessions: make(map[string]*Session),
	}
	for _, o := range options {
		o(r)
	}
	if r.rand == nil {
		r.rand = newTimeSeededRand()
	}
	return r
}

// allocatorOptions returns the Chrome flags for the browser process.
func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", !r.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	}
	if ua := r.rand.Pick(r.opts.UserAgents); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if r.opts.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(r.opts.Proxy))
	}
	return opts
}

// browser returns the shared browser context, starting Chrome if needed.
func (r *Renderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.browserCtx != nil {
		return r.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), r.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	r.allocCancel = allocCancel
	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	r.logger.Debug("headless browser started", "proxy", r.opts.Proxy)
	return browserCtx, nil
}

// Render loads rawURL in a new tab, scrolls to trigger lazy content, and
// returns the resulting DOM.
func (r *Renderer) Render(ctx context.Context, rawURL string) (*Result, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	browserCtx, err := r.browser()
	if err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	return r.run(ctx, tabCtx, rawURL)
}

// run navigates tabCtx to rawURL. The call is bounded by both ctx and the
// configured timeout.
func (r *Renderer) run(ctx, tabCtx context.Context, rawURL string) (*Result, error) {
	runCtx, cancel := context.WithTimeout(tabCtx, r.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	var html, finalURL string
	actions := []chromedp.Action{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	actions = append(actions, scrollActions(r.opts.ScrollPause)...)
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}

	if int64(len(html)) > r.opts.MaxBodySize {
		html = html[:r.opts.MaxBodySize]
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	r.logger.Debug("page rendered",
		"url", rawURL, "final_url", finalURL,
		"html_bytes", len(html), "latency_ms", time.Since(start).Milliseconds())

	return &Result{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
		Rendered:    true,
	}, nil
}

// scrollActions scrolls to a third, half, and the bottom of the page,
// pausing after each step so lazy loaders can fire.
func scrollActions(pause time.Duration) []chromedp.Action {
	steps := []string{
		`window.scrollTo(0, document.body.scrollHeight / 3)`,
		`window.scrollTo(0, document.body.scrollHeight / 2)`,
		`window.scrollTo(0, document.body.scrollHeight)`,
	}
	actions := make([]chromedp.Action, 0, len(steps)*2)
	for _, js := range steps {
		actions = append(actions, chromedp.Evaluate(js, nil), chromedp.Sleep(pause))
	}
	return actions
}

// Session is a long-lived browser tab. Calls on one Session are serialized.
type Session struct {
	name     string
	renderer *Renderer
	mu       sync.Mutex
	ctx      context.Context //nolint:containedctx // tab lifetime is owned by the Session
	cancel   context.CancelFunc
}

// Session returns the named tab, creating it on first use.
func (r *Renderer) Session(name string) (*Session, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[name]; ok {
		return s, nil
	}
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	s := &Session{name: name, renderer: r, ctx: tabCtx, cancel: cancel}
	r.sessions[name] = s
	return s, nil
}

// Fetch renders rawURL in the session tab. It satisfies Fetcher.
func (s *Session) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.run(ctx, s.ctx, rawURL)
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Close releases every tab and stops the browser. It is safe to call more
// than once and on a Renderer that never started.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for name, s := range r.sessions {
		s.cancel()
		delete(r.sessions, name)
	}
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.browserCtx = nil
	return nil
}
