package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	tlog "github.com/nao1215/tldcrawl/internal/log"
	"github.com/nao1215/tldcrawl/internal/model"
	"github.com/nao1215/tldcrawl/internal/transport"
)

// Default tuning values. They mirror the config package defaults so a
// zero-option HTTPFetcher behaves like the CLI.
const (
	DefaultRetryAttempts  = 3
	DefaultRetryBackoff   = 2 * time.Second
	DefaultMinDelay       = 1 * time.Second
	DefaultMaxDelay       = 7 * time.Second
	DefaultMaxBodySize    = 5 * 1024 * 1024
	DefaultRateLimitSleep = 30 * time.Second
	DefaultRateLimitMax   = 60 * time.Second
)

// defaultReferer makes requests look like they follow a search result.
const defaultReferer = "https://www.google.com/"

// Result is a fetched page.
type Result struct {
	// URL is the requested URL.
	URL string
	// FinalURL is the URL after redirects.
	FinalURL    string
	StatusCode  int
	ContentType string
	// Body is the decompressed, UTF-8 converted body, truncated to the
	// configured maximum size.
	Body []byte
	// Rendered is true when the page came from the headless browser.
	Rendered bool
}

// IsHTML reports whether the response declared an HTML content type.
// An empty content type is treated as HTML because many small sites omit it.
func (r *Result) IsHTML() bool {
	if r.ContentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(strings.ToLower(r.ContentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Fetcher retrieves one URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// HTTPFetcher fetches pages over plain HTTP through a transport.Pool.
//
// Design decision: Politeness is applied once per Fetch call, before the
// first attempt, as a uniformly random pause between the configured minimum
// and maximum delay. Retry sleeps come on top of it:
//  1. HTTP 429 waits a uniformly random 30 to 60 seconds.
//  2. Transport errors, 408, 425 and 5xx wait backoff*attempt with +/-50% jitter.
//  3. Any other status is permanent and returned immediately.
//
// Every attempt picks a fresh user agent and a fresh pool endpoint, so a
// blocked proxy does not doom the remaining attempts.
type HTTPFetcher struct {
	pool         *transport.Pool
	userAgents   []string
	attempts     int
	backoff      time.Duration
	minDelay     time.Duration
	maxDelay     time.Duration
	rateLimitMin time.Duration
	rateLimitMax time.Duration
	maxBodySize  int64
	limiter      *DomainLimiter
	skip         func(host string) bool
	clock        Clock
	rand         *Rand
	logger       *slog.Logger
	extraHeaders map[string]string
	sendReferer  bool
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgents sets the user-agent pool.
func WithUserAgents(uas []string) Option {
	return func(f *HTTPFetcher) {
		f.userAgents = uas
	}
}

// WithRetry sets the attempt count and the base backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.attempts = attempts
		f.backoff = backoff
	}
}

// WithDelay sets the politeness delay range.
func WithDelay(lo, hi time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.minDelay = lo
		f.maxDelay = hi
	}
}

// WithRateLimitSleep sets the sleep range used after an HTTP 429.
func WithRateLimitSleep(lo, hi time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.rateLimitMin = lo
		f.rateLimitMax = hi
	}
}

// WithMaxBodySize caps the decoded body size.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBodySize = n
	}
}

// WithDomainLimiter sets the per-host rate limiter.
func WithDomainLimiter(l *DomainLimiter) Option {
	return func(f *HTTPFetcher) {
		f.limiter = l
	}
}

// WithSkip sets a predicate for hosts that must never be fetched.
func WithSkip(skip func(host string) bool) Option {
	return func(f *HTTPFetcher) {
		f.skip = skip
	}
}

// WithClock replaces the clock used for sleeps.
func WithClock(c Clock) Option {
	return func(f *HTTPFetcher) {
		f.clock = c
	}
}

// WithRand replaces the random source.
func WithRand(r *Rand) Option {
	return func(f *HTTPFetcher) {
		f.rand = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// WithHeaders adds fixed headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		f.extraHeaders = headers
	}
}

// WithReferer toggles the search-engine Referer header.
func WithReferer(send bool) Option {
	return func(f *HTTPFetcher) {
		f.sendReferer = send
	}
}

// NewHTTPFetcher creates an HTTPFetcher using pool for transport.
func NewHTTPFetcher(pool *transport.Pool, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		pool:         pool,
		attempts:     DefaultRetryAttempts,
		backoff:      DefaultRetryBackoff,
		minDelay:     DefaultMinDelay,
		maxDelay:     DefaultMaxDelay,
		rateLimitMin: DefaultRateLimitSleep,
		rateLimitMax: DefaultRateLimitMax,
		maxBodySize:  DefaultMaxBodySize,
		clock:        SystemClock{},
		logger:       tlog.NewDiscardLogger(),
		sendReferer:  true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rand == nil {
		f.rand = newTimeSeededRand()
	}
	if f.attempts < 1 {
		f.attempts = 1
	}
	return f
}

// Fetch retrieves rawURL, retrying transient failures. On exhaustion the
// returned error wraps ErrRetriesExhausted and the last failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	host := model.ExtractDomain(rawURL)
	if host == "" {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidURL, rawURL)
	}
	if f.skip != nil && f.skip(host) {
		return nil, fmt.Errorf("%w: %s", ErrSkipped, host)
	}

	if err := f.clock.Sleep(ctx, f.rand.Between(f.minDelay, f.maxDelay)); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := f.limiter.Wait(ctx, host); err != nil {
			return nil, err
		}

		res, err := f.do(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		wait := f.rand.Jitter(f.backoff * time.Duration(attempt))
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			if !statusErr.Transient() {
				return nil, err
			}
			if statusErr.Code == http.StatusTooManyRequests {
				wait = f.rand.Between(f.rateLimitMin, f.rateLimitMax)
			}
		}
		if attempt == f.attempts {
			break
		}

		f.logger.Debug("fetch attempt failed, retrying",
			"url", rawURL, "attempt", attempt, "wait", wait, "error", err)
		if err := f.clock.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrRetriesExhausted, rawURL, lastErr)
}

// do performs one attempt.
func (f *HTTPFetcher) do(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidURL, err)
	}
	f.setHeaders(req)

	endpoint := f.pool.Pick(f.rand.IntN)
	resp, err := endpoint.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request via %s: %w", endpoint.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        toUTF8(body, contentType),
	}, nil
}

// setHeaders applies the browser-like header set and a rotated user agent.
func (f *HTTPFetcher) setHeaders(req *http.Request) {
	if ua := f.rand.Pick(f.userAgents); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if f.sendReferer {
		req.Header.Set("Referer", defaultReferer)
	}
	for k, v := range f.extraHeaders {
		req.Header.Set(k, v)
	}
}

// readBody decompresses the body according to Content-Encoding and caps it
// at maxBodySize. Oversized bodies are truncated rather than rejected so the
// links near the top of a huge page still count.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	limit := f.maxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// toUTF8 converts body to UTF-8 using the Content-Type charset, a <meta>
// declaration, or content sniffing, in that order. The body is returned
// unchanged when it is already UTF-8 or the conversion fails.
func toUTF8(body []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || enc == nil {
		return body
	}
	converted, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return body
	}
	return converted
}
