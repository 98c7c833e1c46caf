package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// maxRedirects bounds redirect chains followed by every client.
const maxRedirects = 10

// HeaderFunc returns the cookie and extra headers to add to a request for host.
type HeaderFunc func(host string) (cookie string, headers map[string]string)

// Endpoint is one way out to the network: a proxy or the direct connection.
type Endpoint struct {
	// Proxy is nil for the direct endpoint.
	Proxy *url.URL

	// Client sends requests through this endpoint.
	Client *http.Client
}

// Name returns the proxy URL, or "direct".
func (e *Endpoint) Name() string {
	if e.Proxy == nil {
		return "direct"
	}
	return e.Proxy.String()
}

// Pool holds the direct endpoint and one endpoint per proxy.
type Pool struct {
	direct    *Endpoint
	proxies   []*Endpoint
	jar       http.CookieJar
	timeout   time.Duration
	headers   HeaderFunc
	transport func() *http.Transport
}

// Option configures a Pool.
type Option func(*Pool)

// WithTimeout sets the per-request timeout of every client.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.timeout = d
	}
}

// WithCookieJar replaces the shared cookie jar.
func WithCookieJar(jar http.CookieJar) Option {
	return func(p *Pool) {
		p.jar = jar
	}
}

// WithHeaderFunc injects per-host cookies and headers into every request.
func WithHeaderFunc(fn HeaderFunc) Option {
	return func(p *Pool) {
		p.headers = fn
	}
}

// WithBaseTransport replaces the factory of the underlying *http.Transport.
// Tests use it to trust an httptest TLS server.
func WithBaseTransport(fn func() *http.Transport) Option {
	return func(p *Pool) {
		p.transport = fn
	}
}

// NewCookieJar returns a cookie jar scoped by the public suffix list.
func NewCookieJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails
	return jar
}

// NewPool builds a Pool for the given proxy URLs. An empty list yields a
// pool with only the direct endpoint.
func NewPool(proxies []string, opts ...Option) (*Pool, error) {
	p := &Pool{
		timeout:   15 * time.Second,
		transport: defaultTransport,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.jar == nil {
		p.jar = NewCookieJar()
	}

	direct := p.transport()
	p.direct = &Endpoint{Client: p.newClient(direct)}

	for _, raw := range proxies {
		ep, err := p.newProxyEndpoint(raw)
		if err != nil {
			return nil, err
		}
		p.proxies = append(p.proxies, ep)
	}
	return p, nil
}

// defaultTransport mirrors http.DefaultTransport with bounded idle pools.
// Compression is handled by the fetcher so it can decode brotli as well.
func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 nil,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}
}

// ParseProxy validates a proxy entry and returns its URL.
func ParseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyURL, raw)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return u, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, u.Scheme)
	}
}

func (p *Pool) newProxyEndpoint(raw string) (*Endpoint, error) {
	u, err := ParseProxy(raw)
	if err != nil {
		return nil, err
	}

	tr := p.transport()
	switch u.Scheme {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	default:
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		tr.DialContext = dialContextFor(dialer)
	}
	return &Endpoint{Proxy: u, Client: p.newClient(tr)}, nil
}

// dialContextFor adapts a proxy.Dialer to DialContext, honoring cancellation
// when the dialer does not support contexts itself.
func dialContextFor(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case r := <-resultCh:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) newClient(tr *http.Transport) *http.Client {
	var rt http.RoundTripper = tr
	if p.headers != nil {
		rt = &headerInjectingTransport{base: tr, headers: p.headers}
	}
	return &http.Client{
		Transport: rt,
		Timeout:   p.timeout,
		Jar:       p.jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Direct returns the endpoint without a proxy.
func (p *Pool) Direct() *Endpoint {
	return p.direct
}

// Len returns the number of proxy endpoints.
func (p *Pool) Len() int {
	return len(p.proxies)
}

// Endpoints returns the proxy endpoints.
func (p *Pool) Endpoints() []*Endpoint {
	return p.proxies
}

// Jar returns the shared cookie jar.
func (p *Pool) Jar() http.CookieJar {
	return p.jar
}

// Pick returns a random proxy endpoint, or the direct endpoint when the pool
// has no proxies. intn must behave like rand.IntN.
func (p *Pool) Pick(intn func(int) int) *Endpoint {
	if len(p.proxies) == 0 {
		return p.direct
	}
	return p.proxies[intn(len(p.proxies))]
}

// Retain keeps only the proxy endpoints for which keep returns true.
func (p *Pool) Retain(keep func(*Endpoint) bool) {
	kept := p.proxies[:0]
	for _, ep := range p.proxies {
		if keep(ep) {
			kept = append(kept, ep)
		}
	}
	p.proxies = kept
}

// headerInjectingTransport adds per-host cookies and headers from the
// config file to every outgoing request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers HeaderFunc
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cookie, headers := t.headers(req.URL.Hostname())
	if cookie == "" && len(headers) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+cookie)
		} else {
			clone.Header.Set("Cookie", cookie)
		}
	}
	for key, value := range headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
