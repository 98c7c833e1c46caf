package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
)

// mapProber answers from a fixed set of live hosts and records every probe.
type mapProber struct {
	mu     sync.Mutex
	live   map[string]string
	probed []string
}

func (p *mapProber) Probe(_ context.Context, host string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, host)
	u, ok := p.live[host]
	return u, ok
}

func TestBruteForceRun(t *testing.T) {
	t.Parallel()

	env, cat, _, _ := newTestEnv(t)
	cat.Add(t.Context(), model.DomainRecord{Domain: "gov.rw", URL: "https://gov.rw"})
	cat.Add(t.Context(), model.DomainRecord{Domain: "mail.risa.rw", URL: "https://mail.risa.rw"})
	cat.Add(t.Context(), model.DomainRecord{Domain: "example.com", URL: "https://example.com"})

	prober := &mapProber{live: map[string]string{
		"mail.gov.rw": "https://mail.gov.rw",
		"api.risa.rw": "http://api.risa.rw",
	}}
	b := NewBruteForce(prober, []string{"risa.rw", "gov.rw"},
		WithLabels([]string{"www", "mail", "api"}),
		WithProbeConcurrency(3),
	)
	if b.Name() != "bruteforce" {
		t.Errorf("Name() = %s", b.Name())
	}
	if err := b.Run(t.Context(), env); err != nil {
		t.Fatal(err)
	}

	probed := slices.Sorted(slices.Values(prober.probed))
	want := []string{
		"api.gov.rw", "api.mail.risa.rw", "api.risa.rw",
		"mail.gov.rw", "mail.mail.risa.rw", "www.risa.rw",
	}
	if !slices.Equal(probed, want) {
		t.Errorf("probed %v, want %v", probed, want)
	}

	rec, ok := cat.Get("api.risa.rw")
	if !ok || rec.URL != "http://api.risa.rw" || rec.DiscoveryMethod != model.MethodSubdomainEnumeration {
		t.Errorf("api.risa.rw record = %+v, %v", rec, ok)
	}
	if !cat.Contains("mail.gov.rw") {
		t.Error("mail.gov.rw should be recorded")
	}
}

func TestHTTPProber(t *testing.T) {
	t.Parallel()

	var methods sync.Map
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods.Store(r.Method, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer live.Close()
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	p := NewHTTPProber(live.Client(), 2*time.Second, []string{"probe-agent"}, fetcher.NewRand(1))

	host := mustHost(t, live.URL)
	got, ok := p.Probe(t.Context(), host)
	if !ok || got != "http://"+host {
		t.Errorf("Probe(live) = %q, %v", got, ok)
	}
	if ua, ok := methods.Load(http.MethodHead); !ok || ua != "probe-agent" {
		t.Errorf("HEAD request not seen with user agent, got %v", ua)
	}

	if _, ok := p.Probe(t.Context(), mustHost(t, missing.URL)); ok {
		t.Error("404 host should not exist")
	}
}

func mustHost(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u.Host
}
