package discovery

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync"
	"testing"

	"github.com/miekg/dns"

	"github.com/nao1215/tldcrawl/internal/model"
)

type fakeResolver struct {
	servers []*net.NS
	err     error
	asked   string
}

func (r *fakeResolver) LookupNS(_ context.Context, name string) ([]*net.NS, error) {
	r.asked = name
	return r.servers, r.err
}

// fakeTransfer serves canned envelopes per server address.
type fakeTransfer struct {
	mu        sync.Mutex
	envelopes map[string][]*dns.Envelope
	addrs     []string
	zones     []string
}

func (f *fakeTransfer) In(q *dns.Msg, addr string) (chan *dns.Envelope, error) {
	f.mu.Lock()
	f.addrs = append(f.addrs, addr)
	f.zones = append(f.zones, q.Question[0].Name)
	envs, ok := f.envelopes[addr]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("connection refused")
	}
	ch := make(chan *dns.Envelope, len(envs))
	for _, e := range envs {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", s, err)
	}
	return rr
}

func TestZoneTransferRun(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{servers: []*net.NS{{Host: "ns1.ricta.org.rw."}, {Host: "ns2.ricta.org.rw."}}}
	transfer := &fakeTransfer{envelopes: map[string][]*dns.Envelope{
		"ns2.ricta.org.rw:53": {
			{RR: []dns.RR{
				mustRR(t, "rw. 3600 IN NS ns1.ricta.org.rw."),
				mustRR(t, "gov.rw. 3600 IN A 196.12.1.1"),
				mustRR(t, "www.risa.rw. 3600 IN CNAME risa.rw."),
				mustRR(t, "bnr.rw. 3600 IN AAAA 2001:db8::1"),
				mustRR(t, "mail.rw. 3600 IN MX 10 mx.mail.rw."),
				mustRR(t, "*.wild.rw. 3600 IN A 196.12.1.2"),
				mustRR(t, "ac.rw. 3600 IN NS ns.ac.rw."),
			}},
			{Error: errors.New("connection reset")},
		},
	}}

	env, cat, _, _ := newTestEnv(t)
	z := NewZoneTransfer(0, WithResolver(resolver), WithTransferer(func() Transferer { return transfer }))
	if z.Name() != "zone_transfer" {
		t.Errorf("Name() = %s", z.Name())
	}
	if err := z.Run(t.Context(), env); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if resolver.asked != "rw." {
		t.Errorf("NS lookup for %q, want rw.", resolver.asked)
	}
	if !slices.Equal(transfer.addrs, []string{"ns1.ricta.org.rw:53", "ns2.ricta.org.rw:53"}) {
		t.Errorf("transfer attempts %v", transfer.addrs)
	}
	if !slices.Equal(transfer.zones, []string{"rw.", "rw."}) {
		t.Errorf("transfer zones %v", transfer.zones)
	}

	want := []string{"gov.rw", "risa.rw", "bnr.rw", "ac.rw"}
	if !slices.Equal(cat.Domains(), want) {
		t.Errorf("Domains() = %v, want %v", cat.Domains(), want)
	}
	rec, _ := cat.Get("gov.rw")
	if rec.URL != "http://gov.rw" || rec.DiscoveryMethod != model.MethodZoneTransfer || rec.Title != zoneTransferTitle {
		t.Errorf("record = %+v", rec)
	}
}

func TestZoneTransferNoServers(t *testing.T) {
	t.Parallel()

	env, _, _, _ := newTestEnv(t)

	z := NewZoneTransfer(0, WithResolver(&fakeResolver{}))
	if err := z.Run(t.Context(), env); !errors.Is(err, ErrNoNameServers) {
		t.Errorf("Run() error = %v, want ErrNoNameServers", err)
	}

	lookupErr := errors.New("SERVFAIL")
	z = NewZoneTransfer(0, WithResolver(&fakeResolver{err: lookupErr}))
	if err := z.Run(t.Context(), env); !errors.Is(err, lookupErr) {
		t.Errorf("Run() error = %v, want wrapped lookup error", err)
	}
}
