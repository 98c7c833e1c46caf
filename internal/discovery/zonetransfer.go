package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/model"
)

const zoneTransferTitle = "Found via DNS zone transfer"

// NSResolver looks up the name servers of a zone. *net.Resolver satisfies it.
type NSResolver interface {
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// Transferer performs one inbound zone transfer. *dns.Transfer satisfies it.
type Transferer interface {
	In(q *dns.Msg, addr string) (chan *dns.Envelope, error)
}

// ZoneTransfer attempts an AXFR of the target zone from each of its name
// servers. Registries almost always refuse, so a refusal is logged at debug
// level and the next server is tried.
type ZoneTransfer struct {
	resolver    NSResolver
	newTransfer func() Transferer
	port        string
}

// ZoneTransferOption configures a ZoneTransfer.
type ZoneTransferOption func(*ZoneTransfer)

// WithResolver replaces the NS resolver.
func WithResolver(r NSResolver) ZoneTransferOption {
	return func(z *ZoneTransfer) {
		z.resolver = r
	}
}

// WithTransferer replaces the AXFR client factory.
func WithTransferer(fn func() Transferer) ZoneTransferOption {
	return func(z *ZoneTransfer) {
		z.newTransfer = fn
	}
}

// NewZoneTransfer creates the strategy. Each transfer dials, reads and
// writes with the given timeout.
func NewZoneTransfer(timeout time.Duration, opts ...ZoneTransferOption) *ZoneTransfer {
	z := &ZoneTransfer{
		resolver: net.DefaultResolver,
		newTransfer: func() Transferer {
			return &dns.Transfer{DialTimeout: timeout, ReadTimeout: timeout, WriteTimeout: timeout}
		},
		port: "53",
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Name returns "zone_transfer".
func (z *ZoneTransfer) Name() string {
	return config.StrategyZoneTransfer
}

// Run tries every name server of the zone in turn.
func (z *ZoneTransfer) Run(ctx context.Context, env *Env) error {
	zone := dns.Fqdn(env.Target.Label())
	servers, err := z.resolver.LookupNS(ctx, zone)
	if err != nil {
		return fmt.Errorf("failed to look up name servers of %s: %w", zone, err)
	}
	if len(servers) == 0 {
		return fmt.Errorf("%w: %s", ErrNoNameServers, zone)
	}

	total := 0
	for _, ns := range servers {
		if err := ctx.Err(); err != nil {
			return err
		}
		host := strings.TrimSuffix(ns.Host, ".")
		n, err := z.transfer(ctx, env, zone, net.JoinHostPort(host, z.port))
		if err != nil {
			env.Logger.Debug("zone transfer refused", "server", host, "error", err)
		}
		total += n
	}
	env.Logger.Info("zone transfer finished", "servers", len(servers), "added", total)
	return nil
}

// transfer runs one AXFR and records the owner names of address, delegation
// and alias records. Records received before an error are kept.
func (z *ZoneTransfer) transfer(ctx context.Context, env *Env, zone, addr string) (int, error) {
	msg := new(dns.Msg)
	msg.SetAxfr(zone)

	ch, err := z.newTransfer().In(msg, addr)
	if err != nil {
		return 0, err
	}

	added := 0
	var firstErr error
	for envelope := range ch {
		if envelope.Error != nil {
			if firstErr == nil {
				firstErr = envelope.Error
			}
			continue
		}
		for _, rr := range envelope.RR {
			switch rr.(type) {
			case *dns.A, *dns.AAAA, *dns.NS, *dns.CNAME:
			default:
				continue
			}
			name := strings.ToLower(strings.TrimSuffix(rr.Header().Name, "."))
			if name == "" || strings.HasPrefix(name, "*") {
				continue
			}
			if env.record(ctx, "http://"+name, model.MethodZoneTransfer, zoneTransferTitle) {
				added++
			}
		}
	}
	return added, firstErr
}
