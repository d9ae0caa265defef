package dialer

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DNSResolver queries a single DNS server for A and AAAA records in parallel.
// IPv4 answers are listed before IPv6 answers. Concurrent lookups of the same
// name share one pair of queries.
type DNSResolver struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
	sf     singleflight.Group
}

func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

func (r *DNSResolver) Lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	ch := r.sf.DoChan(canonicalHost(host), func() (any, error) {
		// Detached from the first caller so its cancellation does not fail
		// the other waiters. The client timeouts still bound each query.
		return r.lookup(context.WithoutCancel(ctx), host)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		addrs, _ := res.Val.([]netip.Addr)
		return addrs, nil
	}
}

func (r *DNSResolver) lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	var (
		v4, v6     []netip.Addr
		err4, err6 error
	)

	var g errgroup.Group
	g.Go(func() error {
		v4, err4 = r.query(ctx, host, dns.TypeA)
		return nil
	})
	g.Go(func() error {
		v6, err6 = r.query(ctx, host, dns.TypeAAAA)
		return nil
	})
	_ = g.Wait()

	addrs := append(v4, v6...)
	if len(addrs) == 0 {
		if err := errors.Join(err4, err6); err != nil {
			return nil, err
		}
	}
	return addrs, nil
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	in, _, err := r.udp.ExchangeContext(ctx, m, r.server)
	if err == nil && in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, m, r.server)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s via %s: %w", dns.TypeToString[qtype], host, r.server, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s %s via %s: %s", dns.TypeToString[qtype], host, r.server, dns.RcodeToString[in.Rcode])
	}

	var addrs []netip.Addr
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			if a, ok := netip.AddrFromSlice(v.A); ok {
				addrs = append(addrs, a.Unmap())
			}
		case *dns.AAAA:
			if a, ok := netip.AddrFromSlice(v.AAAA); ok {
				addrs = append(addrs, a)
			}
		}
	}
	return addrs, nil
}
