package dialer

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/die-net/socks5d/internal/socks5"
)

// Resolver looks up the addresses of a host name. Results are returned in the
// order the source produced them.
type Resolver interface {
	Lookup(ctx context.Context, host string) ([]netip.Addr, error)
}

// NewResolver builds the Resolver described by cfg.
func NewResolver(cfg Config) (Resolver, error) {
	var r Resolver = SystemResolver{Timeout: cfg.DialTimeout}
	if cfg.DNSServer != "" {
		server, err := normalizeServer(cfg.DNSServer)
		if err != nil {
			return nil, fmt.Errorf("invalid dns server %q: %w", cfg.DNSServer, err)
		}
		r = NewDNSResolver(server, cfg.DialTimeout)
	}
	if len(cfg.Hosts) > 0 {
		hosts := make(map[string][]netip.Addr, len(cfg.Hosts))
		for name, addrs := range cfg.Hosts {
			hosts[canonicalHost(name)] = addrs
		}
		r = &HostsResolver{Hosts: hosts, Next: r}
	}
	return r, nil
}

func normalizeServer(s string) (string, error) {
	if _, _, err := net.SplitHostPort(s); err == nil {
		return s, nil
	}
	if strings.Count(s, ":") > 1 && !strings.HasPrefix(s, "[") {
		s = "[" + s + "]"
	}
	s += ":53"
	if _, _, err := net.SplitHostPort(s); err != nil {
		return "", err
	}
	return s, nil
}

// SystemResolver uses the platform resolver. A positive Timeout bounds each
// lookup.
type SystemResolver struct {
	Resolver *net.Resolver
	Timeout  time.Duration
}

func (s SystemResolver) Lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return r.LookupNetIP(ctx, "ip", host)
}

// HostsResolver answers names found in Hosts and passes the rest to Next.
// Keys of Hosts must be lower case without a trailing dot; lookups are
// canonicalized the same way.
type HostsResolver struct {
	Hosts map[string][]netip.Addr
	Next  Resolver
}

func (h *HostsResolver) Lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	if addrs, ok := h.Hosts[canonicalHost(host)]; ok {
		return addrs, nil
	}
	if h.Next == nil {
		return nil, nil
	}
	return h.Next.Lookup(ctx, host)
}

func canonicalHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// PickAddr returns the first IPv4 address in addrs, or the first address of
// any family when there is none.
func PickAddr(addrs []netip.Addr) (netip.Addr, bool) {
	for _, a := range addrs {
		if a.Unmap().Is4() {
			return a.Unmap(), true
		}
	}
	if len(addrs) == 0 {
		return netip.Addr{}, false
	}
	return addrs[0], true
}

// Resolve turns a request destination into a single socket address. IP
// destinations pass through unchanged.
func Resolve(ctx context.Context, r Resolver, dst socks5.Addr) (netip.AddrPort, error) {
	if !dst.IsDomain() {
		return dst.AddrPort(), nil
	}
	if ip, err := netip.ParseAddr(dst.Name); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), dst.Port), nil
	}

	addrs, err := r.Lookup(ctx, dst.Name)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: lookup %s: %w", ErrResolution, dst.Name, err)
	}
	ip, ok := PickAddr(addrs)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("%w: lookup %s: no addresses", ErrResolution, dst.Name)
	}
	return netip.AddrPortFrom(ip, dst.Port), nil
}
