package dialer

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/die-net/socks5d/internal/socks5"
)

type staticResolver struct {
	addrs []netip.Addr
	err   error
	calls int
}

func (s *staticResolver) Lookup(context.Context, string) ([]netip.Addr, error) {
	s.calls++
	return s.addrs, s.err
}

func addrs(ss ...string) []netip.Addr {
	out := make([]netip.Addr, len(ss))
	for i, s := range ss {
		out[i] = netip.MustParseAddr(s)
	}
	return out
}

func TestPickAddr(t *testing.T) {
	tests := []struct {
		name   string
		in     []netip.Addr
		want   string
		wantOK bool
	}{
		{name: "ipv4 wins over earlier ipv6", in: addrs("::1", "127.0.0.1"), want: "127.0.0.1", wantOK: true},
		{name: "first ipv4 of several", in: addrs("2001:db8::1", "10.0.0.2", "10.0.0.1"), want: "10.0.0.2", wantOK: true},
		{name: "mapped ipv4 counts as ipv4", in: addrs("2001:db8::1", "::ffff:192.0.2.1"), want: "192.0.2.1", wantOK: true},
		{name: "only ipv6 takes first", in: addrs("2001:db8::2", "2001:db8::1"), want: "2001:db8::2", wantOK: true},
		{name: "empty", in: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickAddr(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok=%v want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("ip passes through", func(t *testing.T) {
		r := &staticResolver{}
		got, err := Resolve(ctx, r, socks5.Addr{IP: netip.MustParseAddr("192.0.2.7"), Port: 80})
		if err != nil {
			t.Fatal(err)
		}
		if got.String() != "192.0.2.7:80" || r.calls != 0 {
			t.Fatalf("got %s calls %d", got, r.calls)
		}
	})

	t.Run("literal in domain field", func(t *testing.T) {
		r := &staticResolver{}
		got, err := Resolve(ctx, r, socks5.Addr{Name: "::1", Port: 22})
		if err != nil {
			t.Fatal(err)
		}
		if got.String() != "[::1]:22" || r.calls != 0 {
			t.Fatalf("got %s calls %d", got, r.calls)
		}
	})

	t.Run("domain prefers ipv4", func(t *testing.T) {
		r := &staticResolver{addrs: addrs("::1", "127.0.0.1")}
		got, err := Resolve(ctx, r, socks5.Addr{Name: "localhost", Port: 8080})
		if err != nil {
			t.Fatal(err)
		}
		if got.String() != "127.0.0.1:8080" {
			t.Fatalf("got %s", got)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := Resolve(ctx, &staticResolver{}, socks5.Addr{Name: "nowhere.test", Port: 1})
		if !errors.Is(err, ErrResolution) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		cause := errors.New("servfail")
		_, err := Resolve(ctx, &staticResolver{err: cause}, socks5.Addr{Name: "broken.test", Port: 1})
		if !errors.Is(err, ErrResolution) || !errors.Is(err, cause) {
			t.Fatalf("err=%v", err)
		}
	})
}

func TestNewResolver(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantType any
		wantErr  bool
	}{
		{name: "system", cfg: Config{}, wantType: SystemResolver{}},
		{name: "dns server", cfg: Config{DNSServer: "127.0.0.1:5353"}, wantType: &DNSResolver{}},
		{name: "dns server default port", cfg: Config{DNSServer: "192.0.2.53"}, wantType: &DNSResolver{}},
		{name: "dns server ipv6 default port", cfg: Config{DNSServer: "2001:db8::53"}, wantType: &DNSResolver{}},
		{name: "hosts", cfg: Config{Hosts: map[string][]netip.Addr{"a.test": addrs("192.0.2.1")}}, wantType: &HostsResolver{}},
		{name: "bad dns server", cfg: Config{DNSServer: "[::1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got, want := reflect.TypeOf(r), reflect.TypeOf(tt.wantType); got != want {
				t.Fatalf("got %s want %s", got, want)
			}
		})
	}
}

func TestSystemResolverTimeout(t *testing.T) {
	r, err := NewResolver(Config{DialTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	sr, ok := r.(SystemResolver)
	if !ok {
		t.Fatalf("got %T", r)
	}
	if sr.Timeout != 100*time.Millisecond {
		t.Fatalf("Timeout=%v", sr.Timeout)
	}

	// A DNS server that never answers.
	sr.Resolver = &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, _, _ string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	start := time.Now()
	_, err = Resolve(context.Background(), sr, socks5.Addr{Name: "stalled.test", Port: 80})
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("err=%v want ErrResolution", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lookup took %v", elapsed)
	}
}

func TestHostsResolver(t *testing.T) {
	next := &staticResolver{addrs: addrs("198.51.100.1")}
	r, err := NewResolver(Config{Hosts: map[string][]netip.Addr{"Pinned.Test.": addrs("192.0.2.9")}})
	if err != nil {
		t.Fatal(err)
	}
	h := r.(*HostsResolver)
	h.Next = next

	got, err := h.Lookup(context.Background(), "PINNED.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].String() != "192.0.2.9" || next.calls != 0 {
		t.Fatalf("got %v calls %d", got, next.calls)
	}

	got, err = h.Lookup(context.Background(), "other.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].String() != "198.51.100.1" || next.calls != 1 {
		t.Fatalf("got %v calls %d", got, next.calls)
	}
}
