package dialer

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Connector opens outbound TCP connections to resolved destinations.
type Connector struct {
	cfg Config
}

func NewConnector(cfg Config) *Connector {
	return &Connector{cfg: cfg}
}

// Connect dials dst with a socket of dst's address family. Failures wrap
// ErrConnect together with the target and the transport error.
func (c *Connector) Connect(ctx context.Context, dst netip.AddrPort) (net.Conn, error) {
	dst = netip.AddrPortFrom(dst.Addr().Unmap(), dst.Port())

	network := "tcp4"
	if dst.Addr().Is6() {
		network = "tcp6"
	}

	dd := net.Dialer{Timeout: c.cfg.DialTimeout}

	conn, err := dd.DialContext(ctx, network, dst.String())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s %s: %w", ErrConnect, network, dst, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(c.cfg.KeepAlive)
	}

	return conn, nil
}
