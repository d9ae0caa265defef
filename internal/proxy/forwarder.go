package proxy

import (
	"context"
	"net"
	"net/netip"
)

// Connector opens the outbound stream for a resolved destination.
// *dialer.Connector is the production implementation.
type Connector interface {
	Connect(ctx context.Context, dst netip.AddrPort) (net.Conn, error)
}
