package dialer

import (
	"net"
	"net/netip"
	"time"
)

type Config struct {
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig

	// DNSServer is a host:port queried directly for A and AAAA records.
	// Empty uses the system resolver.
	DNSServer string

	// Hosts pins names to addresses ahead of DNS.
	Hosts map[string][]netip.Addr
}
