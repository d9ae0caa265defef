package proxy

import (
	"context"
	"fmt"
	"net"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
)

// ListenConfig configures the client-facing listener.
type ListenConfig struct {
	KeepAlive net.KeepAliveConfig

	// ReusePort sets SO_REUSEPORT so several processes can share the port.
	// SO_REUSEADDR is always set.
	ReusePort bool

	// ProxyProtocol requires a PROXY protocol v1 or v2 header on every
	// accepted connection, read within ProxyHeaderTimeout.
	ProxyProtocol      bool
	ProxyHeaderTimeout time.Duration
}

// ListenTCP listens on the given network/address and returns a net.Listener
// that applies cfg to accepted connections.
func ListenTCP(ctx context.Context, network, addr string, cfg ListenConfig) (net.Listener, error) {
	control, err := reuseControl(cfg.ReusePort)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	lc := net.ListenConfig{Control: control}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	var l net.Listener = &KeepAliveListener{Listener: ln, KeepAliveConfig: cfg.KeepAlive}
	if cfg.ProxyProtocol {
		l = &proxyproto.Listener{
			Listener:          l,
			ReadHeaderTimeout: cfg.ProxyHeaderTimeout,
			Policy: func(net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}
	return l, nil
}

// KeepAliveListener wraps a net.Listener and applies KeepAliveConfig to any
// accepted *net.TCPConn.
type KeepAliveListener struct {
	net.Listener
	net.KeepAliveConfig
}

// Accept accepts the next connection and applies KeepAliveConfig if the
// connection is a *net.TCPConn.
func (l *KeepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(l.KeepAliveConfig)
	}

	return conn, nil
}
