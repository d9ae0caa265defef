package proxy

import (
	"time"

	"go.uber.org/zap"

	"github.com/die-net/socks5d/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds everything before the relay: greeting,
	// command, resolution, connect and reply. Zero disables it.
	NegotiationTimeout time.Duration

	Resolver  dialer.Resolver
	Connector Connector

	Logger *zap.Logger

	// Verbose logs per-connection failures at warn instead of debug.
	Verbose bool
}
