package proxy

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/die-net/socks5d/internal/dialer"
	"github.com/die-net/socks5d/internal/socks5"
)

var (
	connectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socks5d",
		Name:      "connections_total",
		Help:      "Client connections handled, by outcome.",
	}, []string{"result"})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "socks5d",
		Name:      "active_connections",
		Help:      "Client connections currently being handled.",
	})

	relayedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socks5d",
		Name:      "relayed_bytes_total",
		Help:      "Bytes relayed after the CONNECT reply, by direction.",
	}, []string{"direction"})

	handshakeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "socks5d",
		Name:      "handshake_seconds",
		Help:      "Time from accept to a sent CONNECT reply.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

const (
	directionUpload   = "client_to_dest"
	directionDownload = "dest_to_client"
)

// resultLabel classifies a connection outcome for logs and metrics. An
// expired deadline is a timeout whichever step it interrupted.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, socks5.ErrProtocol):
		return "protocol"
	case errors.Is(err, socks5.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, dialer.ErrResolution):
		return "resolution"
	case errors.Is(err, dialer.ErrConnect):
		return "connect"
	default:
		return "io"
	}
}
