package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/die-net/socks5d/internal/dialer"
	"github.com/die-net/socks5d/internal/socks5"
)

// SOCKS5Server serves SOCKS5 CONNECT requests with no authentication.
type SOCKS5Server struct {
	ctx context.Context
	cfg Config
	log *zap.Logger
	wg  sync.WaitGroup
}

// NewSOCKS5Server returns a server whose connections are canceled with ctx.
func NewSOCKS5Server(ctx context.Context, cfg Config) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = dialer.SystemResolver{}
	}
	if cfg.Connector == nil {
		cfg.Connector = dialer.NewConnector(dialer.Config{})
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &SOCKS5Server{ctx: ctx, cfg: cfg, log: log.Named("socks5")}
}

// Serve accepts connections on ln and handles each on its own goroutine.
// When the server's context is done Serve returns nil once ln has been closed
// and every in-flight connection has finished. A listener closed while the
// context is live is returned as an error. Other accept errors, such as
// running out of file descriptors, are logged and retried with backoff.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	defer s.wg.Wait()

	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			delay = acceptBackoff(delay)
			s.log.Warn("accept failed", zap.Error(err), zap.Duration("retry_in", delay))
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-s.ctx.Done():
				t.Stop()
				return nil
			}
			continue
		}
		delay = 0

		s.wg.Go(func() {
			_, _ = s.ServeConn(c)
		})
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// acceptBackoff doubles the previous delay, starting at minAcceptDelay and
// capped at maxAcceptDelay.
func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	return min(2*prev, maxAcceptDelay)
}

// session carries the per-connection facts used for logging.
type session struct {
	state  State
	target socks5.Addr
	dst    netip.AddrPort
}

// ServeConn runs the SOCKS5 pipeline on conn and closes it. A failure at any
// step aborts the connection without a reply.
func (s *SOCKS5Server) ServeConn(conn net.Conn) (RelayResult, error) {
	activeConnections.Inc()
	defer activeConnections.Dec()

	var sess session
	res, err := s.handle(conn, &sess)

	failedIn := sess.state
	if err != nil {
		sess.state = StateFailed
	} else {
		sess.state = StateClosed
	}

	result := resultLabel(err)
	connectionsTotal.WithLabelValues(result).Inc()

	fields := []zap.Field{
		zap.Stringer("client", remoteAddr(conn)),
		zap.String("result", result),
	}
	if sess.target != (socks5.Addr{}) {
		fields = append(fields, zap.Stringer("target", sess.target))
	}
	if sess.dst.IsValid() {
		fields = append(fields, zap.Stringer("dst", sess.dst))
	}

	switch {
	case err == nil:
		s.log.Debug("connection closed", append(fields,
			zap.Int64("client_to_dest", res.ClientToDest),
			zap.Int64("dest_to_client", res.DestToClient))...)
	case s.cfg.Verbose:
		s.log.Warn("connection failed", append(fields, zap.Stringer("state", failedIn), zap.Error(err))...)
	default:
		s.log.Debug("connection failed", append(fields, zap.Stringer("state", failedIn), zap.Error(err))...)
	}

	return res, err
}

func (s *SOCKS5Server) handle(conn net.Conn, sess *session) (RelayResult, error) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Shutdown must unblock handshake reads as well as the relay.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	start := time.Now()
	hctx := ctx
	if t := s.cfg.NegotiationTimeout; t > 0 {
		deadline := start.Add(t)
		_ = conn.SetDeadline(deadline)

		var hcancel context.CancelFunc
		hctx, hcancel = context.WithDeadline(ctx, deadline)
		defer hcancel()
	}

	sess.state = StateGreeting
	g, err := socks5.Negotiate(conn)
	if err != nil {
		return RelayResult{}, err
	}
	s.transition(sess, StateNegotiated, zap.Strings("methods", socks5.MethodNames(g.Methods)))

	req, err := socks5.ReadRequest(conn)
	if err != nil {
		return RelayResult{}, err
	}
	sess.target = req.Dst
	if err := socks5.CheckConnect(req); err != nil {
		return RelayResult{}, err
	}
	dst, err := dialer.Resolve(hctx, s.cfg.Resolver, req.Dst)
	if err != nil {
		return RelayResult{}, err
	}
	sess.dst = dst
	s.transition(sess, StateCommandRead, zap.Stringer("target", req.Dst), zap.Stringer("dst", dst))

	s.transition(sess, StateConnecting)
	up, err := s.cfg.Connector.Connect(hctx, dst)
	if err != nil {
		return RelayResult{}, err
	}
	defer up.Close()
	s.transition(sess, StateConnected, zap.Stringer("local", up.LocalAddr()))

	if err := socks5.WriteReply(conn, up.LocalAddr()); err != nil {
		return RelayResult{}, err
	}
	handshakeSeconds.Observe(time.Since(start).Seconds())

	if err := conn.SetDeadline(time.Time{}); err != nil {
		return RelayResult{}, fmt.Errorf("%w: clear deadline: %w", socks5.ErrIO, err)
	}

	s.transition(sess, StateRelaying)
	res, err := CopyBidirectional(ctx, conn, up)
	relayedBytes.WithLabelValues(directionUpload).Add(float64(res.ClientToDest))
	relayedBytes.WithLabelValues(directionDownload).Add(float64(res.DestToClient))
	if err != nil && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("relay: %w", err)
	}
	return res, err
}

func (s *SOCKS5Server) transition(sess *session, to State, fields ...zap.Field) {
	if ce := s.log.Check(zap.DebugLevel, "state"); ce != nil {
		ce.Write(append(fields, zap.Stringer("from", sess.state), zap.Stringer("to", to))...)
	}
	sess.state = to
}

// remoteAddr is the client address, as reported by a PROXY protocol header
// when one was required.
func remoteAddr(conn net.Conn) net.Addr {
	if a := conn.RemoteAddr(); a != nil {
		return a
	}
	return &net.TCPAddr{}
}
