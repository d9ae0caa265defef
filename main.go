package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/socks5d/internal/config"
	"github.com/die-net/socks5d/internal/dialer"
	"github.com/die-net/socks5d/internal/logging"
	"github.com/die-net/socks5d/internal/proxy"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer func() { _ = log.Sync() }()

	hosts, err := cfg.HostAddrs()
	if err != nil {
		return err
	}
	ka := cfg.KeepAlive()

	dialCfg := dialer.Config{
		DialTimeout: cfg.DialTimeout.Std(),
		KeepAlive:   ka,
		DNSServer:   cfg.DNSServer,
		Hosts:       hosts,
	}

	resolver, err := dialer.NewResolver(dialCfg)
	if err != nil {
		return fmt.Errorf("resolver: %w", err)
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DebugListen != "" {
		http.Handle("/metrics", promhttp.Handler())
		debugSrv := &http.Server{Handler: http.DefaultServeMux, ReadHeaderTimeout: 10 * time.Second}
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", cfg.DebugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info("debug listening", zap.String("addr", cfg.DebugListen))
	}

	ln, err := proxy.ListenTCP(ctx, "tcp", cfg.Listen, proxy.ListenConfig{
		KeepAlive:          ka,
		ReusePort:          cfg.ReusePort,
		ProxyProtocol:      cfg.ProxyProtocol,
		ProxyHeaderTimeout: cfg.NegotiationTimeout.Std(),
	})
	if err != nil {
		return fmt.Errorf("socks5 listen: %w", err)
	}
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	s5 := proxy.NewSOCKS5Server(ctx, proxy.Config{
		NegotiationTimeout: cfg.NegotiationTimeout.Std(),
		Resolver:           resolver,
		Connector:          dialer.NewConnector(dialCfg),
		Logger:             log,
		Verbose:            cfg.Verbose,
	})

	g.Go(func() error {
		if err := s5.Serve(ln); err != nil {
			return fmt.Errorf("socks5 serve: %w", err)
		}
		return nil
	})
	log.Info("socks5 proxy listening",
		zap.Stringer("addr", ln.Addr()),
		zap.Bool("proxy_protocol", cfg.ProxyProtocol),
		zap.String("dns_server", cfg.DNSServer))

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info("shutting down")
	return err
}
