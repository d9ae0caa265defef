// Package proxy implements the socks5d listener side: the per-connection
// SOCKS5 handler, the bidirectional relay, and listener construction.
//
// Each accepted connection runs an independent pipeline (negotiate, read
// command, resolve, connect, reply, relay) on its own goroutine. Connections
// share nothing but the process-wide metrics.
package proxy
