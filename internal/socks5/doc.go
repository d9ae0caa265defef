// Package socks5 implements the server side of the SOCKS5 wire protocol used
// by socks5d.
//
// It covers the method negotiation, the CONNECT request and its address
// encoding, and the reply frame. Failures are reported as one of the error
// kinds in errors.go. ClientDial is a minimal no-auth CONNECT client built on
// github.com/txthinking/socks5.
//
// Resolution of domain names and the outbound connect are not part of this
// package; see internal/dialer.
package socks5
