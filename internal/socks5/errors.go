package socks5

import "errors"

var (
	// ErrProtocol marks malformed or unacceptable wire fields: bad version,
	// no acceptable method, bad RSV, unknown ATYP or CMD, non UTF-8 domain.
	ErrProtocol = errors.New("socks5 protocol error")

	// ErrUnsupported marks well-formed requests for commands this server does
	// not execute (BIND, UDP ASSOCIATE).
	ErrUnsupported = errors.New("socks5 unsupported command")

	// ErrIO marks read or write failures on the client stream, including a
	// peer closing mid-frame.
	ErrIO = errors.New("socks5 i/o error")
)
