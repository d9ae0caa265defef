package socks5

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// Version is the only protocol version accepted.
	Version byte = 0x05

	// MethodNone is "no authentication required", the only method selected.
	MethodNone             byte = 0x00
	MethodGSSAPI           byte = 0x01
	MethodUsernamePassword byte = 0x02
	MethodNoAcceptable     byte = 0xff
)

// Greeting is a parsed method-negotiation request.
type Greeting struct {
	Methods []byte
}

// ReadGreeting reads VER, NMETHODS and the method list from r.
func ReadGreeting(r io.Reader) (Greeting, error) {
	var hdr [2]byte
	if err := readFull(r, hdr[:], "greeting"); err != nil {
		return Greeting{}, err
	}
	if hdr[0] != Version {
		return Greeting{}, fmt.Errorf("%w: invalid greeting version %#02x", ErrProtocol, hdr[0])
	}

	// NMETHODS is a single byte, so 255 bounds the list.
	var buf [255]byte
	methods := buf[:hdr[1]]
	if err := readFull(r, methods, "methods"); err != nil {
		return Greeting{}, err
	}
	return Greeting{Methods: bytes.Clone(methods)}, nil
}

// Negotiate runs the greeting exchange on rw. It selects MethodNone when the
// client offers it and writes the two byte selection reply. When no
// acceptable method is offered nothing is written.
func Negotiate(rw io.ReadWriter) (Greeting, error) {
	g, err := ReadGreeting(rw)
	if err != nil {
		return g, err
	}
	if bytes.IndexByte(g.Methods, MethodNone) < 0 {
		return g, fmt.Errorf("%w: no acceptable methods in %v", ErrProtocol, g.Methods)
	}
	if err := writeFull(rw, []byte{Version, MethodNone}, "method selection"); err != nil {
		return g, err
	}
	return g, nil
}

// MethodName returns a human readable name for an authentication method.
func MethodName(m byte) string {
	switch {
	case m == MethodNone:
		return "NO AUTHENTICATION REQUIRED"
	case m == MethodGSSAPI:
		return "GSSAPI"
	case m == MethodUsernamePassword:
		return "USERNAME/PASSWORD"
	case m == MethodNoAcceptable:
		return fmt.Sprintf("%d (NO ACCEPTABLE METHODS)", m)
	case m >= 0x80:
		return fmt.Sprintf("%d (RESERVED FOR PRIVATE METHODS)", m)
	default:
		return fmt.Sprintf("%d (IANA ASSIGNED)", m)
	}
}

// MethodNames maps MethodName over methods.
func MethodNames(methods []byte) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = MethodName(m)
	}
	return names
}

// writeFull writes b to w, retrying short writes that report no error.
func writeFull(w io.Writer, b []byte, what string) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrIO, what, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: write %s: %w", ErrIO, what, io.ErrShortWrite)
		}
		b = b[n:]
	}
	return nil
}
