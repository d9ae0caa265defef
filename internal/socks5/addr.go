package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"unicode/utf8"
)

// Address types.
const (
	ATYPIPv4   byte = 0x01
	ATYPDomain byte = 0x03
	ATYPIPv6   byte = 0x04
)

// MaxAddrLen is the longest encoded ATYP+ADDR+PORT: a 255 byte domain.
const MaxAddrLen = 1 + 1 + 255 + 2

// Addr is the ATYP-tagged address carried by requests and replies. Exactly
// one of IP and Name is set.
type Addr struct {
	IP   netip.Addr
	Name string
	Port uint16
}

// Type returns the ATYP byte for a.
func (a Addr) Type() byte {
	switch {
	case a.Name != "":
		return ATYPDomain
	case a.IP.Is4():
		return ATYPIPv4
	default:
		return ATYPIPv6
	}
}

// IsDomain reports whether a still needs resolution.
func (a Addr) IsDomain() bool {
	return a.Name != ""
}

// AddrPort returns a as an IP socket address. It is only meaningful when a is
// not a domain.
func (a Addr) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(a.IP.Unmap(), a.Port)
}

func (a Addr) String() string {
	if a.IsDomain() {
		return net.JoinHostPort(a.Name, strconv.Itoa(int(a.Port)))
	}
	return a.AddrPort().String()
}

// AppendTo appends the wire encoding of a (ATYP, ADDR, PORT) to b. The port
// is always written big-endian.
func (a Addr) AppendTo(b []byte) ([]byte, error) {
	switch a.Type() {
	case ATYPDomain:
		if len(a.Name) > 255 {
			return b, fmt.Errorf("%w: domain name is %d bytes", ErrProtocol, len(a.Name))
		}
		b = append(b, ATYPDomain, byte(len(a.Name)))
		b = append(b, a.Name...)
	case ATYPIPv4:
		ip := a.IP.As4()
		b = append(b, ATYPIPv4)
		b = append(b, ip[:]...)
	default:
		if !a.IP.IsValid() {
			return b, fmt.Errorf("%w: empty address", ErrProtocol)
		}
		ip := a.IP.As16()
		b = append(b, ATYPIPv6)
		b = append(b, ip[:]...)
	}
	return binary.BigEndian.AppendUint16(b, a.Port), nil
}

// ReadAddr reads ATYP, ADDR and PORT from r.
func ReadAddr(r io.Reader) (Addr, error) {
	var atyp [1]byte
	if err := readFull(r, atyp[:], "address type"); err != nil {
		return Addr{}, err
	}
	return readAddrBody(r, atyp[0])
}

func readAddrBody(r io.Reader, atyp byte) (Addr, error) {
	var a Addr

	switch atyp {
	case ATYPIPv4:
		var b [4 + 2]byte
		if err := readFull(r, b[:], "ipv4 address"); err != nil {
			return Addr{}, err
		}
		a.IP = netip.AddrFrom4([4]byte(b[:4]))
		a.Port = binary.BigEndian.Uint16(b[4:])
	case ATYPIPv6:
		var b [16 + 2]byte
		if err := readFull(r, b[:], "ipv6 address"); err != nil {
			return Addr{}, err
		}
		a.IP = netip.AddrFrom16([16]byte(b[:16]))
		a.Port = binary.BigEndian.Uint16(b[16:])
	case ATYPDomain:
		var n [1]byte
		if err := readFull(r, n[:], "domain length"); err != nil {
			return Addr{}, err
		}
		b := make([]byte, int(n[0])+2)
		if err := readFull(r, b, "domain name"); err != nil {
			return Addr{}, err
		}
		name := b[:n[0]]
		if !utf8.Valid(name) {
			return Addr{}, fmt.Errorf("%w: domain name is not valid UTF-8", ErrProtocol)
		}
		if len(name) == 0 {
			return Addr{}, fmt.Errorf("%w: empty domain name", ErrProtocol)
		}
		a.Name = string(name)
		a.Port = binary.BigEndian.Uint16(b[n[0]:])
	default:
		return Addr{}, fmt.Errorf("%w: invalid ATYP %#02x", ErrProtocol, atyp)
	}

	return a, nil
}

// AddrFromNetAddr converts a TCP or UDP socket address to an Addr, deriving
// the address type from the IP family.
func AddrFromNetAddr(na net.Addr) (Addr, error) {
	var ap netip.AddrPort
	switch v := na.(type) {
	case *net.TCPAddr:
		ap = v.AddrPort()
	case *net.UDPAddr:
		ap = v.AddrPort()
	default:
		parsed, err := netip.ParseAddrPort(na.String())
		if err != nil {
			return Addr{}, fmt.Errorf("parse address %q: %w", na.String(), err)
		}
		ap = parsed
	}
	if !ap.Addr().IsValid() {
		return Addr{}, fmt.Errorf("address %q has no IP", na.String())
	}
	return Addr{IP: ap.Addr().Unmap(), Port: ap.Port()}, nil
}

func readFull(r io.Reader, b []byte, what string) error {
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrIO, what, err)
	}
	return nil
}
