package socks5

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	txsocks5 "github.com/txthinking/socks5"
)

// ClientDial runs a no-auth negotiation on conn followed by a CONNECT to
// address, and returns the bound address from the server's reply.
func ClientDial(conn net.Conn, address string) (Addr, error) {
	if err := ClientNegotiate(conn); err != nil {
		return Addr{}, err
	}
	return ClientConnect(conn, address)
}

func ClientNegotiate(conn net.Conn) error {
	if _, err := txsocks5.NewNegotiationRequest([]byte{MethodNone}).WriteTo(conn); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}
	if neg.Method != MethodNone {
		return fmt.Errorf("unsupported negotiation method: %d", neg.Method)
	}
	return nil
}

func ClientConnect(conn net.Conn, address string) (Addr, error) {
	atyp, dstAddr, dstPort, err := txsocks5.ParseAddress(address)
	if err != nil {
		return Addr{}, fmt.Errorf("parse address: %w", err)
	}
	if atyp == ATYPDomain {
		dstAddr = dstAddr[1:]
	}

	if _, err := txsocks5.NewRequest(CmdConnect, atyp, dstAddr, dstPort).WriteTo(conn); err != nil {
		return Addr{}, fmt.Errorf("write request: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(conn)
	if err != nil {
		return Addr{}, fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != RepSuccess {
		return Addr{}, fmt.Errorf("connect failed: rep %d", rep.Rep)
	}
	return replyAddr(rep)
}

func replyAddr(rep *txsocks5.Reply) (Addr, error) {
	if len(rep.BndPort) != 2 {
		return Addr{}, fmt.Errorf("reply port is %d bytes", len(rep.BndPort))
	}
	a := Addr{Port: binary.BigEndian.Uint16(rep.BndPort)}

	switch rep.Atyp {
	case ATYPIPv4, ATYPIPv6:
		ip, ok := netip.AddrFromSlice(rep.BndAddr)
		if !ok {
			return Addr{}, fmt.Errorf("reply address is %d bytes", len(rep.BndAddr))
		}
		a.IP = ip
	case ATYPDomain:
		if len(rep.BndAddr) < 1 {
			return Addr{}, fmt.Errorf("empty reply domain")
		}
		a.Name = string(rep.BndAddr[1:])
	default:
		return Addr{}, fmt.Errorf("reply ATYP %d", rep.Atyp)
	}
	return a, nil
}
