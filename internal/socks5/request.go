package socks5

import (
	"fmt"
	"io"
)

// Commands.
const (
	CmdConnect byte = 0x01
	CmdBind    byte = 0x02
	CmdUDP     byte = 0x03
)

// Request is a parsed command request. Dst is as sent by the client; domain
// names are not resolved here.
type Request struct {
	Cmd byte
	Dst Addr
}

// ReadRequest reads VER, CMD, RSV, ATYP and the destination from r.
//
// BIND and UDP ASSOCIATE parse successfully; callers that only execute
// CONNECT reject them with ErrUnsupported. Any other CMD is a protocol error.
func ReadRequest(r io.Reader) (Request, error) {
	var hdr [4]byte
	if err := readFull(r, hdr[:], "request header"); err != nil {
		return Request{}, err
	}
	if hdr[0] != Version {
		return Request{}, fmt.Errorf("%w: invalid request version %#02x", ErrProtocol, hdr[0])
	}
	switch hdr[1] {
	case CmdConnect, CmdBind, CmdUDP:
	default:
		return Request{}, fmt.Errorf("%w: invalid CMD %#02x", ErrProtocol, hdr[1])
	}
	if hdr[2] != 0x00 {
		return Request{}, fmt.Errorf("%w: invalid RSV %#02x", ErrProtocol, hdr[2])
	}

	dst, err := readAddrBody(r, hdr[3])
	if err != nil {
		return Request{}, err
	}
	return Request{Cmd: hdr[1], Dst: dst}, nil
}

// CommandName returns a short name for a command byte.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdConnect:
		return "CONNECT"
	case CmdBind:
		return "BIND"
	case CmdUDP:
		return "UDP ASSOCIATE"
	default:
		return fmt.Sprintf("%#02x", cmd)
	}
}

// CheckConnect returns ErrUnsupported unless req is a CONNECT.
func CheckConnect(req Request) error {
	if req.Cmd != CmdConnect {
		return fmt.Errorf("%w: %s", ErrUnsupported, CommandName(req.Cmd))
	}
	return nil
}
