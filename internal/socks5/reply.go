package socks5

import (
	"fmt"
	"io"
	"net"
)

// RepSuccess is the only REP value this server sends. Failures before the
// reply close the connection instead.
const RepSuccess byte = 0x00

// AppendReply appends a VER REP RSV ATYP BND.ADDR BND.PORT frame to b.
func AppendReply(b []byte, rep byte, bnd Addr) ([]byte, error) {
	b = append(b, Version, rep, 0x00)
	return bnd.AppendTo(b)
}

// WriteReply writes a success reply whose bound address is localAddr, the
// local end of the outbound connection. ATYP follows localAddr's family.
func WriteReply(w io.Writer, localAddr net.Addr) error {
	bnd, err := AddrFromNetAddr(localAddr)
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	frame, err := AppendReply(make([]byte, 0, 3+MaxAddrLen), RepSuccess, bnd)
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return writeFull(w, frame, "reply")
}
