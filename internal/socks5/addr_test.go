package socks5

import (
	"bytes"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"
)

func TestAddrRoundTrip(t *testing.T) {
	tests := []Addr{
		{IP: netip.MustParseAddr("127.0.0.1"), Port: 80},
		{IP: netip.MustParseAddr("192.0.2.200"), Port: 65535},
		{IP: netip.MustParseAddr("0.0.0.0"), Port: 0},
		{IP: netip.MustParseAddr("::1"), Port: 1080},
		{IP: netip.MustParseAddr("2001:db8::dead:beef"), Port: 443},
		{IP: netip.MustParseAddr("::ffff:10.1.2.3"), Port: 22},
		{Name: "example.com", Port: 8080},
		{Name: strings.Repeat("a", 255), Port: 1},
	}

	for _, want := range tests {
		t.Run(want.String(), func(t *testing.T) {
			b, err := want.AppendTo(nil)
			if err != nil {
				t.Fatal(err)
			}
			if b[0] != want.Type() {
				t.Fatalf("atyp %#02x want %#02x", b[0], want.Type())
			}
			got, err := ReadAddr(bytes.NewReader(b))
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Fatalf("got %+v want %+v", got, want)
			}
		})
	}
}

func TestAddrAppendTo(t *testing.T) {
	tests := []struct {
		name string
		addr Addr
		want []byte
	}{
		{
			name: "ipv4",
			addr: Addr{IP: netip.MustParseAddr("127.0.0.1"), Port: 80},
			want: []byte{0x01, 127, 0, 0, 1, 0x00, 0x50},
		},
		{
			name: "ipv6",
			addr: Addr{IP: netip.MustParseAddr("::1"), Port: 0x1234},
			want: []byte{0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0x12, 0x34},
		},
		{
			name: "domain",
			addr: Addr{Name: "a.io", Port: 443},
			want: []byte{0x03, 4, 'a', '.', 'i', 'o', 0x01, 0xbb},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.addr.AppendTo(nil)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("got %x want %x", got, tt.want)
			}
		})
	}
}

func TestAddrAppendToErrors(t *testing.T) {
	if _, err := (Addr{Name: strings.Repeat("a", 256)}).AppendTo(nil); !errors.Is(err, ErrProtocol) {
		t.Errorf("long domain: err=%v", err)
	}
	if _, err := (Addr{}).AppendTo(nil); !errors.Is(err, ErrProtocol) {
		t.Errorf("zero addr: err=%v", err)
	}
}

func TestAddrFromNetAddr(t *testing.T) {
	tests := []struct {
		name     string
		in       net.Addr
		wantType byte
		want     string
	}{
		{name: "tcp4", in: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 5555}, wantType: ATYPIPv4, want: "10.0.0.2:5555"},
		{name: "tcp6", in: &net.TCPAddr{IP: net.ParseIP("fe80::1"), Port: 6}, wantType: ATYPIPv6, want: "[fe80::1]:6"},
		{name: "udp4", in: &net.UDPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 53}, wantType: ATYPIPv4, want: "1.2.3.4:53"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := AddrFromNetAddr(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if a.Type() != tt.wantType {
				t.Fatalf("type %#02x want %#02x", a.Type(), tt.wantType)
			}
			if a.String() != tt.want {
				t.Fatalf("got %s want %s", a, tt.want)
			}
		})
	}
}

func TestWriteReply(t *testing.T) {
	tests := []struct {
		name  string
		local net.Addr
		want  []byte
	}{
		{
			name:  "ipv4",
			local: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0xc350},
			want:  []byte{0x05, 0x00, 0x00, 0x01, 127, 0, 0, 1, 0xc3, 0x50},
		},
		{
			name:  "ipv6",
			local: &net.TCPAddr{IP: net.ParseIP("::1"), Port: 1080},
			want:  []byte{0x05, 0x00, 0x00, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0x04, 0x38},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReply(&buf, tt.local); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(buf.Bytes(), tt.want) {
				t.Fatalf("got %x want %x", buf.Bytes(), tt.want)
			}
		})
	}
}

type shortWriter struct {
	buf bytes.Buffer
	max int
}

func (w *shortWriter) Write(b []byte) (int, error) {
	if len(b) > w.max {
		b = b[:w.max]
	}
	return w.buf.Write(b)
}

func TestWriteReplyRetriesShortWrites(t *testing.T) {
	w := &shortWriter{max: 3}
	if err := WriteReply(w, &net.TCPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 80}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x05, 0x00, 0x00, 0x01, 1, 2, 3, 4, 0x00, 0x50}
	if !bytes.Equal(w.buf.Bytes(), want) {
		t.Fatalf("got %x want %x", w.buf.Bytes(), want)
	}
}
