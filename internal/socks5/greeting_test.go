package socks5

import (
	"bytes"
	"errors"
	"testing"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		wantErr error
		wantOut []byte
	}{
		{name: "single no-auth", in: []byte{0x05, 0x01, 0x00}, wantOut: []byte{0x05, 0x00}},
		{name: "no-auth among others", in: []byte{0x05, 0x03, 0x02, 0x01, 0x00}, wantOut: []byte{0x05, 0x00}},
		{name: "no-auth last of many", in: append([]byte{0x05, 0xff}, append(bytes.Repeat([]byte{0x80}, 254), 0x00)...), wantOut: []byte{0x05, 0x00}},
		{name: "userpass only", in: []byte{0x05, 0x01, 0x02}, wantErr: ErrProtocol},
		{name: "empty method list", in: []byte{0x05, 0x00}, wantErr: ErrProtocol},
		{name: "wrong version", in: []byte{0x04, 0x01, 0x00}, wantErr: ErrProtocol},
		{name: "short header", in: []byte{0x05}, wantErr: ErrIO},
		{name: "short methods", in: []byte{0x05, 0x03, 0x00}, wantErr: ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newRW(tt.in)
			_, err := Negotiate(c)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v want %v", err, tt.wantErr)
				}
				if c.out.Len() != 0 {
					t.Fatalf("wrote %x on failure", c.out.Bytes())
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(c.out.Bytes(), tt.wantOut) {
				t.Fatalf("wrote %x want %x", c.out.Bytes(), tt.wantOut)
			}
		})
	}
}

func TestReadGreetingDoesNotOverread(t *testing.T) {
	c := newRW([]byte{0x05, 0x02, 0x00, 0x02, 0x05, 0x01})
	g, err := ReadGreeting(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(g.Methods, []byte{0x00, 0x02}) {
		t.Fatalf("methods %x", g.Methods)
	}
	rest := make([]byte, 2)
	if _, err := c.Read(rest); err != nil || !bytes.Equal(rest, []byte{0x05, 0x01}) {
		t.Fatalf("remaining %x err %v", rest, err)
	}
}

func TestMethodName(t *testing.T) {
	tests := map[byte]string{
		0x00: "NO AUTHENTICATION REQUIRED",
		0x01: "GSSAPI",
		0x02: "USERNAME/PASSWORD",
		0x03: "3 (IANA ASSIGNED)",
		0x7f: "127 (IANA ASSIGNED)",
		0x80: "128 (RESERVED FOR PRIVATE METHODS)",
		0xfe: "254 (RESERVED FOR PRIVATE METHODS)",
		0xff: "255 (NO ACCEPTABLE METHODS)",
	}
	for m, want := range tests {
		if got := MethodName(m); got != want {
			t.Errorf("MethodName(%#02x) = %q want %q", m, got, want)
		}
	}
}
