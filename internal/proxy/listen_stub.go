//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package proxy

import (
	"errors"
	"syscall"
)

func reuseControl(reusePort bool) (func(network, address string, c syscall.RawConn) error, error) {
	if reusePort {
		return nil, errors.New("SO_REUSEPORT is not supported on this platform")
	}
	return nil, nil
}
