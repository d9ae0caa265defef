//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package proxy

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func reuseControl(reusePort bool) (func(network, address string, c syscall.RawConn) error, error) {
	return func(_, _ string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			if ctrlErr == nil && reusePort {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}
		})
		if err != nil {
			return err
		}
		return ctrlErr
	}, nil
}
