package dialer

import "errors"

var (
	// ErrResolution marks a destination name that resolved to no usable
	// address.
	ErrResolution = errors.New("resolution error")

	// ErrConnect marks a failed outbound connect.
	ErrConnect = errors.New("connect error")
)
