package proxy

// State is the position of a connection in the handler pipeline.
type State int

const (
	StateGreeting State = iota
	StateNegotiated
	StateCommandRead
	StateConnecting
	StateConnected
	StateRelaying
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateNegotiated:
		return "negotiated"
	case StateCommandRead:
		return "command-read"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
