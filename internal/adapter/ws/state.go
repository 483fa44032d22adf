package ws

// State is a connection's lifecycle state. Transitions only move forward;
// Closed is terminal and must be reachable from every state, since it is
// the single cleanup point.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// canTransition reports whether a connection may move from one state to
// another. Every state may fail directly to Closed (abrupt transport
// failure); otherwise only the forward path is allowed.
func canTransition(from, to State) bool {
	if to == StateClosed {
		return from != StateClosed
	}
	switch from {
	case StateConnecting:
		return to == StateOpen || to == StateClosing
	case StateOpen:
		return to == StateClosing
	default:
		return false
	}
}
