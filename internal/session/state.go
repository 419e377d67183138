package session

import "fmt"

// State is the availability state of a session.
//
//	Unchecked   ──check──▶ Checking
//	Unavailable ──check──▶ Checking
//	Available   ──check──▶ Checking
//	Checking    ──any probe ok──▶ Available(provider)
//	Checking    ──all failed───▶ Unavailable
type State int

const (
	StateUnchecked State = iota
	StateChecking
	StateAvailable
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateChecking:
		return "checking"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
