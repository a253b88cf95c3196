package model

import "fmt"

// PortState is the final state of one port unit.
type PortState int

const (
	// StateClosed means the decision procedure concluded closed, or ran out
	// of techniques without concluding.
	StateClosed PortState = iota

	// StateOpen means one technique concluded open.
	StateOpen

	// StateError means a transport fault aborted the unit.
	StateError

	// StateSkipped means the unit never ran because the scan was canceled.
	StateSkipped
)

// String returns the lower-case name of the state.
func (s PortState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PortState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "closed":
		*s = StateClosed
	case "open":
		*s = StateOpen
	case "error":
		*s = StateError
	case "skipped":
		*s = StateSkipped
	default:
		return fmt.Errorf("unknown port state %q", text)
	}
	return nil
}
