package probe

// PingResult is the outcome of an ICMP echo probe.
type PingResult int

// Ping outcomes.
const (
	PingAlive PingResult = iota
	PingDownOrFiltered
	PingUnexpected
)

// String returns the human readable tag of the result.
func (r PingResult) String() string {
	switch r {
	case PingAlive:
		return "Alive"
	case PingDownOrFiltered:
		return "Down or Filtered"
	case PingUnexpected:
		return "Unexpected Response"
	}
	return unknownResult
}

// AckResult is the outcome of a TCP ACK probe.
type AckResult int

// ACK scan outcomes.
const (
	AckUnfiltered AckResult = iota
	AckFiltered
	AckNoResponse
	AckUnexpected
)

// String returns the human readable tag of the result.
func (r AckResult) String() string {
	switch r {
	case AckUnfiltered:
		return "Unfiltered"
	case AckFiltered:
		return "Filtered"
	case AckNoResponse:
		return tagFilteredNoResponse
	case AckUnexpected:
		return tagFilteredUnexpected
	}
	return unknownResult
}

// HalfOpenResult is the outcome of a half-open probe.
type HalfOpenResult int

// Half-open outcomes.
const (
	HalfOpenOpen HalfOpenResult = iota
	HalfOpenClosed
	HalfOpenDropped
	HalfOpenUnexpectedFlags
	HalfOpenUnexpected
)

// String returns the human readable tag of the result.
func (r HalfOpenResult) String() string {
	switch r {
	case HalfOpenOpen:
		return tagOpen
	case HalfOpenClosed:
		return tagClosed
	case HalfOpenDropped:
		return tagFilteredDropped
	case HalfOpenUnexpectedFlags:
		return "Unexpected TCP Flags"
	case HalfOpenUnexpected:
		return tagFilteredUnexpected
	}
	return unknownResult
}

// WindowResult is the outcome of a TCP window probe.
type WindowResult int

// Window scan outcomes.
const (
	WindowOpen WindowResult = iota
	WindowClosed
	WindowNoResponse
	WindowUnexpected
)

// String returns the human readable tag of the result.
func (r WindowResult) String() string {
	switch r {
	case WindowOpen:
		return tagOpen
	case WindowClosed:
		return tagClosed
	case WindowNoResponse:
		return tagFilteredNoResponse
	case WindowUnexpected:
		return tagFilteredUnexpected
	}
	return unknownResult
}

// ConnectResult is the outcome of a TCP connect probe.
type ConnectResult int

// Connect scan outcomes.
const (
	ConnectOpen ConnectResult = iota
	ConnectClosed
	ConnectDropped
	ConnectUnexpected
)

// String returns the human readable tag of the result.
func (r ConnectResult) String() string {
	switch r {
	case ConnectOpen:
		return tagOpen
	case ConnectClosed:
		return tagClosed
	case ConnectDropped:
		return tagFilteredDropped
	case ConnectUnexpected:
		return tagFilteredUnexpected
	}
	return unknownResult
}

// NullResult is the outcome of a TCP probe with no flags set.
type NullResult int

// Null scan outcomes.
const (
	NullOpenOrFiltered NullResult = iota
	NullClosed
	NullUnexpected
)

// String returns the human readable tag of the result.
func (r NullResult) String() string { return stealthTag(int(r)) }

// XmasResult is the outcome of a FIN|PSH|URG probe.
type XmasResult int

// Xmas scan outcomes.
const (
	XmasOpenOrFiltered XmasResult = iota
	XmasClosed
	XmasUnexpected
)

// String returns the human readable tag of the result.
func (r XmasResult) String() string { return stealthTag(int(r)) }

// FinResult is the outcome of a bare FIN probe.
type FinResult int

// FIN scan outcomes.
const (
	FinOpenOrFiltered FinResult = iota
	FinClosed
	FinUnexpected
)

// String returns the human readable tag of the result.
func (r FinResult) String() string { return stealthTag(int(r)) }

const (
	tagOpen               = "Open"
	tagClosed             = "Closed"
	tagFilteredDropped    = "Filtered or Dropped"
	tagFilteredNoResponse = "Filtered or No Response"
	tagFilteredUnexpected = "Filtered or Unexpected Response"
	unknownResult         = "Unknown"
)

// Null, Xmas and FIN share one outcome layout.
const (
	stealthOpenOrFiltered = iota
	stealthClosed
	stealthUnexpected
)

func stealthTag(v int) string {
	switch v {
	case stealthOpenOrFiltered:
		return "Open or Filtered"
	case stealthClosed:
		return tagClosed
	case stealthUnexpected:
		return tagFilteredUnexpected
	}
	return unknownResult
}
