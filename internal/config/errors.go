package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no address is given.
	ErrNoTarget = errors.New("no target specified: use -a/--address")

	// ErrNoPorts is returned when no port range expression is given.
	ErrNoPorts = errors.New("no ports specified: use -p/--ports")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRSTDelay is returned when the RST delay is negative.
	ErrInvalidRSTDelay = errors.New("invalid rst delay: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxSockets is returned when the raw socket cap cannot fit a
	// single TCP probe.
	ErrInvalidMaxSockets = errors.New("invalid max sockets: must be at least 2")

	// ErrInvalidSignature is returned when a profile signature lacks a
	// pattern or a name.
	ErrInvalidSignature = errors.New("invalid signature: pattern and name are required")

	// ErrInvalidRate is returned when the packet rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must be non-negative")

	// ErrInvalidHalfOpenFlag is returned when the half-open flag is neither
	// "syn" nor "ack".
	ErrInvalidHalfOpenFlag = errors.New(`invalid half-open flag: must be "syn" or "ack"`)

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
