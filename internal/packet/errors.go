package packet

import "errors"

var (
	// ErrNoPrivilege is returned when raw sockets cannot be opened because the
	// process lacks root or CAP_NET_RAW.
	ErrNoPrivilege = errors.New("raw socket privileges required (run as root or grant CAP_NET_RAW)")

	// ErrIPv6Unsupported is returned when a target only resolves to IPv6.
	ErrIPv6Unsupported = errors.New("IPv6 targets are not supported")

	// ErrNoAddress is returned when a target resolves to no usable address.
	ErrNoAddress = errors.New("no IPv4 address found for target")

	// ErrEmptyFrame is returned when a Frame carries neither TCP nor ICMP.
	ErrEmptyFrame = errors.New("frame has no protocol layer")
)
