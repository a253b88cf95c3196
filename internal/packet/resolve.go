package packet

import (
	"context"
	"fmt"
	"net"
)

// ResolveIPv4 turns a hostname or address literal into a single IPv4
// address. The first IPv4 answer wins; IPv6-only targets are rejected.
func ResolveIPv4(ctx context.Context, address string) (net.IP, error) {
	if ip := net.ParseIP(address); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%s: %w", address, ErrIPv6Unsupported)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", address, err)
	}

	sawV6 := false
	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			return ip4, nil
		}
		sawV6 = true
	}
	if sawV6 {
		return nil, fmt.Errorf("%s: %w", address, ErrIPv6Unsupported)
	}
	return nil, fmt.Errorf("%s: %w", address, ErrNoAddress)
}
