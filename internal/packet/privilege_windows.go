//go:build windows

package packet

// CanOpenRawSocket reports whether the process may open raw IPv4 sockets.
// Windows does not allow raw TCP sends, so it is always false.
func CanOpenRawSocket() bool {
	return false
}
