//go:build !windows

package packet

import (
	"net"
	"os"
)

// CanOpenRawSocket reports whether the process may open raw IPv4 sockets.
// Root always can; otherwise a probe socket is opened to detect CAP_NET_RAW.
func CanOpenRawSocket() bool {
	if os.Geteuid() == 0 {
		return true
	}
	c, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
	if err != nil {
		return false
	}
	c.Close()
	return true
}
