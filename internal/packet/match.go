package packet

import (
	"net"

	"golang.org/x/net/ipv4"
)

// matchTCP reports whether a segment read from the raw TCP socket answers
// the probe sent from srcPort to dst:dstPort.
func matchTCP(h *ipv4.Header, seg *TCPReply, dst net.IP, dstPort, srcPort uint16) bool {
	if h == nil || seg == nil || !h.Src.Equal(dst) {
		return false
	}
	return seg.SrcPort == dstPort && seg.DstPort == srcPort
}

// matchQuotedTCP reports whether an ICMP error quotes the TCP probe sent
// from srcPort to dst:dstPort.
func matchQuotedTCP(ev *icmpEvent, dst net.IP, dstPort, srcPort uint16) bool {
	q := ev.quoted
	if q == nil || !q.dst.Equal(dst) || q.protocol != ipv4ProtocolTCP {
		return false
	}
	return q.srcPort() == srcPort && q.dstPort() == dstPort
}

// matchEcho reports whether an ICMP message answers the echo request with
// identifier id sent to dst: either the echo reply itself or an error that
// quotes the request.
func matchEcho(ev *icmpEvent, dst net.IP, id uint16) bool {
	if ev.isEcho {
		return ev.reply.Type == ICMPEchoReply && ev.echoID == int(id)
	}
	if ev.quoted == nil || !ev.quoted.dst.Equal(dst) {
		return false
	}
	quotedID, ok := ev.quoted.echoID()
	return ok && quotedID == id
}
