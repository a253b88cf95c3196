package packet

import (
	"context"
	"net"
	"strings"
	"time"
)

// Flags is the TCP control flag byte.
type Flags uint8

// TCP control flags. Values are bit-exact with the wire format.
const (
	FIN Flags = 0x01
	SYN Flags = 0x02
	RST Flags = 0x04
	PSH Flags = 0x08
	ACK Flags = 0x10
	URG Flags = 0x20
	ECE Flags = 0x40
	CWR Flags = 0x80
)

// Common flag combinations seen in replies.
const (
	SYNACK Flags = SYN | ACK // 0x12
	RSTACK Flags = RST | ACK // 0x14
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FIN, "FIN"},
	{SYN, "SYN"},
	{RST, "RST"},
	{PSH, "PSH"},
	{ACK, "ACK"},
	{URG, "URG"},
	{ECE, "ECE"},
	{CWR, "CWR"},
}

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String renders the flags as "SYN|ACK". An empty flag byte renders as "NONE".
func (f Flags) String() string {
	if f == 0 {
		return "NONE"
	}
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// TCPFrame describes one outbound TCP segment.
// A zero SrcPort asks the transport to allocate a fresh ephemeral port.
type TCPFrame struct {
	SrcPort uint16
	DstPort uint16
	Flags   Flags
	Seq     uint32
	Ack     uint32
	Window  uint16
}

// ICMPEcho describes one outbound ICMP echo request.
// A zero ID asks the transport to allocate one.
type ICMPEcho struct {
	ID      uint16
	Seq     uint16
	Payload []byte
}

// Frame is the protocol framing of a single probe packet.
// Exactly one of TCP or ICMP is set.
type Frame struct {
	TCP  *TCPFrame
	ICMP *ICMPEcho
}

// TCPProbe returns a Frame for a TCP segment to dstPort with the given flags.
func TCPProbe(dstPort uint16, flags Flags) Frame {
	return Frame{TCP: &TCPFrame{DstPort: dstPort, Flags: flags}}
}

// EchoProbe returns a Frame for an ICMP echo request.
func EchoProbe() Frame {
	return Frame{ICMP: &ICMPEcho{Seq: 1}}
}

// TCPReply is the TCP header of a matched reply.
type TCPReply struct {
	SrcPort uint16
	DstPort uint16
	Flags   Flags
	Seq     uint32
	Ack     uint32
	Window  uint16
}

// ICMPReply is the ICMP header of a matched reply.
type ICMPReply struct {
	Type uint8
	Code uint8
}

// ICMP message types the probes care about.
const (
	ICMPEchoReply       uint8 = 0
	ICMPDestUnreachable uint8 = 3
)

// Reply is a packet received in answer to a probe.
// Exactly one of TCP or ICMP is set.
type Reply struct {
	// TTL is the IP time-to-live of the reply, 0 when unknown.
	TTL uint8

	TCP  *TCPReply
	ICMP *ICMPReply
}

// Transport sends probe packets and waits for their replies.
//
// A nil reply with a nil error means nothing matching arrived before the
// timeout. That is the expected signal for dropped or filtered probes, not a
// fault. Errors are reserved for OS-level failures such as missing raw
// socket privileges.
type Transport interface {
	// SendAndAwait transmits frame to dst and blocks until one matching
	// reply arrives or timeout elapses. It returns the source port (TCP) or
	// echo identifier (ICMP) used, so callers can follow up on the same flow.
	SendAndAwait(ctx context.Context, dst net.IP, frame Frame, timeout time.Duration) (*Reply, uint16, error)

	// Send transmits frame to dst without waiting for a reply.
	Send(ctx context.Context, dst net.IP, frame Frame) error
}
