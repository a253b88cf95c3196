package packettest

import (
	"net"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
)

// TCP builds a TCP reply with the given flags and window, TTL 64.
func TCP(flags packet.Flags, window uint16) *packet.Reply {
	return &packet.Reply{TTL: 64, TCP: &packet.TCPReply{Flags: flags, Window: window}}
}

// ICMP builds an ICMP reply of the given type and code, TTL 64.
func ICMP(typ, code uint8) *packet.Reply {
	return &packet.Reply{TTL: 64, ICMP: &packet.ICMPReply{Type: typ, Code: code}}
}

// WithTTL returns a copy of r with its TTL replaced.
func WithTTL(r *packet.Reply, ttl uint8) *packet.Reply {
	if r == nil {
		return nil
	}
	c := *r
	c.TTL = ttl
	return &c
}

// Script answers each probe kind with a fixed reply.
// Unset entries never reply.
type Script struct {
	// Echo answers ICMP echo requests.
	Echo *packet.Reply

	// TCP answers TCP probes keyed by their exact flags.
	TCP map[packet.Flags]*packet.Reply
}

// Responder returns a Responder that follows the script. Replies to TCP
// probes are addressed back to the probe's source port.
func (s Script) Responder() Responder {
	return func(_ net.IP, frame packet.Frame) *packet.Reply {
		switch {
		case frame.ICMP != nil:
			return s.Echo
		case frame.TCP != nil:
			r, ok := s.TCP[frame.TCP.Flags]
			if !ok || r == nil {
				return nil
			}
			c := *r
			if c.TCP != nil {
				seg := *c.TCP
				seg.SrcPort = frame.TCP.DstPort
				seg.DstPort = frame.TCP.SrcPort
				c.TCP = &seg
			}
			return &c
		}
		return nil
	}
}

// OpenPort scripts a listening port with a permissive firewall: echo
// answered, SYN answered with SYN-ACK, bare ACK and FIN answered with RST.
func OpenPort() Script {
	return Script{
		Echo: ICMP(packet.ICMPEchoReply, 0),
		TCP: map[packet.Flags]*packet.Reply{
			packet.SYN: TCP(packet.SYNACK, 29200),
			packet.ACK: TCP(packet.RST, 0),
		},
	}
}

// ClosedPort scripts a closed port: every TCP probe is answered with RST-ACK.
func ClosedPort() Script {
	rst := TCP(packet.RSTACK, 0)
	return Script{
		Echo: ICMP(packet.ICMPEchoReply, 0),
		TCP: map[packet.Flags]*packet.Reply{
			packet.SYN:                           rst,
			packet.ACK:                           TCP(packet.RST, 0),
			0:                                    rst,
			packet.FIN:                           rst,
			packet.FIN | packet.PSH | packet.URG: rst,
		},
	}
}
