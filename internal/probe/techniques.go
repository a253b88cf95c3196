package probe

import (
	"fmt"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
)

var pingTechnique = technique[PingResult]{
	name:    TechniquePing,
	echo:    true,
	noReply: PingDownOrFiltered,
	classify: func(r *packet.Reply) PingResult {
		if r.ICMP != nil && r.ICMP.Type == packet.ICMPEchoReply {
			return PingAlive
		}
		return PingUnexpected
	},
}

var ackTechnique = technique[AckResult]{
	name:    TechniqueAck,
	flags:   packet.ACK,
	noReply: AckNoResponse,
	classify: func(r *packet.Reply) AckResult {
		if f, ok := tcpFlags(r); ok && f == packet.RST {
			return AckUnfiltered
		}
		if isFiltered(r) {
			return AckFiltered
		}
		return AckUnexpected
	},
}

func halfOpenTechnique(flags packet.Flags) technique[HalfOpenResult] {
	return technique[HalfOpenResult]{
		name:    TechniqueHalfOpen,
		flags:   flags,
		noReply: HalfOpenDropped,
		classify: func(r *packet.Reply) HalfOpenResult {
			f, ok := tcpFlags(r)
			switch {
			case !ok:
				return HalfOpenUnexpectedFlags
			case f == packet.RSTACK:
				return HalfOpenClosed
			case f == packet.SYNACK:
				return HalfOpenOpen
			}
			return HalfOpenUnexpected
		},
		open: func(r HalfOpenResult) bool { return r == HalfOpenOpen },
	}
}

var windowTechnique = technique[WindowResult]{
	name:    TechniqueWindow,
	flags:   packet.ACK,
	noReply: WindowNoResponse,
	classify: func(r *packet.Reply) WindowResult {
		if f, ok := tcpFlags(r); ok && f == packet.RST {
			if r.TCP.Window > 0 {
				return WindowOpen
			}
			return WindowClosed
		}
		return WindowUnexpected
	},
	open: func(r WindowResult) bool { return r == WindowOpen },
}

var connectTechnique = technique[ConnectResult]{
	name:    TechniqueConnect,
	flags:   packet.SYN,
	noReply: ConnectDropped,
	classify: func(r *packet.Reply) ConnectResult {
		f, _ := tcpFlags(r)
		switch {
		case r.TCP == nil:
			return ConnectUnexpected
		case f == packet.SYNACK:
			return ConnectOpen
		case f == packet.RSTACK:
			return ConnectClosed
		}
		return ConnectUnexpected
	},
	open: func(r ConnectResult) bool { return r == ConnectOpen },
}

// stealthResult is the shared shape of the Null, Xmas and FIN result types.
type stealthResult interface {
	~int
	fmt.Stringer
}

// stealthTechnique builds a probe whose only conclusive signal is a closed
// port answering RST|ACK.
func stealthTechnique[R stealthResult](name string, flags packet.Flags) technique[R] {
	return technique[R]{
		name:    name,
		flags:   flags,
		noReply: R(stealthOpenOrFiltered),
		classify: func(r *packet.Reply) R {
			if f, ok := tcpFlags(r); ok && f == packet.RSTACK {
				return R(stealthClosed)
			}
			return R(stealthUnexpected)
		},
	}
}

var (
	nullTechnique = stealthTechnique[NullResult](TechniqueNull, 0)
	xmasTechnique = stealthTechnique[XmasResult](TechniqueXmas, packet.FIN|packet.PSH|packet.URG)
	finTechnique  = stealthTechnique[FinResult](TechniqueFin, packet.FIN)
)
