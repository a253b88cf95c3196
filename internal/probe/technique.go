package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
)

// Technique names as they appear in logs and reports.
const (
	TechniquePing     = "ping"
	TechniqueAck      = "ack"
	TechniqueHalfOpen = "half-open"
	TechniqueWindow   = "window"
	TechniqueConnect  = "connect"
	TechniqueNull     = "null"
	TechniqueXmas     = "xmas"
	TechniqueFin      = "fin"
)

// filteringCodes are the ICMP destination unreachable codes that indicate a
// packet filter rather than a missing host or service.
var filteringCodes = []uint8{1, 2, 3, 9, 10, 13}

// technique is one "send flags X, classify by table Y" probe.
type technique[R fmt.Stringer] struct {
	name string

	// echo selects an ICMP echo request instead of a TCP segment.
	echo  bool
	flags packet.Flags

	// noReply is the result when the transport times out.
	noReply R

	// classify maps a received reply to a result.
	classify func(*packet.Reply) R

	// open reports results that are logged at info level.
	open func(R) bool
}

// exchange is the full record of one technique run.
type exchange[R fmt.Stringer] struct {
	result  R
	reply   *packet.Reply
	srcPort uint16
}

// run sends the technique's probe once and classifies the reply.
func run[R fmt.Stringer](ctx context.Context, p *Prober, t technique[R], dst net.IP, port uint16) (exchange[R], error) {
	frame := packet.TCPProbe(port, t.flags)
	if t.echo {
		frame = packet.EchoProbe()
	}

	reply, srcPort, err := p.transport.SendAndAwait(ctx, dst, frame, p.timeout)
	if err != nil {
		return exchange[R]{srcPort: srcPort}, fmt.Errorf("%s probe to %s: %w", t.name, hostPort(dst, port, t.echo), err)
	}

	result := t.noReply
	if reply != nil {
		result = t.classify(reply)
	}

	attrs := []any{
		"technique", t.name,
		"host", dst.String(),
		"result", result.String(),
	}
	if !t.echo {
		attrs = append(attrs, "port", port)
	}
	if reply != nil && reply.TCP != nil {
		attrs = append(attrs, "flags", reply.TCP.Flags.String(), "window", reply.TCP.Window)
	}
	level := slog.LevelDebug
	if t.open != nil && t.open(result) {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "probe classified", attrs...)

	return exchange[R]{result: result, reply: reply, srcPort: srcPort}, nil
}

func hostPort(dst net.IP, port uint16, echo bool) string {
	if echo {
		return dst.String()
	}
	return fmt.Sprintf("%s:%d", dst, port)
}

// tcpFlags returns the flags of a TCP reply.
func tcpFlags(r *packet.Reply) (packet.Flags, bool) {
	if r == nil || r.TCP == nil {
		return 0, false
	}
	return r.TCP.Flags, true
}

// isFiltered reports whether r is an ICMP unreachable that signals a filter.
func isFiltered(r *packet.Reply) bool {
	return r != nil && r.ICMP != nil &&
		r.ICMP.Type == packet.ICMPDestUnreachable &&
		slices.Contains(filteringCodes, r.ICMP.Code)
}
