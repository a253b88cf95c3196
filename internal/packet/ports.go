package packet

import (
	"math/rand/v2"
	"sync/atomic"
)

// Source port range used for probes, [SourcePortStart, SourcePortEnd).
// It sits above the Linux default ip_local_port_range (32768-60999) so a
// probe never shares a 4-tuple with a kernel-owned connection. Hosts with a
// wider local range, such as the 49152-65535 default of Windows and the
// BSDs, can still collide.
const (
	SourcePortStart = 61000
	SourcePortEnd   = 65536
)

// Ports hands out probe source ports round-robin from a random starting
// point. It is safe for concurrent use; two calls never return the same port
// until the range wraps.
type Ports struct {
	next atomic.Uint32
}

// NewPorts creates an allocator with a random starting offset.
func NewPorts() *Ports {
	p := &Ports{}
	p.next.Store(rand.Uint32N(SourcePortEnd - SourcePortStart))
	return p
}

// Next returns the next source port in [SourcePortStart, SourcePortEnd).
func (p *Ports) Next() uint16 {
	n := p.next.Add(1)
	return uint16(SourcePortStart + n%(SourcePortEnd-SourcePortStart))
}
