// Package packettest provides a scripted packet.Transport for tests.
package packettest

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
)

// Responder decides the reply to one awaited frame. Returning nil simulates
// a dropped probe.
type Responder func(dst net.IP, frame packet.Frame) *packet.Reply

// Sent is one frame handed to the stub.
type Sent struct {
	Dst     net.IP
	Frame   packet.Frame
	Awaited bool
	At      time.Time
}

// Stub is an in-memory Transport. It records every frame and answers awaited
// frames through Respond. It never touches the network.
type Stub struct {
	// Respond scripts replies. A nil Respond never replies.
	Respond Responder

	// Err, when set, is returned by every call instead of a reply.
	Err error

	mu       sync.Mutex
	sent     []Sent
	nextPort uint16
}

// NewStub creates a stub answering with respond.
func NewStub(respond Responder) *Stub {
	return &Stub{Respond: respond}
}

// SendAndAwait implements packet.Transport.
func (s *Stub) SendAndAwait(ctx context.Context, dst net.IP, frame packet.Frame, _ time.Duration) (*packet.Reply, uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	frame, id := s.record(dst, frame, true)
	if s.Err != nil {
		return nil, id, s.Err
	}
	if s.Respond == nil {
		return nil, id, nil
	}
	return s.Respond(dst, frame), id, nil
}

// Send implements packet.Transport.
func (s *Stub) Send(ctx context.Context, dst net.IP, frame packet.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.record(dst, frame, false)
	return s.Err
}

func (s *Stub) record(dst net.IP, frame packet.Frame, awaited bool) (packet.Frame, uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id uint16
	switch {
	case frame.TCP != nil:
		f := *frame.TCP
		if f.SrcPort == 0 {
			f.SrcPort = s.allocate()
		}
		frame = packet.Frame{TCP: &f}
		id = f.SrcPort
	case frame.ICMP != nil:
		e := *frame.ICMP
		if e.ID == 0 {
			e.ID = s.allocate()
		}
		frame = packet.Frame{ICMP: &e}
		id = e.ID
	}

	s.sent = append(s.sent, Sent{Dst: dst, Frame: frame, Awaited: awaited, At: time.Now()})
	return frame, id
}

func (s *Stub) allocate() uint16 {
	if s.nextPort == 0 {
		s.nextPort = packet.SourcePortStart
	}
	p := s.nextPort
	s.nextPort++
	return p
}

// Sent returns a copy of every frame handed to the stub, in order.
func (s *Stub) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sent, len(s.sent))
	copy(out, s.sent)
	return out
}

// Awaited returns how many frames were sent with SendAndAwait.
func (s *Stub) Awaited() int {
	n := 0
	for _, sent := range s.Sent() {
		if sent.Awaited {
			n++
		}
	}
	return n
}

// TCPWithFlags returns the TCP frames whose flags equal flags exactly.
func (s *Stub) TCPWithFlags(flags packet.Flags) []Sent {
	var out []Sent
	for _, sent := range s.Sent() {
		if sent.Frame.TCP != nil && sent.Frame.TCP.Flags == flags {
			out = append(out, sent)
		}
	}
	return out
}
