package packet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxSockets caps how many raw sockets probes may hold at once.
const DefaultMaxSockets = 256

// tcpProbeSockets is the number of sockets a TCP probe holds while it
// waits: one raw TCP socket for the reply and one ICMP socket for errors.
const tcpProbeSockets = 2

// readBufferSize fits any IPv4 datagram delivered to a raw socket.
const readBufferSize = 65535

// RawTransport sends probes over raw IPv4 sockets and matches replies by
// flow: a TCP reply must come from the target port back to our source port,
// an ICMP error must quote our original datagram.
//
// Each SendAndAwait opens its own sockets so concurrent probes never share a
// read loop. A weighted semaphore bounds the number of open sockets: a TCP
// probe weighs two, everything else one.
type RawTransport struct {
	ports  *Ports
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// RawOption configures a RawTransport.
type RawOption func(*RawTransport)

// WithMaxSockets caps the raw sockets open at once. Values below two are
// raised to two so a TCP probe can still run.
func WithMaxSockets(n int) RawOption {
	return func(t *RawTransport) {
		if n > 0 {
			t.sem = semaphore.NewWeighted(int64(max(n, tcpProbeSockets)))
		}
	}
}

// WithTransportLogger sets the logger for packet-level debug output.
func WithTransportLogger(logger *slog.Logger) RawOption {
	return func(t *RawTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewRawTransport creates a raw socket transport.
// Sockets are opened lazily, so privilege problems surface on first use as
// ErrNoPrivilege.
func NewRawTransport(opts ...RawOption) *RawTransport {
	t := &RawTransport{
		ports:  NewPorts(),
		sem:    semaphore.NewWeighted(DefaultMaxSockets),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SendAndAwait implements Transport.
func (t *RawTransport) SendAndAwait(ctx context.Context, dst net.IP, frame Frame, timeout time.Duration) (*Reply, uint16, error) {
	dst4 := dst.To4()
	if dst4 == nil {
		return nil, 0, ErrIPv6Unsupported
	}

	weight := int64(1)
	if frame.TCP != nil {
		weight = tcpProbeSockets
	}
	release, err := t.hold(ctx, weight)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	switch {
	case frame.TCP != nil:
		return t.awaitTCP(ctx, dst4, *frame.TCP, timeout)
	case frame.ICMP != nil:
		return t.awaitEcho(ctx, dst4, *frame.ICMP, timeout)
	default:
		return nil, 0, ErrEmptyFrame
	}
}

// Send implements Transport.
func (t *RawTransport) Send(ctx context.Context, dst net.IP, frame Frame) error {
	dst4 := dst.To4()
	if dst4 == nil {
		return ErrIPv6Unsupported
	}
	release, err := t.hold(ctx, 1)
	if err != nil {
		return err
	}
	defer release()

	switch {
	case frame.TCP != nil:
		conn, err := openTCP()
		if err != nil {
			return err
		}
		defer conn.Close()

		f := *frame.TCP
		if f.SrcPort == 0 {
			f.SrcPort = t.ports.Next()
		}
		return t.writeTCP(ctx, conn, dst4, f)
	case frame.ICMP != nil:
		conn, err := openICMP()
		if err != nil {
			return err
		}
		defer conn.Close()

		e := *frame.ICMP
		if e.ID == 0 {
			e.ID = uint16(rand.Uint32N(1 << 16))
		}
		return writeEcho(conn, dst4, e)
	default:
		return ErrEmptyFrame
	}
}

// hold waits until weight sockets may be opened and returns the function
// that gives them back.
func (t *RawTransport) hold(ctx context.Context, weight int64) (func(), error) {
	if err := t.sem.Acquire(ctx, weight); err != nil {
		return nil, err
	}
	return func() { t.sem.Release(weight) }, nil
}

func (t *RawTransport) awaitTCP(ctx context.Context, dst net.IP, f TCPFrame, timeout time.Duration) (*Reply, uint16, error) {
	if f.SrcPort == 0 {
		f.SrcPort = t.ports.Next()
	}
	if f.Seq == 0 && f.Flags.Has(SYN) {
		f.Seq = rand.Uint32()
	}

	tcpConn, err := openTCP()
	if err != nil {
		return nil, f.SrcPort, err
	}
	defer tcpConn.Close()

	icmpConn, err := openICMP()
	if err != nil {
		return nil, f.SrcPort, err
	}
	defer icmpConn.Close()

	if err := t.writeTCP(ctx, tcpConn, dst, f); err != nil {
		return nil, f.SrcPort, err
	}

	reply, err := await(ctx, timeout,
		func(ctx context.Context) (*Reply, error) {
			return readTCP(ctx, tcpConn, dst, f.DstPort, f.SrcPort)
		},
		func(ctx context.Context) (*Reply, error) {
			return readICMP(ctx, icmpConn, func(ev *icmpEvent) bool {
				return matchQuotedTCP(ev, dst, f.DstPort, f.SrcPort)
			})
		},
	)
	return reply, f.SrcPort, err
}

func (t *RawTransport) awaitEcho(ctx context.Context, dst net.IP, e ICMPEcho, timeout time.Duration) (*Reply, uint16, error) {
	if e.ID == 0 {
		e.ID = uint16(rand.Uint32N(1 << 16))
	}

	conn, err := openICMP()
	if err != nil {
		return nil, e.ID, err
	}
	defer conn.Close()

	if err := writeEcho(conn, dst, e); err != nil {
		return nil, e.ID, err
	}

	reply, err := await(ctx, timeout, func(ctx context.Context) (*Reply, error) {
		return readICMP(ctx, conn, func(ev *icmpEvent) bool {
			return matchEcho(ev, dst, e.ID)
		})
	})
	return reply, e.ID, err
}

func (t *RawTransport) writeTCP(ctx context.Context, conn *ipv4.RawConn, dst net.IP, f TCPFrame) error {
	src, err := sourceIP(ctx, dst)
	if err != nil {
		return err
	}
	seg, err := EncodeTCP(src, dst, f)
	if err != nil {
		return err
	}

	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(seg),
		TTL:      64,
		Protocol: int(ipv4ProtocolTCP),
		Src:      src,
		Dst:      dst,
	}
	if err := conn.WriteTo(h, seg, nil); err != nil {
		return fmt.Errorf("failed to send %s to %s:%d: %w", f.Flags, dst, f.DstPort, classify(err))
	}
	t.logger.Debug("sent tcp probe",
		"dst", dst.String(),
		"dport", f.DstPort,
		"sport", f.SrcPort,
		"flags", f.Flags.String())
	return nil
}

func writeEcho(conn *icmp.PacketConn, dst net.IP, e ICMPEcho) error {
	b, err := EncodeEcho(e)
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(b, &net.IPAddr{IP: dst}); err != nil {
		return fmt.Errorf("failed to send echo request to %s: %w", dst, classify(err))
	}
	return nil
}

// ipv4ProtocolTCP is the IANA protocol number of TCP.
const ipv4ProtocolTCP = 6

func openTCP() (*ipv4.RawConn, error) {
	c, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("failed to open raw tcp socket: %w", classify(err))
	}
	rc, err := ipv4.NewRawConn(c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open raw tcp socket: %w", classify(err))
	}
	return rc, nil
}

func openICMP() (*icmp.PacketConn, error) {
	c, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("failed to open raw icmp socket: %w", classify(err))
	}
	// TTL control messages are best effort; without them replies carry TTL 0.
	_ = c.IPv4PacketConn().SetControlMessage(ipv4.FlagTTL, true)
	return c, nil
}

// classify maps permission failures to ErrNoPrivilege.
func classify(err error) error {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return fmt.Errorf("%w: %v", ErrNoPrivilege, err)
	}
	return err
}

// sourceIP picks the local address the kernel would route dst through.
// Connecting a UDP socket sends no packets.
func sourceIP(ctx context.Context, dst net.IP) (net.IP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", net.JoinHostPort(dst.String(), "9"))
	if err != nil {
		return nil, fmt.Errorf("no route to %s: %w", dst, err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return nil, fmt.Errorf("no IPv4 source address for %s", dst)
	}
	return addr.IP.To4(), nil
}

type readFunc func(ctx context.Context) (*Reply, error)

// await runs readers concurrently until one yields a reply or the timeout
// elapses. The first reply wins.
func await(ctx context.Context, timeout time.Duration, readers ...readFunc) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		reply *Reply
		err   error
	}
	results := make(chan outcome, len(readers))
	for _, read := range readers {
		go func() {
			reply, err := read(ctx)
			results <- outcome{reply: reply, err: err}
		}()
	}

	var firstErr error
	for range readers {
		o := <-results
		if o.reply != nil {
			return o.reply, nil
		}
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}
	}
	return nil, firstErr
}

// deadlineConn is the read-side surface shared by the raw conns.
type deadlineConn interface {
	SetReadDeadline(t time.Time) error
}

// armDeadline ties the read deadline of conn to ctx. The returned stop
// function must be called once reading ends.
func armDeadline(ctx context.Context, conn deadlineConn) func() bool {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	return context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
}

// readDone converts a read error into the await result. Timeouts are a
// silent no-reply; explicit cancellation is reported.
func readDone(ctx context.Context, err error) (*Reply, error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, nil
	}
	return nil, err
}

func readTCP(ctx context.Context, conn *ipv4.RawConn, dst net.IP, dstPort, srcPort uint16) (*Reply, error) {
	stop := armDeadline(ctx, conn)
	defer stop()

	buf := make([]byte, readBufferSize)
	for {
		h, payload, _, err := conn.ReadFrom(buf)
		if err != nil {
			return readDone(ctx, err)
		}
		if h == nil || !h.Src.Equal(dst) {
			continue
		}
		seg, err := DecodeTCP(payload)
		if err != nil || !matchTCP(h, seg, dst, dstPort, srcPort) {
			continue
		}
		return &Reply{TTL: uint8(h.TTL), TCP: seg}, nil
	}
}

func readICMP(ctx context.Context, conn *icmp.PacketConn, match func(*icmpEvent) bool) (*Reply, error) {
	pc := conn.IPv4PacketConn()
	stop := armDeadline(ctx, pc)
	defer stop()

	buf := make([]byte, readBufferSize)
	for {
		n, cm, _, err := pc.ReadFrom(buf)
		if err != nil {
			return readDone(ctx, err)
		}
		ev, err := parseICMP(buf[:n])
		if err != nil || !match(ev) {
			continue
		}
		reply := &Reply{ICMP: &ICMPReply{Type: ev.reply.Type, Code: ev.reply.Code}}
		if cm != nil {
			reply.TTL = uint8(cm.TTL)
		}
		return reply, nil
	}
}

var _ Transport = (*RawTransport)(nil)
