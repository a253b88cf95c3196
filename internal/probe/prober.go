package probe

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
)

// Default timing.
const (
	// DefaultTimeout bounds the wait for a single reply.
	DefaultTimeout = 2 * time.Second

	// DefaultRSTDelay is the pause between a half-open SYN|ACK and the RST
	// that tears the half-open connection down.
	DefaultRSTDelay = 2 * time.Second
)

// Prober runs the individual probe techniques against one host.
// It holds no per-probe state and is safe for concurrent use.
type Prober struct {
	transport     packet.Transport
	logger        *slog.Logger
	timeout       time.Duration
	rstDelay      time.Duration
	halfOpenFlags packet.Flags
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger for classification events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimeout sets how long each probe waits for a reply.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithRSTDelay sets the pause before the half-open teardown RST.
// Zero sends the RST immediately.
func WithRSTDelay(delay time.Duration) Option {
	return func(p *Prober) {
		if delay >= 0 {
			p.rstDelay = delay
		}
	}
}

// WithHalfOpenFlags sets the flags of the half-open probe, packet.SYN by
// default. packet.ACK reproduces scanners that probe half-open with ACK.
func WithHalfOpenFlags(flags packet.Flags) Option {
	return func(p *Prober) {
		p.halfOpenFlags = flags
	}
}

// New creates a Prober sending through transport.
func New(transport packet.Transport, opts ...Option) *Prober {
	p := &Prober{
		transport:     transport,
		logger:        slog.Default(),
		timeout:       DefaultTimeout,
		rstDelay:      DefaultRSTDelay,
		halfOpenFlags: packet.SYN,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping sends an ICMP echo request to dst.
func (p *Prober) Ping(ctx context.Context, dst net.IP) (PingResult, error) {
	ex, err := run(ctx, p, pingTechnique, dst, 0)
	return ex.result, err
}

// Ack sends a bare ACK to detect stateful filtering. An unfiltered port
// answers with RST whether it is open or closed.
func (p *Prober) Ack(ctx context.Context, dst net.IP, port uint16) (AckResult, error) {
	ex, err := run(ctx, p, ackTechnique, dst, port)
	return ex.result, err
}

// HalfOpen probes for a SYN|ACK without completing the handshake. When the
// port answers SYN|ACK it waits for the RST delay and sends exactly one bare
// RST from the same source port.
func (p *Prober) HalfOpen(ctx context.Context, dst net.IP, port uint16) (HalfOpenResult, error) {
	ex, err := run(ctx, p, halfOpenTechnique(p.halfOpenFlags), dst, port)
	if err != nil {
		return ex.result, err
	}
	if ex.result == HalfOpenOpen {
		p.resetAfter(ctx, dst, port, ex.srcPort, p.rstDelay)
	}
	return ex.result, nil
}

// Window sends a bare ACK and reads the window of the RST reply. Some stacks
// advertise a non-zero window on RSTs from open ports.
func (p *Prober) Window(ctx context.Context, dst net.IP, port uint16) (WindowResult, error) {
	ex, err := run(ctx, p, windowTechnique, dst, port)
	return ex.result, err
}

// Connect sends a SYN and, on SYN|ACK, completes the handshake with an ACK
// and immediately tears it down with an RST.
func (p *Prober) Connect(ctx context.Context, dst net.IP, port uint16) (ConnectResult, error) {
	ex, err := run(ctx, p, connectTechnique, dst, port)
	if err != nil {
		return ex.result, err
	}
	if ex.result != ConnectOpen {
		return ex.result, nil
	}

	synack := ex.reply.TCP
	seq, ack := synack.Ack, synack.Seq+1
	for _, flags := range []packet.Flags{packet.ACK, packet.RST} {
		frame := packet.Frame{TCP: &packet.TCPFrame{
			SrcPort: ex.srcPort,
			DstPort: port,
			Flags:   flags,
			Seq:     seq,
			Ack:     ack,
		}}
		if err := p.transport.Send(context.WithoutCancel(ctx), dst, frame); err != nil {
			p.logger.Warn("failed to tear down handshake",
				"host", dst.String(),
				"port", port,
				"flags", flags.String(),
				"error", err)
			break
		}
	}
	return ex.result, nil
}

// Null sends a segment with no flags set.
func (p *Prober) Null(ctx context.Context, dst net.IP, port uint16) (NullResult, error) {
	ex, err := run(ctx, p, nullTechnique, dst, port)
	return ex.result, err
}

// Xmas sends a segment with FIN, PSH and URG set.
func (p *Prober) Xmas(ctx context.Context, dst net.IP, port uint16) (XmasResult, error) {
	ex, err := run(ctx, p, xmasTechnique, dst, port)
	return ex.result, err
}

// Fin sends a bare FIN.
func (p *Prober) Fin(ctx context.Context, dst net.IP, port uint16) (FinResult, error) {
	ex, err := run(ctx, p, finTechnique, dst, port)
	return ex.result, err
}

// resetAfter waits delay, or until ctx ends, then sends a bare RST from
// srcPort. The RST is sent even when ctx was canceled during the wait.
func (p *Prober) resetAfter(ctx context.Context, dst net.IP, port, srcPort uint16, delay time.Duration) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	frame := packet.Frame{TCP: &packet.TCPFrame{SrcPort: srcPort, DstPort: port, Flags: packet.RST}}
	if err := p.transport.Send(context.WithoutCancel(ctx), dst, frame); err != nil {
		p.logger.Warn("failed to send RST",
			"host", dst.String(),
			"port", port,
			"sport", srcPort,
			"error", err)
		return
	}
	p.logger.Debug("sent RST to close half-open connection",
		"host", dst.String(),
		"port", port,
		"sport", srcPort)
}
