package probe

import (
	"context"
	"fmt"
	"net"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
)

// NoResponse is reported as the OS when the fingerprint SYN goes unanswered.
const NoResponse = "No response (Host might be down or filtered)"

// OSFingerprint is a best-effort OS guess from the TTL and window of a
// SYN reply. It is a heuristic, not an identification.
type OSFingerprint struct {
	TTL        int    `json:"ttl"`
	WindowSize int    `json:"window_size"`
	Family     string `json:"family,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Responded  bool   `json:"responded"`
}

// OS renders the guess as "Family (Detail)".
func (f *OSFingerprint) OS() string {
	if !f.Responded {
		return NoResponse
	}
	return fmt.Sprintf("%s (%s)", f.Family, f.Detail)
}

// familyByTTL maps an initial TTL bucket to an OS family.
func familyByTTL(ttl int) string {
	switch {
	case ttl <= 64:
		return "Linux/Unix"
	case ttl <= 128:
		return "Windows"
	default:
		return "Cisco or Solaris"
	}
}

// detailByWindow refines the guess with well-known default window sizes.
func detailByWindow(window int) string {
	switch window {
	case 5840:
		return "Linux"
	case 8192:
		return "Windows XP/2000"
	case 65535:
		return "Windows 7/Server 2008 R2"
	}
	return "Unknown OS"
}

// Fingerprint sends one SYN to an open port and classifies the reply.
// It returns a fingerprint with Responded false when nothing answers and
// nil when the reply carries no TCP header.
func (p *Prober) Fingerprint(ctx context.Context, dst net.IP, port uint16) (*OSFingerprint, error) {
	reply, _, err := p.transport.SendAndAwait(ctx, dst, packet.TCPProbe(port, packet.SYN), p.timeout)
	if err != nil {
		return nil, fmt.Errorf("fingerprint probe to %s:%d: %w", dst, port, err)
	}
	if reply == nil {
		p.logger.Debug("fingerprint got no response", "host", dst.String(), "port", port)
		return &OSFingerprint{}, nil
	}
	if reply.TCP == nil {
		return nil, nil
	}

	fp := &OSFingerprint{
		TTL:        int(reply.TTL),
		WindowSize: int(reply.TCP.Window),
		Family:     familyByTTL(int(reply.TTL)),
		Detail:     detailByWindow(int(reply.TCP.Window)),
		Responded:  true,
	}
	p.logger.Info("os fingerprint",
		"host", dst.String(),
		"port", port,
		"ttl", fp.TTL,
		"window", fp.WindowSize,
		"os", fp.OS())
	return fp, nil
}
