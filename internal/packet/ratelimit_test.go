package packet_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
	"github.com/mihaiandreineacsu/nmapclone/internal/packet/packettest"
)

func TestNewRateLimited(t *testing.T) {
	t.Parallel()

	t.Run("non-positive rate returns the transport unchanged", func(t *testing.T) {
		t.Parallel()

		stub := packettest.NewStub(nil)
		if got := packet.NewRateLimited(stub, 0); got != packet.Transport(stub) {
			t.Errorf("expected stub to be returned as is, got %T", got)
		}
	})

	t.Run("packets are paced", func(t *testing.T) {
		t.Parallel()

		stub := packettest.NewStub(nil)
		tr := packet.NewRateLimited(stub, 20)
		dst := net.IPv4(127, 0, 0, 1)

		start := time.Now()
		for range 5 {
			if err := tr.Send(context.Background(), dst, packet.TCPProbe(80, packet.SYN)); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
		}
		// First token is free, the next four wait 50ms each.
		if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
			t.Errorf("5 packets at 20 pps took %v, want >= 150ms", elapsed)
		}
		if len(stub.Sent()) != 5 {
			t.Errorf("sent %d frames, want 5", len(stub.Sent()))
		}
	})

	t.Run("canceled context stops waiting", func(t *testing.T) {
		t.Parallel()

		stub := packettest.NewStub(nil)
		tr := packet.NewRateLimited(stub, 1)
		dst := net.IPv4(127, 0, 0, 1)

		ctx, cancel := context.WithCancel(context.Background())
		if err := tr.Send(ctx, dst, packet.TCPProbe(80, packet.SYN)); err != nil {
			t.Fatalf("first Send() error = %v", err)
		}
		cancel()
		if _, _, err := tr.SendAndAwait(ctx, dst, packet.TCPProbe(80, packet.SYN), time.Second); err == nil {
			t.Error("expected error after cancel")
		}
	})
}
