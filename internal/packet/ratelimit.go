package packet

import (
	"context"
	"net"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited paces outbound packets of the wrapped transport to a fixed
// number of packets per second. Both Send and SendAndAwait consume a token.
type RateLimited struct {
	next    Transport
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a packets-per-second limit.
// A non-positive pps returns next unchanged.
func NewRateLimited(next Transport, pps float64) Transport {
	if pps <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(pps), 1),
	}
}

// SendAndAwait implements Transport.
func (r *RateLimited) SendAndAwait(ctx context.Context, dst net.IP, frame Frame, timeout time.Duration) (*Reply, uint16, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	return r.next.SendAndAwait(ctx, dst, frame, timeout)
}

// Send implements Transport.
func (r *RateLimited) Send(ctx context.Context, dst net.IP, frame Frame) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.next.Send(ctx, dst, frame)
}
