package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// Defaults for BannerGrabber.
const (
	DefaultBannerTimeout = 3 * time.Second
	DefaultAttempts      = 2
	DefaultSettle        = 250 * time.Millisecond

	// MaxBannerSize is the most bytes read from a service.
	MaxBannerSize = 4096
)

var (
	// ErrNoBanner is returned when every probe message timed out without
	// the service sending anything.
	ErrNoBanner = errors.New("no banner received")

	// ErrUnsupportedProxy is returned for proxy URLs other than socks5.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme (only socks5 is supported)")
)

// DefaultProbeMessages are sent in turn, one per attempt. A bare newline is
// often enough to make a service greet.
var DefaultProbeMessages = [][]byte{
	[]byte("\n"),
	[]byte("HEAD / HTTP/1.1\r\n\r\n"),
	[]byte("SSH-2.0-OpenSSH\r\n"),
	[]byte("HELO example.com\r\n"),
}

// BannerGrabber connects to open ports, sends probe messages and matches
// the response against known product signatures.
type BannerGrabber struct {
	dialer     proxy.Dialer
	timeout    time.Duration
	settle     time.Duration
	attempts   int
	probes     [][]byte
	signatures []Signature
	logger     *slog.Logger
}

// BannerGrabberOption configures a BannerGrabber.
type BannerGrabberOption func(*BannerGrabber)

// WithDialer routes connections through dialer, e.g. a SOCKS5 proxy.
func WithDialer(dialer proxy.Dialer) BannerGrabberOption {
	return func(g *BannerGrabber) {
		g.dialer = dialer
	}
}

// WithBannerTimeout bounds the dial and the wait for the first byte.
func WithBannerTimeout(timeout time.Duration) BannerGrabberOption {
	return func(g *BannerGrabber) {
		g.timeout = timeout
	}
}

// WithSettle sets how long to keep reading after the first bytes arrive.
func WithSettle(settle time.Duration) BannerGrabberOption {
	return func(g *BannerGrabber) {
		g.settle = settle
	}
}

// WithAttempts sets how many probe messages are tried.
func WithAttempts(n int) BannerGrabberOption {
	return func(g *BannerGrabber) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithProbeMessages replaces the generic probe messages.
func WithProbeMessages(probes ...[]byte) BannerGrabberOption {
	return func(g *BannerGrabber) {
		g.probes = probes
	}
}

// WithSignatures replaces the signature table.
func WithSignatures(signatures []Signature) BannerGrabberOption {
	return func(g *BannerGrabber) {
		g.signatures = signatures
	}
}

// WithGrabberLogger sets a custom logger.
func WithGrabberLogger(logger *slog.Logger) BannerGrabberOption {
	return func(g *BannerGrabber) {
		g.logger = logger
	}
}

// NewBannerGrabber creates a grabber that dials directly unless WithDialer
// is given.
func NewBannerGrabber(opts ...BannerGrabberOption) *BannerGrabber {
	g := &BannerGrabber{
		dialer:     proxy.Direct,
		timeout:    DefaultBannerTimeout,
		settle:     DefaultSettle,
		attempts:   DefaultAttempts,
		probes:     DefaultProbeMessages,
		signatures: DefaultSignatures,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewProxyDialer returns a dialer for proxyURL. An empty URL yields a direct
// dialer.
func NewProxyDialer(proxyURL string) (proxy.Dialer, error) {
	if proxyURL == "" {
		return proxy.Direct, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxy, u.Scheme)
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
	}
	return d, nil
}

// Identify grabs a banner from address:port. Each attempt opens a fresh
// connection and sends the next probe message; only a read timeout moves
// on to the next attempt. A banner that matches no signature is still a
// success, reported as UnknownApplication.
func (g *BannerGrabber) Identify(ctx context.Context, address string, port int) (*model.Application, error) {
	target := net.JoinHostPort(address, strconv.Itoa(port))
	probes := g.probesFor(address, port)

	for attempt := 1; attempt <= g.attempts; attempt++ {
		probe := []byte("\n")
		if attempt <= len(probes) {
			probe = probes[attempt-1]
		}

		banner, err := g.grab(ctx, target, probe)
		if isTimeout(err) {
			g.logger.Warn("banner read timed out, retrying",
				"target", target,
				"attempt", attempt,
				"retries_left", g.attempts-attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to grab banner from %s: %w", target, err)
		}

		disclosure := InspectBanner(banner)
		app := &model.Application{
			Name:         MatchSignature(banner, g.signatures),
			Version:      disclosure.Version,
			OSHint:       disclosure.OS,
			Banner:       strings.TrimSpace(banner),
			ServerHeader: ServerHeader(banner),
			Attempts:     attempt,
		}
		if app.Name == "" {
			app.Name = UnknownApplication
		}
		g.logger.Debug("banner received", "target", target, "banner", app.Banner)
		g.logger.Info("application identified", "target", target, "application", app.Name)
		return app, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w from %s after %d attempts", ErrNoBanner, target, g.attempts)
}

// probesFor puts a protocol-specific opener in front of the generic probes
// for well-known ports.
func (g *BannerGrabber) probesFor(address string, port int) [][]byte {
	var first []byte
	switch port {
	case 80, 8000, 8080:
		first = []byte("HEAD / HTTP/1.1\r\nHost: " + address + "\r\nConnection: close\r\n\r\n")
	case 21:
		first = []byte("USER anonymous\r\n")
	case 25:
		first = []byte("HELO example.com\r\n")
	}
	if first == nil {
		return g.probes
	}
	return append([][]byte{first}, g.probes...)
}

// grab performs one connect, send and read cycle.
func (g *BannerGrabber) grab(ctx context.Context, target string, probe []byte) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	conn, err := g.dial(dialCtx, "tcp", target)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(g.timeout)); err != nil {
		return "", err
	}
	if _, err := conn.Write(probe); err != nil {
		return "", err
	}

	buf := make([]byte, MaxBannerSize)
	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("connection closed without a banner: %w", err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	// Keep reading briefly in case the banner arrives in several segments.
	for n < len(buf) {
		if err := conn.SetReadDeadline(time.Now().Add(g.settle)); err != nil {
			break
		}
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			break
		}
	}
	return strings.ToValidUTF8(string(buf[:n]), ""), nil
}

func (g *BannerGrabber) dial(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := g.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := g.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-resultCh; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.conn, r.err
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
