package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout is how long each probe waits for a reply. Two seconds
	// covers a LAN round trip with room to spare while keeping a silent
	// port from stalling its unit for long.
	DefaultTimeout = 2 * time.Second

	// DefaultRSTDelay is the pause between a SYN+ACK and the RST that
	// tears down a half-open probe.
	DefaultRSTDelay = 2 * time.Second

	// DefaultConcurrency is the number of port units in flight at once.
	DefaultConcurrency = 100

	// DefaultMaxSockets caps the raw sockets open at once across all units.
	// A TCP probe holds two (TCP and ICMP), an echo probe one.
	DefaultMaxSockets = 256

	// MinMaxSockets is the smallest cap that still lets a TCP probe run.
	MinMaxSockets = 2

	// DefaultBannerTimeout bounds each banner read during application
	// identification.
	DefaultBannerTimeout = 3 * time.Second

	// DefaultBannerAttempts is how many probe messages are tried before an
	// open port is reported as unidentified.
	DefaultBannerAttempts = 2

	// DefaultHalfOpenFlag is the probe flag of the half-open technique.
	DefaultHalfOpenFlag = HalfOpenSYN

	// AppName is the application name used for XDG directory paths.
	AppName = "nmapclone"
)

// Accepted values for Config.HalfOpenFlag.
const (
	HalfOpenSYN = "syn"
	HalfOpenACK = "ack"
)

// Config holds all options of a single scan. It is populated from CLI flags
// and the optional profile file, then passed down by value; nothing reads it
// from global state.
type Config struct {
	// Address is the host name or IPv4 literal to scan.
	Address string

	// PortExpression is the raw port range expression ("443", "20-25" or "-").
	// It is parsed by the portrange package after validation.
	PortExpression string

	// Timeout is the per-probe reply timeout.
	Timeout time.Duration

	// RSTDelay is the wait before the teardown RST of a half-open probe.
	RSTDelay time.Duration

	// Concurrency is the number of port units processed in parallel.
	Concurrency int

	// MaxSockets caps the raw sockets open at once, independently of
	// Concurrency.
	MaxSockets int

	// Rate caps outbound probe packets per second. Zero means unlimited.
	Rate float64

	// HalfOpenFlag selects the flag sent by the half-open probe: "syn" or "ack".
	HalfOpenFlag string

	// OSDetect enables the TTL/window fingerprint on open ports.
	OSDetect bool

	// Identify enables banner grabbing on open ports.
	Identify bool

	// Proxy is an optional SOCKS5 URL used for banner grabbing connections.
	// Raw probes never go through it.
	Proxy string

	// BannerTimeout bounds each banner read.
	BannerTimeout time.Duration

	// BannerAttempts is the number of probe messages tried per open port.
	BannerAttempts int

	// Signatures are checked before the built-in banner signatures.
	Signatures []Signature

	// ProbeMessages replace the built-in generic banner probe messages.
	ProbeMessages []string

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path; empty means stdout.
	ReportFile string

	// ConfigFilePath is the explicit profile file path. If empty, .nmapclone is
	// searched in the current directory and then in the home directory.
	ConfigFilePath string

	// DBDir is the directory holding the scan history database.
	DBDir string

	// SaveToDB stores the finished scan in the history database.
	SaveToDB bool

	// Debug lowers the log level to debug.
	Debug bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool
}

// NewConfig creates a Config populated with the defaults.
func NewConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		RSTDelay:       DefaultRSTDelay,
		Concurrency:    DefaultConcurrency,
		MaxSockets:     DefaultMaxSockets,
		HalfOpenFlag:   DefaultHalfOpenFlag,
		OSDetect:       true,
		BannerTimeout:  DefaultBannerTimeout,
		BannerAttempts: DefaultBannerAttempts,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// ApplyProfile overrides the fields a profile sets. Zero-valued profile
// fields leave the current value untouched.
func (c *Config) ApplyProfile(p Profile) {
	if p.Ports != "" {
		c.PortExpression = p.Ports
	}
	if p.Timeout != 0 {
		c.Timeout = p.Timeout
	}
	if p.RSTDelay != nil {
		c.RSTDelay = *p.RSTDelay
	}
	if p.Concurrency != 0 {
		c.Concurrency = p.Concurrency
	}
	if p.MaxSockets != 0 {
		c.MaxSockets = p.MaxSockets
	}
	if p.Rate != 0 {
		c.Rate = p.Rate
	}
	if p.HalfOpenFlag != "" {
		c.HalfOpenFlag = p.HalfOpenFlag
	}
	if p.OSDetect != nil {
		c.OSDetect = *p.OSDetect
	}
	if p.Identify != nil {
		c.Identify = *p.Identify
	}
	if p.Proxy != "" {
		c.Proxy = p.Proxy
	}
	if p.BannerTimeout != 0 {
		c.BannerTimeout = p.BannerTimeout
	}
	if len(p.Signatures) > 0 {
		c.Signatures = p.Signatures
	}
	if len(p.ProbeMessages) > 0 {
		c.ProbeMessages = p.ProbeMessages
	}
}

// XDGDataDir returns the XDG data directory for nmapclone.
// On Linux: ~/.local/share/nmapclone
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for nmapclone.
// On Linux: ~/.config/nmapclone
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag parsing, before any packet is sent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrNoTarget
	}
	if strings.TrimSpace(c.PortExpression) == "" {
		return ErrNoPorts
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RSTDelay < 0 {
		return ErrInvalidRSTDelay
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxSockets < MinMaxSockets {
		return ErrInvalidMaxSockets
	}
	if c.Rate < 0 {
		return ErrInvalidRate
	}
	if c.HalfOpenFlag != HalfOpenSYN && c.HalfOpenFlag != HalfOpenACK {
		return ErrInvalidHalfOpenFlag
	}
	if c.Identify && c.BannerTimeout <= 0 {
		return ErrInvalidTimeout
	}
	for _, sig := range c.Signatures {
		if strings.TrimSpace(sig.Pattern) == "" || strings.TrimSpace(sig.Name) == "" {
			return ErrInvalidSignature
		}
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
