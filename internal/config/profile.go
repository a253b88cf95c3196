package config

import (
	"slices"
	"time"
)

// Profile holds scan settings that can be stored in the .nmapclone file.
// Pointer fields distinguish "unset" from an explicit zero or false.
type Profile struct {
	// Ports is a port range expression.
	Ports string `yaml:"ports,omitempty"`

	// Timeout is the per-probe reply timeout, e.g. "1500ms".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// RSTDelay is the half-open teardown delay. "0s" disables the wait.
	RSTDelay *time.Duration `yaml:"rstDelay,omitempty"`

	Concurrency  int     `yaml:"concurrency,omitempty"`
	MaxSockets   int     `yaml:"maxSockets,omitempty"`
	Rate         float64 `yaml:"rate,omitempty"`
	HalfOpenFlag string  `yaml:"halfOpenFlag,omitempty"`

	OSDetect *bool `yaml:"osDetect,omitempty"`
	Identify *bool `yaml:"identify,omitempty"`

	// Proxy is a SOCKS5 URL for banner grabbing.
	Proxy string `yaml:"proxy,omitempty"`

	BannerTimeout time.Duration `yaml:"bannerTimeout,omitempty"`

	// Signatures are extra banner signatures, checked before the built-in
	// ones. Target signatures come before default ones.
	Signatures []Signature `yaml:"signatures,omitempty"`

	// ProbeMessages replace the generic messages sent to make a service
	// greet.
	ProbeMessages []string `yaml:"probeMessages,omitempty"`
}

// Signature maps a case-insensitive banner substring to a product name.
type Signature struct {
	Pattern string `yaml:"pattern"`
	Name    string `yaml:"name"`
}

// File represents the structure of the .nmapclone configuration file.
type File struct {
	// Defaults applies to every target unless overridden.
	Defaults Profile `yaml:"defaults,omitempty"`

	// Targets maps an address, exactly as passed to -a, to its overrides.
	Targets map[string]Profile `yaml:"targets,omitempty"`
}

// GetProfile returns the profile for address: the defaults merged with any
// target-specific overrides.
func (cf *File) GetProfile(address string) Profile {
	result := cf.Defaults

	target, ok := cf.Targets[address]
	if !ok {
		return result
	}

	if target.Ports != "" {
		result.Ports = target.Ports
	}
	if target.Timeout != 0 {
		result.Timeout = target.Timeout
	}
	if target.RSTDelay != nil {
		result.RSTDelay = target.RSTDelay
	}
	if target.Concurrency != 0 {
		result.Concurrency = target.Concurrency
	}
	if target.MaxSockets != 0 {
		result.MaxSockets = target.MaxSockets
	}
	if target.Rate != 0 {
		result.Rate = target.Rate
	}
	if target.HalfOpenFlag != "" {
		result.HalfOpenFlag = target.HalfOpenFlag
	}
	if target.OSDetect != nil {
		result.OSDetect = target.OSDetect
	}
	if target.Identify != nil {
		result.Identify = target.Identify
	}
	if target.Proxy != "" {
		result.Proxy = target.Proxy
	}
	if target.BannerTimeout != 0 {
		result.BannerTimeout = target.BannerTimeout
	}
	if len(target.Signatures) > 0 {
		result.Signatures = append(slices.Clone(target.Signatures), cf.Defaults.Signatures...)
	}
	if len(target.ProbeMessages) > 0 {
		result.ProbeMessages = target.ProbeMessages
	}
	return result
}
