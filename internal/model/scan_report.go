package model

import (
	"net"
	"slices"
	"time"
)

// ScanReport collects the port reports of one scan run against one host.
type ScanReport struct {
	// Address is the host as the user typed it.
	Address string `json:"address"`

	// IP is the resolved IPv4 address.
	IP string `json:"ip"`

	// PortExpression is the range expression the port list came from.
	PortExpression string `json:"port_expression,omitempty"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// Ports holds one report per scanned port, in ascending port order.
	Ports []*PortReport `json:"ports"`

	// Duration is the wall time of the whole scan.
	Duration time.Duration `json:"duration"`

	// TimedOut is true when the scan was canceled before every unit ran.
	TimedOut bool `json:"timed_out"`

	// Error is a scan-level failure, for example resolution.
	Error error `json:"-"`

	// ErrorMessage is the serialized form of Error.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// Summary counts port states.
type Summary struct {
	Total   int `json:"total"`
	Open    int `json:"open"`
	Closed  int `json:"closed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// NewScanReport creates a report for address resolved to ip.
func NewScanReport(address string, ip net.IP) *ScanReport {
	r := &ScanReport{
		Address:     address,
		DateScanned: time.Now(),
	}
	if ip != nil {
		r.IP = ip.String()
	}
	return r
}

// SetError records a scan-level failure.
func (r *ScanReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// OpenPorts returns the reports of open ports in port order.
func (r *ScanReport) OpenPorts() []*PortReport {
	return r.filter(StateOpen)
}

// FailedPorts returns the reports of units aborted by a fault.
func (r *ScanReport) FailedPorts() []*PortReport {
	return r.filter(StateError)
}

// OpenPortNumbers returns the sorted numbers of open ports.
func (r *ScanReport) OpenPortNumbers() []int {
	open := r.OpenPorts()
	nums := make([]int, 0, len(open))
	for _, p := range open {
		nums = append(nums, p.Port)
	}
	slices.Sort(nums)
	return nums
}

// ProbedPortNumbers returns the sorted numbers of ports that reached an open
// or closed verdict. Errored and skipped units are left out.
func (r *ScanReport) ProbedPortNumbers() []int {
	nums := make([]int, 0, len(r.Ports))
	for _, p := range r.Ports {
		if s := p.State(); s == StateOpen || s == StateClosed {
			nums = append(nums, p.Port)
		}
	}
	slices.Sort(nums)
	return nums
}

// Summary counts the port states of the report.
func (r *ScanReport) Summary() Summary {
	s := Summary{Total: len(r.Ports)}
	for _, p := range r.Ports {
		switch p.State() {
		case StateOpen:
			s.Open++
		case StateClosed:
			s.Closed++
		case StateError:
			s.Errored++
		case StateSkipped:
			s.Skipped++
		}
	}
	return s
}

// Complete reports whether every unit ran without a fault.
func (r *ScanReport) Complete() bool {
	s := r.Summary()
	return r.ErrorMessage == "" && s.Errored == 0 && s.Skipped == 0
}

func (r *ScanReport) filter(state PortState) []*PortReport {
	var out []*PortReport
	for _, p := range r.Ports {
		if p.State() == state {
			out = append(out, p)
		}
	}
	return out
}
