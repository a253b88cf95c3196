package model

import (
	"fmt"
	"net"
	"time"
)

// DecidedByExhaustion marks a closed verdict reached because no technique
// was conclusive.
const DecidedByExhaustion = "exhausted"

// Target is one scan coordinate.
type Target struct {
	// Address is the host as the user typed it.
	Address string `json:"address"`

	// IP is the resolved IPv4 address probes are sent to.
	IP net.IP `json:"ip"`

	// Port is the probed TCP port.
	Port int `json:"port"`
}

// String renders the target as "address:port".
func (t Target) String() string {
	return net.JoinHostPort(t.Address, fmt.Sprint(t.Port))
}

// ProbeRecord is one technique run and its classification.
type ProbeRecord struct {
	Technique string `json:"technique"`
	Result    string `json:"result"`
}

// OSFingerprint is the best-effort OS guess for an open port.
type OSFingerprint struct {
	TTL        int    `json:"ttl"`
	WindowSize int    `json:"window_size"`
	OS         string `json:"os"`
	Responded  bool   `json:"responded"`
}

// Application is what answered on an open port.
type Application struct {
	// Name is the matched product name, "Unknown" when nothing matched.
	Name string `json:"name"`

	// Version is the product version disclosed by the banner.
	Version string `json:"version,omitempty"`

	// OSHint is the operating system the banner names or implies.
	OSHint string `json:"os_hint,omitempty"`

	// Banner is the raw greeting or response, trimmed.
	Banner string `json:"banner,omitempty"`

	// ServerHeader is the HTTP Server header, when the service spoke HTTP.
	ServerHeader string `json:"server_header,omitempty"`

	// Attempts is how many probe messages were sent before an answer.
	Attempts int `json:"attempts"`
}

// PortReport is the result of one port unit: the decision procedure plus the
// optional fingerprint and application steps.
//
// A report is owned by exactly one unit while it runs and is read-only once
// the unit has finished.
type PortReport struct {
	Target

	// Open is the verdict. It is false until a step concludes open.
	Open bool `json:"open"`

	// Concluded is true once a technique produced a decisive result.
	Concluded bool `json:"concluded"`

	// DecidedBy names the technique that concluded, or DecidedByExhaustion.
	DecidedBy string `json:"decided_by,omitempty"`

	// Probes lists every technique run, in order.
	Probes []ProbeRecord `json:"probes,omitempty"`

	// OS is set for open ports when fingerprinting is enabled and the target
	// answered with TCP.
	OS *OSFingerprint `json:"os,omitempty"`

	// Application is set for open ports when identification is enabled.
	Application *Application `json:"application,omitempty"`

	// Skipped is true when the unit never ran.
	Skipped bool `json:"skipped,omitempty"`

	// Duration is the wall time spent on the unit.
	Duration time.Duration `json:"duration"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the transport fault that aborted the unit, if any.
	Error error `json:"-"`

	// ErrorMessage is the serialized form of Error.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewPortReport creates an empty report for one target.
func NewPortReport(target Target) *PortReport {
	return &PortReport{Target: target}
}

// Record appends one technique result.
func (r *PortReport) Record(technique, result string) {
	r.Probes = append(r.Probes, ProbeRecord{Technique: technique, Result: result})
}

// Conclude fixes the verdict. Later calls are ignored so the first decisive
// technique wins.
func (r *PortReport) Conclude(open bool, by string) {
	if r.Concluded {
		return
	}
	r.Open = open
	r.Concluded = true
	r.DecidedBy = by
}

// SetError records a fault that aborted the unit.
func (r *PortReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// State derives the final port state.
func (r *PortReport) State() PortState {
	switch {
	case r.Skipped:
		return StateSkipped
	case r.ErrorMessage != "":
		return StateError
	case r.Open:
		return StateOpen
	default:
		return StateClosed
	}
}

// LastResult returns the result of the last technique run, or "".
func (r *PortReport) LastResult() string {
	if len(r.Probes) == 0 {
		return ""
	}
	return r.Probes[len(r.Probes)-1].Result
}
