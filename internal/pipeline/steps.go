package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
	"github.com/mihaiandreineacsu/nmapclone/internal/probe"
)

// verdictStepName names the step that closes unconcluded ports.
const verdictStepName = "verdict"

// techniqueStep runs one probe technique and applies its decision rule.
type techniqueStep[R fmt.Stringer] struct {
	name string
	run  func(ctx context.Context, dst net.IP, port uint16) (R, error)

	// decide returns the verdict a result implies and whether it is
	// conclusive. Inconclusive results let the next technique run.
	decide func(R) (open, conclusive bool)
}

// Name returns the technique name.
func (s *techniqueStep[R]) Name() string {
	return s.name
}

// ShouldRun stops the chain once a verdict is reached.
func (s *techniqueStep[R]) ShouldRun(report *model.PortReport) bool {
	return !report.Concluded
}

// Do runs the technique and records its result.
func (s *techniqueStep[R]) Do(ctx context.Context, report *model.PortReport) error {
	result, err := s.run(ctx, report.IP, uint16(report.Port))
	if err != nil {
		return err
	}

	report.Record(s.name, result.String())
	if open, conclusive := s.decide(result); conclusive {
		report.Conclude(open, s.name)
	}
	return nil
}

// closedUnless concludes closed on any result other than pass.
func closedUnless[R comparable](pass R) func(R) (bool, bool) {
	return func(r R) (bool, bool) {
		return false, r != pass
	}
}

// openOn concludes open only on the given result.
func openOn[R comparable](open R) func(R) (bool, bool) {
	return func(r R) (bool, bool) {
		return true, r == open
	}
}

// closedOn concludes closed only on the given result.
func closedOn[R comparable](closed R) func(R) (bool, bool) {
	return func(r R) (bool, bool) {
		return false, r == closed
	}
}

// NewPingStep gates the port on host liveness.
func NewPingStep(p *probe.Prober) Step {
	return &techniqueStep[probe.PingResult]{
		name: probe.TechniquePing,
		run: func(ctx context.Context, dst net.IP, _ uint16) (probe.PingResult, error) {
			return p.Ping(ctx, dst)
		},
		decide: closedUnless(probe.PingAlive),
	}
}

// NewAckStep stops on filtered ports.
func NewAckStep(p *probe.Prober) Step {
	return &techniqueStep[probe.AckResult]{
		name:   probe.TechniqueAck,
		run:    p.Ack,
		decide: closedUnless(probe.AckUnfiltered),
	}
}

// NewHalfOpenStep concludes open on SYN|ACK.
func NewHalfOpenStep(p *probe.Prober) Step {
	return &techniqueStep[probe.HalfOpenResult]{
		name:   probe.TechniqueHalfOpen,
		run:    p.HalfOpen,
		decide: openOn(probe.HalfOpenOpen),
	}
}

// NewWindowStep concludes open on a non-zero RST window.
func NewWindowStep(p *probe.Prober) Step {
	return &techniqueStep[probe.WindowResult]{
		name:   probe.TechniqueWindow,
		run:    p.Window,
		decide: openOn(probe.WindowOpen),
	}
}

// NewConnectStep concludes open on a completed handshake.
func NewConnectStep(p *probe.Prober) Step {
	return &techniqueStep[probe.ConnectResult]{
		name:   probe.TechniqueConnect,
		run:    p.Connect,
		decide: openOn(probe.ConnectOpen),
	}
}

// NewNullStep concludes closed on RST|ACK.
func NewNullStep(p *probe.Prober) Step {
	return &techniqueStep[probe.NullResult]{
		name:   probe.TechniqueNull,
		run:    p.Null,
		decide: closedOn(probe.NullClosed),
	}
}

// NewXmasStep concludes closed on RST|ACK.
func NewXmasStep(p *probe.Prober) Step {
	return &techniqueStep[probe.XmasResult]{
		name:   probe.TechniqueXmas,
		run:    p.Xmas,
		decide: closedOn(probe.XmasClosed),
	}
}

// NewFinStep concludes closed on RST|ACK.
func NewFinStep(p *probe.Prober) Step {
	return &techniqueStep[probe.FinResult]{
		name:   probe.TechniqueFin,
		run:    p.Fin,
		decide: closedOn(probe.FinClosed),
	}
}

// verdictStep closes ports that no technique concluded and logs the verdict.
type verdictStep struct {
	logger *slog.Logger
}

func (s *verdictStep) Name() string { return verdictStepName }

func (s *verdictStep) Do(ctx context.Context, report *model.PortReport) error {
	report.Conclude(false, model.DecidedByExhaustion)

	level := slog.LevelDebug
	if report.Open {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "port verdict",
		"host", report.Address,
		"port", report.Port,
		"open", report.Open,
		"decided_by", report.DecidedBy)
	return nil
}

// DecisionSteps returns the technique steps in decision order, followed by
// the verdict step.
//
// The order is fixed: ping and ACK gate on liveness and filtering, the
// three open signals (half-open, window, connect) come next, and the three
// stealth probes that can only prove closed (null, xmas, FIN) run last.
func DecisionSteps(p *probe.Prober, logger *slog.Logger) []Step {
	if logger == nil {
		logger = slog.Default()
	}
	return []Step{
		NewPingStep(p),
		NewAckStep(p),
		NewHalfOpenStep(p),
		NewWindowStep(p),
		NewConnectStep(p),
		NewNullStep(p),
		NewXmasStep(p),
		NewFinStep(p),
		&verdictStep{logger: logger},
	}
}

// DecisionPipeline builds a pipeline that runs the port decision procedure.
// Fingerprint and identification steps may be appended after it.
func DecisionPipeline(p *probe.Prober, opts ...Option) *Pipeline {
	pl := New(opts...)
	pl.AddSteps(DecisionSteps(p, pl.logger)...)
	return pl
}

// FingerprintStep guesses the OS of open ports from a SYN reply.
type FingerprintStep struct {
	prober *probe.Prober
	logger *slog.Logger
}

// FingerprintStepOption configures a FingerprintStep.
type FingerprintStepOption func(*FingerprintStep)

// WithFingerprintLogger sets a custom logger for the fingerprint step.
func WithFingerprintLogger(logger *slog.Logger) FingerprintStepOption {
	return func(s *FingerprintStep) {
		s.logger = logger
	}
}

// NewFingerprintStep creates an OS fingerprint step.
func NewFingerprintStep(p *probe.Prober, opts ...FingerprintStepOption) *FingerprintStep {
	s := &FingerprintStep{prober: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FingerprintStep) Name() string {
	return "os_fingerprint"
}

// ShouldRun limits fingerprinting to open ports.
func (s *FingerprintStep) ShouldRun(report *model.PortReport) bool {
	return report.Open
}

// Do sends the fingerprint probe. Failures are logged and leave the report
// without an OS guess; they never undo the verdict.
func (s *FingerprintStep) Do(ctx context.Context, report *model.PortReport) error {
	fp, err := s.prober.Fingerprint(ctx, report.IP, uint16(report.Port))
	if err != nil {
		s.logger.Warn("os fingerprint failed",
			"target", report.Target.String(),
			"error", err)
		return nil
	}
	if fp == nil {
		return nil
	}

	report.OS = &model.OSFingerprint{
		TTL:        fp.TTL,
		WindowSize: fp.WindowSize,
		OS:         fp.OS(),
		Responded:  fp.Responded,
	}
	return nil
}

// Identifier identifies the application listening on a port.
type Identifier interface {
	Identify(ctx context.Context, address string, port int) (*model.Application, error)
}

// IdentifyStep grabs a banner from open ports and matches known products.
type IdentifyStep struct {
	identifier Identifier
	logger     *slog.Logger
}

// IdentifyStepOption configures an IdentifyStep.
type IdentifyStepOption func(*IdentifyStep)

// WithIdentifyLogger sets a custom logger for the identify step.
func WithIdentifyLogger(logger *slog.Logger) IdentifyStepOption {
	return func(s *IdentifyStep) {
		s.logger = logger
	}
}

// NewIdentifyStep creates an application identification step.
func NewIdentifyStep(identifier Identifier, opts ...IdentifyStepOption) *IdentifyStep {
	s := &IdentifyStep{identifier: identifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *IdentifyStep) Name() string {
	return "identify_application"
}

// ShouldRun limits identification to open ports.
func (s *IdentifyStep) ShouldRun(report *model.PortReport) bool {
	return report.Open
}

// Do identifies the application. Failures are logged; the port stays open.
func (s *IdentifyStep) Do(ctx context.Context, report *model.PortReport) error {
	addr := report.Address
	if report.IP != nil {
		addr = report.IP.String()
	}
	app, err := s.identifier.Identify(ctx, addr, report.Port)
	if err != nil {
		s.logger.Warn("application identification failed",
			"target", report.Target.String(),
			"error", err)
		return nil
	}
	report.Application = app
	return nil
}
