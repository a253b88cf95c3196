package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of port units run at once.
const DefaultConcurrency = 100

// BatchProcessor runs one pipeline per port with bounded concurrency.
// Every unit owns its PortReport and its pipeline; units share nothing
// mutable.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each port.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent units.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent units.
// Default is DefaultConcurrency if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each port to create a fresh
// pipeline instance.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessPorts runs one unit per port against target and blocks until all
// of them have finished. Reports are returned in the order of ports.
//
// A unit aborted by a transport fault carries the fault in its report and
// does not affect the others. When ctx is canceled no new units start;
// units that never started are marked Skipped and ctx.Err() is returned.
func (bp *BatchProcessor) ProcessPorts(ctx context.Context, target model.Target, ports []int) ([]*model.PortReport, error) {
	results := make([]*model.PortReport, len(ports))
	err := bp.ProcessPortsWithCallback(ctx, target, ports, func(report *model.PortReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessPortsWithCallback runs one unit per port and calls callback for
// each finished or skipped unit with the index of its port.
//
// The callback is called from the goroutine that finished the unit, so it
// must be safe for concurrent use if it touches shared state. Writing to
// distinct indexes of a slice is.
func (bp *BatchProcessor) ProcessPortsWithCallback(
	ctx context.Context,
	target model.Target,
	ports []int,
	callback func(report *model.PortReport, index int),
) error {
	bp.logger.Info("starting port scan",
		"host", target.Address,
		"ip", target.IP.String(),
		"total_ports", len(ports),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	started := make([]bool, len(ports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, port := range ports {
		if gctx.Err() != nil {
			break
		}
		started[i] = true

		g.Go(func() error {
			unit := target
			unit.Port = port
			report := model.NewPortReport(unit)

			select {
			case <-gctx.Done():
				report.Skipped = true
				callback(report, i)
				return nil
			default:
			}

			unitStart := time.Now()
			_ = bp.pipelineFactory().Execute(gctx, report) //nolint:errcheck // Error is stored in report
			report.Duration = time.Since(unitStart)

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	skipped := 0
	for i, ok := range started {
		if ok {
			continue
		}
		unit := target
		unit.Port = ports[i]
		report := model.NewPortReport(unit)
		report.Skipped = true
		callback(report, i)
		skipped++
	}

	bp.logger.Info("port scan complete",
		"host", target.Address,
		"total_ports", len(ports),
		"skipped", skipped,
		"elapsed", time.Since(startTime),
	)

	return err
}

// Scan runs ProcessPorts and wraps the results in a ScanReport.
func (bp *BatchProcessor) Scan(ctx context.Context, target model.Target, ports []int) (*model.ScanReport, error) {
	report := model.NewScanReport(target.Address, target.IP)
	start := time.Now()

	bp.logger.Info("scan started",
		"target", target.Address,
		"ip", target.IP.String(),
		"ports", len(ports),
		"steps", bp.pipelineFactory().StepNames(),
	)

	results, err := bp.ProcessPorts(ctx, target, ports)
	report.Ports = results
	report.Duration = time.Since(start)
	if err != nil {
		report.TimedOut = true
		report.SetError(err)
	}
	return report, err
}
