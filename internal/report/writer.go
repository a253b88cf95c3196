package report

import (
	"io"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// Writer renders scan results in one output format.
type Writer interface {
	// Write outputs a full scan report.
	Write(report *model.ScanReport) (int, error)

	// WriteComparison outputs the open-port diff between two scans.
	WriteComparison(c *model.Comparison) (int, error)
}

// MultiWriter writes to multiple Writers, for example the terminal and a
// report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer and stops on the first error.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison outputs the comparison to every Writer.
func (m *MultiWriter) WriteComparison(c *model.Comparison) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(c)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// osText returns the OS column for a port, "-" when not fingerprinted.
func osText(p *model.PortReport) string {
	if p.OS == nil {
		return "-"
	}
	return p.OS.OS
}

// appText returns the application column for a port.
func appText(p *model.PortReport) string {
	if p.Application == nil {
		return "-"
	}
	name := p.Application.Name
	if p.Application.Version != "" {
		name += " " + p.Application.Version
	}
	if p.Application.ServerHeader != "" && p.Application.ServerHeader != p.Application.Name {
		return name + " (" + p.Application.ServerHeader + ")"
	}
	return name
}

// statusText summarizes how the scan ended.
func statusText(report *model.ScanReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT (partial results)"
	case report.ErrorMessage != "":
		return "ERROR - " + report.ErrorMessage
	case !report.Complete():
		return "INCOMPLETE (some ports failed)"
	default:
		return "Complete"
	}
}
