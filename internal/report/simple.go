package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// SimpleWriter outputs a plain-text report for the terminal.
type SimpleWriter struct {
	baseWriter

	// showAll lists closed, failed and skipped ports too.
	showAll bool

	// verbose adds the probe trail of every listed port.
	verbose bool

	title cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowAll lists every scanned port instead of only open ones.
func WithShowAll(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showAll = show
	}
}

// WithVerbose adds the technique results of each listed port.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable form.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	if err := w.writePorts(&sb, report); err != nil {
		return 0, err
	}
	if w.verbose {
		w.writeProbeTrail(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func rule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
}

func section(sb *strings.Builder, name string) {
	rule(sb, "-")
	sb.WriteString(name + "\n")
	rule(sb, "-")
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	rule(sb, "=")
	sb.WriteString("                          NMAPCLONE REPORT\n")
	rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Target:     %s", report.Address)
	if report.IP != "" && report.IP != report.Address {
		fmt.Fprintf(sb, " (%s)", report.IP)
	}
	sb.WriteString("\n")
	if report.PortExpression != "" {
		fmt.Fprintf(sb, "Ports:      %s\n", report.PortExpression)
	}
	fmt.Fprintf(sb, "Scan Date:  %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:     %s\n\n", statusText(report))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.ScanReport) {
	s := report.Summary()

	section(sb, "SUMMARY")
	fmt.Fprintf(sb, "  Open:     %d\n", s.Open)
	fmt.Fprintf(sb, "  Closed:   %d\n", s.Closed)
	if s.Errored > 0 {
		fmt.Fprintf(sb, "  Errored:  %d\n", s.Errored)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(sb, "  Skipped:  %d\n", s.Skipped)
	}
	fmt.Fprintf(sb, "  Total:    %d ports\n\n", s.Total)
}

func (w *SimpleWriter) listed(report *model.ScanReport) []*model.PortReport {
	if w.showAll {
		return report.Ports
	}
	return report.OpenPorts()
}

func (w *SimpleWriter) writePorts(sb *strings.Builder, report *model.ScanReport) error {
	ports := w.listed(report)

	if w.showAll {
		section(sb, "PORTS")
	} else {
		section(sb, "OPEN PORTS")
	}
	if len(ports) == 0 {
		sb.WriteString("  No open ports found\n\n")
		return nil
	}

	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, []string{
			strconv.Itoa(p.Port) + "/tcp",
			w.title.String(p.State().String()),
			w.reason(p),
			osText(p),
			appText(p),
		})
	}

	table := tablewriter.NewWriter(sb)
	table.Header("Port", "State", "Reason", "OS", "Application")
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build port table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render port table: %w", err)
	}
	sb.WriteString("\n")
	return nil
}

// reason explains the verdict: the deciding technique and its result.
func (w *SimpleWriter) reason(p *model.PortReport) string {
	switch p.State() {
	case model.StateError:
		return p.ErrorMessage
	case model.StateSkipped:
		return "scan canceled"
	}
	if p.DecidedBy == model.DecidedByExhaustion {
		return "no technique conclusive"
	}
	return p.DecidedBy + ": " + p.LastResult()
}

func (w *SimpleWriter) writeProbeTrail(sb *strings.Builder, report *model.ScanReport) {
	ports := w.listed(report)
	if len(ports) == 0 {
		return
	}

	section(sb, "PROBES")
	for _, p := range ports {
		fmt.Fprintf(sb, "  %d/tcp\n", p.Port)
		for _, rec := range p.Probes {
			fmt.Fprintf(sb, "    %-10s %s\n", rec.Technique, rec.Result)
		}
		if p.Application != nil && p.Application.Banner != "" {
			fmt.Fprintf(sb, "    %-10s %s\n", "banner", firstLine(p.Application.Banner))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	rule(sb, "=")
}

// WriteComparison outputs the open-port diff in human-readable form.
func (w *SimpleWriter) WriteComparison(c *model.Comparison) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan Comparison: %s\n", c.Address)
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	if c.Changed() {
		sb.WriteString("Status: CHANGED\n\n")
	} else {
		sb.WriteString("Status: UNCHANGED\n\n")
	}

	fmt.Fprintf(&sb, "Previous scan: %s (%d open)\n",
		c.PreviousScan.DateScanned.Format("2006-01-02 15:04:05"), c.PreviousScan.OpenCount)
	fmt.Fprintf(&sb, "Current scan:  %s (%d open)\n",
		c.CurrentScan.DateScanned.Format("2006-01-02 15:04:05"), c.CurrentScan.OpenCount)

	writePortList(&sb, "Newly Opened", "[+]", c.NewlyOpened)
	writePortList(&sb, "Newly Closed", "[-]", c.NewlyClosed)
	writePortList(&sb, "Unchanged", "[=]", c.Unchanged)
	writePortList(&sb, "Not Compared", "[?]", c.NotCompared)

	return io.WriteString(w.output, sb.String())
}

func writePortList(sb *strings.Builder, name, marker string, ports []int) {
	if len(ports) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s (%d):\n", name, len(ports))
	for _, p := range ports {
		fmt.Fprintf(sb, "  %s %d/tcp\n", marker, p)
	}
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
