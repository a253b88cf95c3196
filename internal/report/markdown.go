package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// MarkdownWriter outputs GitHub-flavored Markdown reports with tables,
// alerts and a mermaid pie chart of port states.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePorts(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("nmapclone Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + report.Address + "`"},
		{"IP", report.IP},
	}
	if report.PortExpression != "" {
		rows = append(rows, []string{"Ports", "`" + report.PortExpression + "`"})
	}
	rows = append(rows,
		[]string{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		[]string{"Duration", report.Duration.String()},
		[]string{"Status", w.statusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusText(report *model.ScanReport) string {
	switch {
	case report.TimedOut:
		return "⚠️ Timed Out (partial results)"
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case !report.Complete():
		return "⚠️ Incomplete"
	default:
		return "✅ Complete"
	}
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	s := report.Summary()

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"State", "Count"},
		Rows: [][]string{
			{"🟢 Open", strconv.Itoa(s.Open)},
			{"⚪ Closed", strconv.Itoa(s.Closed)},
			{"🔴 Error", strconv.Itoa(s.Errored)},
			{"⏭️ Skipped", strconv.Itoa(s.Skipped)},
			{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
		},
	})
	md.PlainText("")

	if s.Total > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, report, s)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Port States"),
		piechart.WithShowData(true),
	)

	for _, slice := range []struct {
		label string
		count int
	}{
		{"Open", s.Open},
		{"Closed", s.Closed},
		{"Error", s.Errored},
		{"Skipped", s.Skipped},
	} {
		if slice.count > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport, s model.Summary) {
	switch {
	case report.ErrorMessage != "":
		md.Cautionf("The scan failed: %s", report.ErrorMessage)
	case s.Errored > 0:
		md.Warningf("%d port(s) could not be probed. Their state is unknown.", s.Errored)
	case s.Skipped > 0:
		md.Importantf("%d port(s) were skipped because the scan was canceled.", s.Skipped)
	case s.Open > 0:
		md.Note(strconv.Itoa(s.Open) + " open port(s) found.")
	default:
		md.Tip("No open ports found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePorts(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Open Ports")
	md.PlainText("")

	open := report.OpenPorts()
	if len(open) == 0 {
		md.PlainText("No open ports found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(open))
	for _, p := range open {
		rows = append(rows, []string{
			strconv.Itoa(p.Port) + "/tcp",
			p.DecidedBy,
			p.LastResult(),
			osText(p),
			appText(p),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Port", "Decided By", "Result", "OS", "Application"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, p := range open {
		if p.Application != nil && p.Application.Banner != "" {
			md.Details(strconv.Itoa(p.Port)+"/tcp banner", truncateString(p.Application.Banner, 512))
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.ScanReport) {
	failed := report.FailedPorts()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Ports")
	md.PlainText("")
	rows := make([][]string, 0, len(failed))
	for _, p := range failed {
		rows = append(rows, []string{strconv.Itoa(p.Port) + "/tcp", truncateString(p.ErrorMessage, 80)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Port", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by nmapclone*")
}

// WriteComparison outputs the open-port diff in Markdown.
func (w *MarkdownWriter) WriteComparison(c *model.Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scan Comparison: " + c.Address)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current"},
		Rows: [][]string{
			{"Date", c.PreviousScan.DateScanned.Format("2006-01-02 15:04"), c.CurrentScan.DateScanned.Format("2006-01-02 15:04")},
			{"Open ports", strconv.Itoa(c.PreviousScan.OpenCount), strconv.Itoa(c.CurrentScan.OpenCount)},
		},
	})
	md.PlainText("")

	if c.Changed() {
		md.Warningf("%d port(s) opened and %d port(s) closed since the previous scan.",
			len(c.NewlyOpened), len(c.NewlyClosed))
	} else {
		md.Tip("The set of open ports is unchanged.")
	}
	md.PlainText("")

	for _, group := range []struct {
		title string
		ports []int
	}{
		{"Newly Opened", c.NewlyOpened},
		{"Newly Closed", c.NewlyClosed},
		{"Unchanged", c.Unchanged},
		{"Not Compared", c.NotCompared},
	} {
		if len(group.ports) == 0 {
			continue
		}
		md.H2(group.title + " (" + strconv.Itoa(len(group.ports)) + ")")
		md.PlainText("")
		items := make([]string, 0, len(group.ports))
		for _, p := range group.ports {
			items = append(items, strconv.Itoa(p)+"/tcp")
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
