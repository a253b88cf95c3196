package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// createTestReport builds a scan of ports 21-25 where 22 is open with an
// identified application, 23 failed and the rest are closed.
func createTestReport() *model.ScanReport {
	ip := net.ParseIP("192.0.2.7")
	report := model.NewScanReport("scanme.test", ip)
	report.PortExpression = "21-25"
	report.DateScanned = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	report.Duration = 3 * time.Second

	for port := 21; port <= 25; port++ {
		pr := model.NewPortReport(model.Target{Address: "scanme.test", IP: ip, Port: port})
		pr.Record("ping", "Host is up")
		switch port {
		case 22:
			pr.Record("ack", "Filtered or No Response")
			pr.Record("half-open", "Open")
			pr.Conclude(true, "half-open")
			pr.OS = &model.OSFingerprint{TTL: 64, WindowSize: 29200, OS: "Linux/Unix (Unknown OS)", Responded: true}
			pr.Application = &model.Application{Name: "OpenSSH", Banner: "SSH-2.0-OpenSSH_9.6\r\n", Attempts: 1}
		case 23:
			pr.SetError(errors.New("raw socket privileges required"))
		default:
			pr.Record("ack", "Unfiltered")
			pr.Conclude(false, "ack")
		}
		report.Ports = append(report.Ports, pr)
	}
	return report
}

func createTestComparison() *model.Comparison {
	prev := createTestReport()
	cur := createTestReport()
	cur.DateScanned = prev.DateScanned.Add(time.Hour)
	cur.Ports[0].Open = true  // 21 opened
	cur.Ports[1].Open = false // 22 closed
	cur.Ports[4].Open = true  // 25 opened
	return model.CompareScans(prev, cur)
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"NMAPCLONE REPORT",
			"scanme.test (192.0.2.7)",
			"Ports:      21-25",
			"Open:     1",
			"Closed:   3",
			"Errored:  1",
			"INCOMPLETE",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("lists only open ports by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "22/tcp") || !strings.Contains(output, "OpenSSH") {
			t.Errorf("expected open port row\n%s", output)
		}
		if strings.Contains(output, "24/tcp") {
			t.Errorf("closed port should not be listed\n%s", output)
		}
	})

	t.Run("show all lists closed and failed ports with title-cased states", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowAll(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"24/tcp", "Closed", "Error", "raw socket privileges required"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("verbose adds the probe trail and banner", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "PROBES") || !strings.Contains(output, "Filtered or No Response") {
			t.Errorf("expected probe trail\n%s", output)
		}
		if !strings.Contains(output, "SSH-2.0-OpenSSH_9.6") {
			t.Errorf("expected banner line\n%s", output)
		}
	})

	t.Run("empty scan reports no open ports", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(model.NewScanReport("empty.test", nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No open ports found") {
			t.Errorf("unexpected output\n%s", buf.String())
		}
	})

	t.Run("comparison lists opened and closed ports", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Status: CHANGED", "Newly Opened (2)", "[+] 21/tcp", "[-] 22/tcp"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("comparison lists open ports outside the common range", func(t *testing.T) {
		t.Parallel()

		prev := createTestReport()
		cur := createTestReport()
		extra := model.NewPortReport(model.Target{Address: "scanme.test", Port: 8080})
		extra.Conclude(true, "half-open")
		cur.Ports = append(cur.Ports, extra)

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteComparison(model.CompareScans(prev, cur)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Status: UNCHANGED", "Not Compared (1)", "[?] 8080/tcp"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes a document with summary and open ports", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var doc struct {
			Report struct {
				Address string `json:"address"`
				Ports   []struct {
					Port  int    `json:"port"`
					Error string `json:"error"`
				} `json:"ports"`
			} `json:"report"`
			Summary   model.Summary `json:"summary"`
			OpenPorts []int         `json:"open_ports"`
		}
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Report.Address != "scanme.test" || len(doc.Report.Ports) != 5 {
			t.Errorf("unexpected report: %+v", doc.Report)
		}
		if doc.Summary.Open != 1 || doc.Summary.Errored != 1 {
			t.Errorf("unexpected summary: %+v", doc.Summary)
		}
		if len(doc.OpenPorts) != 1 || doc.OpenPorts[0] != 22 {
			t.Errorf("unexpected open ports: %v", doc.OpenPorts)
		}
		if doc.Report.Ports[2].Error == "" {
			t.Error("expected failed port to carry its error message")
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"report\"") {
			t.Errorf("expected indented output\n%s", buf.String())
		}
	})

	t.Run("versioned writer stamps the version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewVersionedJSONWriter(&buf, "v1.2.3").Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"version":"v1.2.3"`) {
			t.Errorf("expected version\n%s", buf.String())
		}
	})

	t.Run("comparison is written as JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var c model.Comparison
		if err := json.Unmarshal(buf.Bytes(), &c); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(c.NewlyOpened) != 2 || len(c.NewlyClosed) != 1 {
			t.Errorf("unexpected comparison: %+v", c)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables, chart and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# nmapclone Report",
			"`scanme.test`",
			"## Open Ports",
			"22/tcp",
			"```mermaid",
			"Port States",
			"## Failed Ports",
			"[!WARNING]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("comparison uses bullet lists per group", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteComparison(createTestComparison()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"# Scan Comparison: scanme.test", "## Newly Opened (2)", "- 25/tcp"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if !json.Valid(js.Bytes()) {
		t.Error("expected valid JSON from the second writer")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
