package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/config"
	"github.com/mihaiandreineacsu/nmapclone/internal/database"
	"github.com/mihaiandreineacsu/nmapclone/internal/model"
)

// storedScan builds a report of address scanned at when, with open ports
// open and every other port of ports closed.
func storedScan(address string, when time.Time, ports []int, open ...int) *model.ScanReport {
	ip := net.IPv4(10, 0, 0, 1)
	rep := model.NewScanReport(address, ip)
	rep.DateScanned = when
	for _, port := range ports {
		pr := model.NewPortReport(model.Target{Address: address, IP: ip, Port: port})
		isOpen := false
		for _, o := range open {
			if o == port {
				isOpen = true
			}
		}
		pr.Conclude(isOpen, "half-open")
		rep.Ports = append(rep.Ports, pr)
	}
	return rep
}

// historyDB opens a database in a temp dir and stores reports in order.
func historyDB(t *testing.T, reports ...*model.ScanReport) (*database.ScanDB, string, []int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ids := make([]int64, 0, len(reports))
	for _, r := range reports {
		id, err := db.SaveScanReport(context.Background(), r)
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		ids = append(ids, id)
	}
	return db, dir, ids
}

var comparePorts = []int{21, 22, 80, 443}

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	if cmd.Use != "compare [address]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"list":         "l",
		"list-targets": "L",
		"with-scan-id": "i",
		"since":        "s",
		"json":         "j",
		"markdown":     "m",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	if f := cmd.Flags().Lookup("db-dir"); f == nil || f.DefValue != config.XDGDataDir() {
		t.Error("expected db-dir flag defaulting to the XDG data directory")
	}
}

func TestFormatPortList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ports []int
		want  string
	}{
		{"no ports", nil, "none"},
		{"one port", []int{22}, "22"},
		{"several ports", []int{22, 80, 443}, "22, 80, 443"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatPortList(tt.ports); got != tt.want {
				t.Errorf("formatPortList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListScannedTargets(t *testing.T) {
	t.Parallel()

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t)
		var buf bytes.Buffer
		if err := listScannedTargets(context.Background(), &buf, db); err != nil {
			t.Fatalf("listScannedTargets() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No scanned addresses found") {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("every scanned address is listed", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		db, _, _ := historyDB(t,
			storedScan("10.0.0.1", now, comparePorts, 22),
			storedScan("scanme.example.org", now, comparePorts, 80),
		)
		var buf bytes.Buffer
		if err := listScannedTargets(context.Background(), &buf, db); err != nil {
			t.Fatalf("listScannedTargets() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Scanned addresses (2)", "10.0.0.1", "scanme.example.org"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})
}

func TestListScanHistory(t *testing.T) {
	t.Parallel()

	t.Run("no history", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t)
		var buf bytes.Buffer
		if err := listScanHistory(context.Background(), &buf, db, "10.0.0.1"); err != nil {
			t.Fatalf("listScanHistory() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No scan history found for 10.0.0.1") {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("scans are listed with their open ports", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		db, _, ids := historyDB(t,
			storedScan("10.0.0.1", now.Add(-time.Hour), comparePorts),
			storedScan("10.0.0.1", now, comparePorts, 22, 443),
		)
		var buf bytes.Buffer
		if err := listScanHistory(context.Background(), &buf, db, "10.0.0.1"); err != nil {
			t.Fatalf("listScanHistory() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"(2 scans)", "22, 443", "none", strconv.FormatInt(ids[1], 10)} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})
}

func TestRunComparison(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

	t.Run("latest two scans are compared", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t,
			storedScan("10.0.0.1", base, comparePorts, 22, 80),
			storedScan("10.0.0.1", base.Add(time.Hour), comparePorts, 80, 443),
		)
		var buf bytes.Buffer
		if err := runComparison(context.Background(), &buf, db, "10.0.0.1", compareOptions{}); err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Status: CHANGED", "[+] 443/tcp", "[-] 22/tcp"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("JSON output lists the differences", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t,
			storedScan("10.0.0.1", base, comparePorts, 22),
			storedScan("10.0.0.1", base.Add(time.Hour), comparePorts, 22, 21),
		)
		var buf bytes.Buffer
		if err := runComparison(context.Background(), &buf, db, "10.0.0.1", compareOptions{json: true}); err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		var c model.Comparison
		if err := json.Unmarshal(buf.Bytes(), &c); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(c.NewlyOpened) != 1 || c.NewlyOpened[0] != 21 {
			t.Errorf("NewlyOpened = %v, want [21]", c.NewlyOpened)
		}
		if len(c.Unchanged) != 1 || c.Unchanged[0] != 22 {
			t.Errorf("Unchanged = %v, want [22]", c.Unchanged)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t,
			storedScan("10.0.0.1", base, comparePorts, 22),
			storedScan("10.0.0.1", base.Add(time.Hour), comparePorts, 22),
		)
		var buf bytes.Buffer
		if err := runComparison(context.Background(), &buf, db, "10.0.0.1", compareOptions{markdown: true}); err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		if !strings.Contains(buf.String(), "# Scan Comparison: 10.0.0.1") {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("specific scan ID", func(t *testing.T) {
		t.Parallel()

		db, _, ids := historyDB(t,
			storedScan("10.0.0.1", base, comparePorts, 21),
			storedScan("10.0.0.1", base.Add(time.Hour), comparePorts, 22),
			storedScan("10.0.0.1", base.Add(2*time.Hour), comparePorts, 22),
		)
		var buf bytes.Buffer
		opts := compareOptions{withScanID: ids[0], json: true}
		if err := runComparison(context.Background(), &buf, db, "10.0.0.1", opts); err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		var c model.Comparison
		if err := json.Unmarshal(buf.Bytes(), &c); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(c.NewlyClosed) != 1 || c.NewlyClosed[0] != 21 {
			t.Errorf("NewlyClosed = %v, want [21]", c.NewlyClosed)
		}
	})

	t.Run("since date picks the oldest scan on or after it", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t,
			storedScan("10.0.0.1", base.AddDate(0, 0, -5), comparePorts, 21),
			storedScan("10.0.0.1", base, comparePorts, 80),
			storedScan("10.0.0.1", base.AddDate(0, 0, 1), comparePorts, 443),
		)
		var buf bytes.Buffer
		opts := compareOptions{since: base.Format(sinceLayout), json: true}
		if err := runComparison(context.Background(), &buf, db, "10.0.0.1", opts); err != nil {
			t.Fatalf("runComparison() error = %v", err)
		}
		var c model.Comparison
		if err := json.Unmarshal(buf.Bytes(), &c); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(c.NewlyClosed) != 1 || c.NewlyClosed[0] != 80 {
			t.Errorf("NewlyClosed = %v, want [80]", c.NewlyClosed)
		}
	})
}

func TestRunComparisonErrors(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

	t.Run("no history", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t)
		err := runComparison(context.Background(), io.Discard, db, "10.0.0.1", compareOptions{})
		if err == nil || !strings.Contains(err.Error(), "no scan history") {
			t.Errorf("expected no history error, got %v", err)
		}
	})

	t.Run("single scan", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t, storedScan("10.0.0.1", base, comparePorts, 22))
		err := runComparison(context.Background(), io.Discard, db, "10.0.0.1", compareOptions{})
		if err == nil || !strings.Contains(err.Error(), "at least 2 scans") {
			t.Errorf("expected at least 2 scans error, got %v", err)
		}
	})

	t.Run("scan ID of another address", func(t *testing.T) {
		t.Parallel()

		db, _, ids := historyDB(t,
			storedScan("10.0.0.2", base, comparePorts, 22),
			storedScan("10.0.0.1", base, comparePorts, 22),
		)
		err := runComparison(context.Background(), io.Discard, db, "10.0.0.1", compareOptions{withScanID: ids[0]})
		if err == nil || !strings.Contains(err.Error(), "belongs to 10.0.0.2") {
			t.Errorf("expected ownership error, got %v", err)
		}
	})

	t.Run("unknown scan ID", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t, storedScan("10.0.0.1", base, comparePorts, 22))
		err := runComparison(context.Background(), io.Discard, db, "10.0.0.1", compareOptions{withScanID: 999})
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("malformed since date", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t, storedScan("10.0.0.1", base, comparePorts, 22))
		err := runComparison(context.Background(), io.Discard, db, "10.0.0.1", compareOptions{since: "10/03/2025"})
		if err == nil || !strings.Contains(err.Error(), "invalid date format") {
			t.Errorf("expected date format error, got %v", err)
		}
	})

	t.Run("since date matching only the latest scan", func(t *testing.T) {
		t.Parallel()

		db, _, _ := historyDB(t,
			storedScan("10.0.0.1", base.AddDate(0, 0, -3), comparePorts, 22),
			storedScan("10.0.0.1", base, comparePorts, 22),
		)
		err := runComparison(context.Background(), io.Discard, db, "10.0.0.1", compareOptions{since: base.Format(sinceLayout)})
		if err == nil || !strings.Contains(err.Error(), "only one scan") {
			t.Errorf("expected only one scan error, got %v", err)
		}
	})
}

func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	t.Run("address is required", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		cmd.SetArgs([]string{"--db-dir", t.TempDir()})
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "address is required") {
			t.Errorf("expected address required error, got %v", err)
		}
	})

	t.Run("conflicting output formats", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		cmd.SetArgs([]string{"--db-dir", t.TempDir(), "--json", "--markdown", "10.0.0.1"})
		if err := cmd.Execute(); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("missing database is reported", func(t *testing.T) {
		t.Parallel()

		cmd := NewCompareCmd()
		cmd.SetArgs([]string{"--db-dir", t.TempDir(), "10.0.0.1"})
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "run a scan first") {
			t.Errorf("expected missing database error, got %v", err)
		}
	})

	t.Run("end to end comparison", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		db, dir, _ := historyDB(t,
			storedScan("10.0.0.1", now.Add(-time.Hour), comparePorts, 22),
			storedScan("10.0.0.1", now, comparePorts, 22, 80),
		)
		_ = db.Close()

		cmd := NewCompareCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "10.0.0.1"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(buf.String(), "[+] 80/tcp") {
			t.Errorf("expected newly opened port 80, got %q", buf.String())
		}
	})

	t.Run("list targets without an address", func(t *testing.T) {
		t.Parallel()

		db, dir, _ := historyDB(t, storedScan("10.0.0.9", time.Now(), comparePorts, 22))
		_ = db.Close()

		cmd := NewCompareCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--db-dir", dir, "-L"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(buf.String(), "10.0.0.9") {
			t.Errorf("expected 10.0.0.9 to be listed, got %q", buf.String())
		}
	})
}
