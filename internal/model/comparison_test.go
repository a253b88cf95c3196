package model

import (
	"errors"
	"net"
	"slices"
	"testing"
	"time"
)

func scanWithOpen(scanned time.Time, ports []int, open ...int) *ScanReport {
	r := NewScanReport("host.test", net.ParseIP("192.0.2.1"))
	r.DateScanned = scanned
	for _, port := range ports {
		pr := NewPortReport(Target{Address: "host.test", Port: port})
		pr.Conclude(slices.Contains(open, port), "half-open")
		r.Ports = append(r.Ports, pr)
	}
	return r
}

func TestCompareScans(t *testing.T) {
	t.Parallel()

	ports := []int{21, 22, 25, 80, 443}
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	after := before.Add(24 * time.Hour)

	t.Run("ports are split into opened, closed and unchanged", func(t *testing.T) {
		t.Parallel()

		c := CompareScans(scanWithOpen(before, ports, 22, 80), scanWithOpen(after, ports, 80, 443, 21))

		if !slices.Equal(c.NewlyOpened, []int{21, 443}) {
			t.Errorf("NewlyOpened = %v", c.NewlyOpened)
		}
		if !slices.Equal(c.NewlyClosed, []int{22}) {
			t.Errorf("NewlyClosed = %v", c.NewlyClosed)
		}
		if !slices.Equal(c.Unchanged, []int{80}) {
			t.Errorf("Unchanged = %v", c.Unchanged)
		}
		if !c.Changed() {
			t.Error("expected Changed() true")
		}
		if c.PreviousScan.OpenCount != 2 || c.CurrentScan.OpenCount != 3 {
			t.Errorf("unexpected counts: %d, %d", c.PreviousScan.OpenCount, c.CurrentScan.OpenCount)
		}
		if !c.CurrentScan.DateScanned.Equal(after) {
			t.Errorf("unexpected current date %v", c.CurrentScan.DateScanned)
		}
	})

	t.Run("identical scans have no change and non-nil lists", func(t *testing.T) {
		t.Parallel()

		c := CompareScans(scanWithOpen(before, ports), scanWithOpen(after, ports))

		if c.Changed() {
			t.Error("expected no change")
		}
		if c.NewlyOpened == nil || c.NewlyClosed == nil || c.Unchanged == nil {
			t.Error("expected empty, non-nil slices")
		}
	})

	t.Run("ports outside the common range are not compared", func(t *testing.T) {
		t.Parallel()

		previous := scanWithOpen(before, []int{20, 21, 22, 23, 24, 25}, 22)
		current := scanWithOpen(after, []int{80}, 80)

		c := CompareScans(previous, current)

		if len(c.NewlyClosed) != 0 || len(c.NewlyOpened) != 0 || len(c.Unchanged) != 0 {
			t.Errorf("expected no classified ports, got opened=%v closed=%v unchanged=%v",
				c.NewlyOpened, c.NewlyClosed, c.Unchanged)
		}
		if !slices.Equal(c.NotCompared, []int{22, 80}) {
			t.Errorf("NotCompared = %v", c.NotCompared)
		}
		if c.Changed() {
			t.Error("expected Changed() false")
		}
	})

	t.Run("overlapping ranges only diff the overlap", func(t *testing.T) {
		t.Parallel()

		previous := scanWithOpen(before, []int{20, 21, 22, 23}, 21, 22)
		current := scanWithOpen(after, []int{22, 23, 24, 25}, 23, 25)

		c := CompareScans(previous, current)

		if !slices.Equal(c.NewlyOpened, []int{23}) {
			t.Errorf("NewlyOpened = %v", c.NewlyOpened)
		}
		if !slices.Equal(c.NewlyClosed, []int{22}) {
			t.Errorf("NewlyClosed = %v", c.NewlyClosed)
		}
		if !slices.Equal(c.NotCompared, []int{21, 25}) {
			t.Errorf("NotCompared = %v", c.NotCompared)
		}
	})

	t.Run("an errored port in the current scan is not reported closed", func(t *testing.T) {
		t.Parallel()

		previous := scanWithOpen(before, []int{22, 80}, 22, 80)
		current := scanWithOpen(after, []int{22, 80}, 80)
		current.Ports[0].SetError(errors.New("send failed"))

		c := CompareScans(previous, current)

		if len(c.NewlyClosed) != 0 {
			t.Errorf("NewlyClosed = %v", c.NewlyClosed)
		}
		if !slices.Equal(c.NotCompared, []int{22}) {
			t.Errorf("NotCompared = %v", c.NotCompared)
		}
		if !slices.Equal(c.Unchanged, []int{80}) {
			t.Errorf("Unchanged = %v", c.Unchanged)
		}
	})
}
