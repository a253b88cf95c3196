package model

import (
	"slices"
	"time"
)

// ScanMetadata identifies one side of a comparison.
type ScanMetadata struct {
	DateScanned time.Time `json:"date_scanned"`
	OpenCount   int       `json:"open_count"`
	Summary     Summary   `json:"summary"`
}

// Comparison is the open-port difference between two scans of one host.
type Comparison struct {
	Address string `json:"address"`

	PreviousScan ScanMetadata `json:"previous_scan"`
	CurrentScan  ScanMetadata `json:"current_scan"`

	// NewlyOpened lists ports open now but not before.
	NewlyOpened []int `json:"newly_opened"`

	// NewlyClosed lists ports open before but not now.
	NewlyClosed []int `json:"newly_closed"`

	// Unchanged lists ports open in both scans.
	Unchanged []int `json:"unchanged"`

	// NotCompared lists ports open in one scan that the other scan did not
	// probe to a verdict.
	NotCompared []int `json:"not_compared"`
}

// Changed reports whether the set of open ports differs.
func (c *Comparison) Changed() bool {
	return len(c.NewlyOpened) > 0 || len(c.NewlyClosed) > 0
}

// CompareScans diffs the open ports of previous and current. Only ports
// both scans probed to a verdict are classified as opened, closed or
// unchanged; open ports outside that overlap land in NotCompared. All port
// lists in the result are sorted and never nil.
func CompareScans(previous, current *ScanReport) *Comparison {
	prevOpen := previous.OpenPortNumbers()
	curOpen := current.OpenPortNumbers()
	prevProbed := previous.ProbedPortNumbers()
	curProbed := current.ProbedPortNumbers()

	c := &Comparison{
		Address: current.Address,
		PreviousScan: ScanMetadata{
			DateScanned: previous.DateScanned,
			OpenCount:   len(prevOpen),
			Summary:     previous.Summary(),
		},
		CurrentScan: ScanMetadata{
			DateScanned: current.DateScanned,
			OpenCount:   len(curOpen),
			Summary:     current.Summary(),
		},
		NewlyOpened: []int{},
		NewlyClosed: []int{},
		Unchanged:   []int{},
		NotCompared: []int{},
	}

	for _, p := range curOpen {
		switch {
		case !contains(prevProbed, p):
			c.NotCompared = append(c.NotCompared, p)
		case contains(prevOpen, p):
			c.Unchanged = append(c.Unchanged, p)
		default:
			c.NewlyOpened = append(c.NewlyOpened, p)
		}
	}
	for _, p := range prevOpen {
		switch {
		case !contains(curProbed, p):
			c.NotCompared = append(c.NotCompared, p)
		case !contains(curOpen, p):
			c.NewlyClosed = append(c.NewlyClosed, p)
		}
	}
	slices.Sort(c.NotCompared)
	return c
}

// contains reports whether the sorted slice ports holds p.
func contains(ports []int, p int) bool {
	_, found := slices.BinarySearch(ports, p)
	return found
}
