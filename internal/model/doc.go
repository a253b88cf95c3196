// Package model defines the data structures shared by the scanner, the
// report writers and the scan history database.
//
// This package contains the following main types:
//   - Target: one host and port coordinate
//   - PortReport: the verdict and evidence for one port
//   - ScanReport: every PortReport of one scan run
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
