// Package database keeps the scan history in a single SQLite file
// (modernc.org/sqlite, no cgo) so that the compare command can diff the open
// ports of successive scans of the same host.
package database
