package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mihaiandreineacsu/nmapclone/internal/config"
	"github.com/mihaiandreineacsu/nmapclone/internal/database"
	"github.com/mihaiandreineacsu/nmapclone/internal/model"
	"github.com/mihaiandreineacsu/nmapclone/internal/report"
	"github.com/spf13/cobra"
)

// sinceLayout is the date format accepted by --since.
const sinceLayout = "2006-01-02"

// NewCompareCmd creates the compare command.
// This command compares scan results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [address]",
		Short: "Compare open ports with an earlier scan",
		Long: `Compare displays how the open ports of a host changed between two scans.

This command retrieves stored scans from the history database and shows:
- Ports that are newly open since the previous scan
- Ports that were open and are now closed
- Ports that stayed open

The comparison requires at least two scans of the address. Use
'nmapclone scan' to perform scans; they are saved unless --no-save is given.

Examples:
  # Compare the latest two scans of a host
  nmapclone compare 192.168.1.10

  # List the scan history of a host
  nmapclone compare --list 192.168.1.10

  # Compare the latest scan with a specific earlier scan
  nmapclone compare --with-scan-id 5 192.168.1.10

  # Compare with the first scan since a date
  nmapclone compare --since 2025-01-01 192.168.1.10

  # List every scanned address
  nmapclone compare --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified address")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all scanned addresses in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the scan history database")

	return cmd
}

// compareOptions selects the earlier scan and the output format.
type compareOptions struct {
	withScanID int64
	since      string
	json       bool
	markdown   bool
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listTargets, err := cmd.Flags().GetBool("list-targets")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var address string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("address is required (use --list-targets to see scanned addresses)")
		}
		address = strings.TrimSpace(args[0])
	}

	var opts compareOptions
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.withScanID, err = cmd.Flags().GetInt64("with-scan-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listTargets {
		return listScannedTargets(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, out, db, address)
	}

	return runComparison(ctx, out, db, address, opts)
}

// listScannedTargets lists all addresses that have scan records in the database.
func listScannedTargets(ctx context.Context, out io.Writer, db *database.ScanDB) error {
	targets, err := db.ListScannedTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No scanned addresses found in the database.")
		fmt.Fprintln(out, "\nUse 'nmapclone scan -a <address> -p <ports>' to scan a host.")
		return nil
	}

	fmt.Fprintf(out, "Scanned addresses (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  • %s\n", target)
	}
	fmt.Fprintln(out, "\nUse 'nmapclone compare --list <address>' to see scan history for an address.")

	return nil
}

// listScanHistory lists all scan records for a specific address.
func listScanHistory(ctx context.Context, out io.Writer, db *database.ScanDB, address string) error {
	reports, err := db.GetScanHistoryWithMetadata(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", address)
		fmt.Fprintln(out, "\nUse 'nmapclone scan' to scan this address.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", address, len(reports))
	fmt.Fprintf(out, "  %-6s  %-20s  %-15s  %s\n", "ID", "Date", "IP", "Open Ports")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range reports {
		fmt.Fprintf(out, "  %-6d  %-20s  %-15s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.IP,
			formatPortList(meta.OpenPorts),
		)
	}

	fmt.Fprintln(out, "\nUse 'nmapclone compare <address>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'nmapclone compare --with-scan-id <id> <address>' to compare with a specific scan.")

	return nil
}

// formatPortList renders open ports as "22, 80, 443", or "none".
func formatPortList(ports []int) string {
	if len(ports) == 0 {
		return "none"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}

// selectPrevious picks the scan the latest one is compared against.
// reports are ordered newest first.
func selectPrevious(ctx context.Context, db *database.ScanDB, address string, reports []*model.ScanReport, opts compareOptions) (*model.ScanReport, error) {
	current := reports[0]

	switch {
	case opts.withScanID > 0:
		previous, err := db.GetScanReportByID(ctx, opts.withScanID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scan with ID %d: %w", opts.withScanID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("scan with ID %d not found", opts.withScanID)
		}
		if previous.Address != address {
			return nil, fmt.Errorf("scan ID %d belongs to %s, not %s", opts.withScanID, previous.Address, address)
		}
		return previous, nil

	case opts.since != "":
		sinceDate, err := time.ParseInLocation(sinceLayout, opts.since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Oldest report at or after the date.
		var previous *model.ScanReport
		for i := len(reports) - 1; i >= 0; i-- {
			if !reports[i].DateScanned.Before(sinceDate) {
				previous = reports[i]
				break
			}
		}
		if previous == nil {
			return nil, fmt.Errorf("no scans found since %s", opts.since)
		}
		if previous == current {
			return nil, fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", opts.since)
		}
		return previous, nil

	default:
		if len(reports) < 2 {
			return nil, fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
		}
		return reports[1], nil
	}
}

// runComparison compares the latest scan of address with an earlier one.
func runComparison(ctx context.Context, out io.Writer, db *database.ScanDB, address string, opts compareOptions) error {
	reports, err := db.GetScanHistory(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", address)
	}

	previous, err := selectPrevious(ctx, db, address, reports, opts)
	if err != nil {
		return err
	}

	comparison := model.CompareScans(previous, reports[0])

	var writer report.Writer
	switch {
	case opts.json:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		writer = report.NewMarkdownWriter(out)
	default:
		writer = report.NewSimpleWriter(out)
	}

	_, err = writer.WriteComparison(comparison)
	return err
}
