package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for nmapclone.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nmapclone",
		Short: "Raw packet TCP port scanner",
		Long: `nmapclone scans the TCP ports of one IPv4 host with raw packets.

Every port runs a fixed decision procedure: an ICMP echo and an ACK probe
gate on liveness and filtering, then half-open, window and connect probes
look for an open port, and null, Xmas and FIN probes confirm a closed one.
Open ports can additionally be fingerprinted (TTL and window size) and
identified by their service banner.

Raw sockets require root or CAP_NET_RAW.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("debug", "d", false, "Log every probe classification")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
