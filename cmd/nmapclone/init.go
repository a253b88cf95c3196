package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mihaiandreineacsu/nmapclone/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/nmapclone.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new nmapclone configuration file",
		Long: `Initialize creates a new .nmapclone configuration file in the current directory.

The generated file includes:
- Default probe timeout and concurrency
- Commented examples for per-target overrides
- Documentation for all available options

Examples:
  # Create .nmapclone in current directory
  nmapclone init

  # Create config file at a specific path
  nmapclone init -o myconfig.yaml

  # Force overwrite existing file
  nmapclone init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/nmapclone.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Default port range and probe timeout")
	fmt.Fprintln(out, "  - Per-target concurrency and packet rate")
	fmt.Fprintln(out, "  - Banner grabbing and its SOCKS5 proxy")

	return nil
}
