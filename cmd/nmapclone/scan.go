package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mihaiandreineacsu/nmapclone/internal/config"
	"github.com/mihaiandreineacsu/nmapclone/internal/database"
	applog "github.com/mihaiandreineacsu/nmapclone/internal/log"
	"github.com/mihaiandreineacsu/nmapclone/internal/model"
	"github.com/mihaiandreineacsu/nmapclone/internal/packet"
	"github.com/mihaiandreineacsu/nmapclone/internal/pipeline"
	"github.com/mihaiandreineacsu/nmapclone/internal/portrange"
	"github.com/mihaiandreineacsu/nmapclone/internal/probe"
	"github.com/mihaiandreineacsu/nmapclone/internal/protocol"
	"github.com/mihaiandreineacsu/nmapclone/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/net/proxy"
)

// ErrScanIncomplete is returned after the report was written when at least
// one port unit failed or never ran.
var ErrScanIncomplete = errors.New("scan incomplete: some ports could not be classified")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the TCP ports of a host",
		Long: `Scan classifies every port of the given range as open or closed.

Each port runs the decision procedure independently; at most --concurrency
ports are probed at once. Open ports are fingerprinted unless --no-os is
given, and identified by their banner with --identify.

Examples:
  # Scan the well-known ports of a host
  nmapclone scan -a 192.168.1.10 -p 0-1023

  # Scan a single port and log every probe
  nmapclone -d scan -a scanme.example.org -p 22

  # Scan all ports at 500 packets per second and write a Markdown report
  nmapclone scan -a 10.0.0.5 -p - --rate 500 --markdown -o report.md

  # Identify services through a SOCKS5 proxy
  nmapclone scan -a 10.0.0.5 -p 20-25 --identify --proxy socks5://127.0.0.1:1080

Configuration file (.nmapclone) example:
  defaults:
    timeout: 1500ms
    concurrency: 200
  targets:
    192.168.1.10:
      ports: "20-443"
      identify: true`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	// Target flags
	cmd.Flags().StringP("address", "a", "",
		"Target host name or IPv4 address")
	cmd.Flags().StringP("ports", "p", "",
		`Port range: a single port ("443"), a range ("20-25") or "-" for all ports`)

	// Probe flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Reply timeout of each probe")
	cmd.Flags().Duration("rst-delay", config.DefaultRSTDelay,
		"Delay before the RST that closes a half-open connection")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of ports probed in parallel")
	cmd.Flags().Int("max-sockets", config.DefaultMaxSockets,
		"Maximum raw sockets open at once (a TCP probe holds 2)")
	cmd.Flags().Float64("rate", 0,
		"Maximum outbound packets per second (0 = unlimited)")
	cmd.Flags().String("half-open-flag", config.DefaultHalfOpenFlag,
		`Flag sent by the half-open probe: "syn" or "ack"`)

	// Open port analysis flags
	cmd.Flags().Bool("os", true,
		"Guess the operating system of open ports")
	cmd.Flags().Bool("no-os", false,
		"Disable OS fingerprinting")
	cmd.Flags().Bool("identify", false,
		"Identify the application behind open ports from its banner")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy URL for banner grabbing (e.g., socks5://127.0.0.1:1080)")
	cmd.Flags().Duration("banner-timeout", config.DefaultBannerTimeout,
		"Read timeout of each banner probe")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .nmapclone in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not store the scan in the history database")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON lines")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cmd.OutOrStdout(), cfg, logger)
}

// getDebugFlag retrieves the debug flag from the command or its parent.
func getDebugFlag(cmd *cobra.Command) bool {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		debug, err = cmd.Root().PersistentFlags().GetBool("debug")
		if err != nil {
			return false
		}
	}
	return debug
}

// buildConfig creates a Config from the defaults, the profile file and the
// command line, in increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.Address, err = flags.GetString("address")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit config path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyProfile(file.GetProfile(cfg.Address))
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	overrides := []struct {
		name  string
		apply func() error
	}{
		{"ports", func() (err error) { cfg.PortExpression, err = flags.GetString("ports"); return }},
		{"timeout", func() (err error) { cfg.Timeout, err = flags.GetDuration("timeout"); return }},
		{"rst-delay", func() (err error) { cfg.RSTDelay, err = flags.GetDuration("rst-delay"); return }},
		{"concurrency", func() (err error) { cfg.Concurrency, err = flags.GetInt("concurrency"); return }},
		{"max-sockets", func() (err error) { cfg.MaxSockets, err = flags.GetInt("max-sockets"); return }},
		{"rate", func() (err error) { cfg.Rate, err = flags.GetFloat64("rate"); return }},
		{"half-open-flag", func() (err error) { cfg.HalfOpenFlag, err = flags.GetString("half-open-flag"); return }},
		{"os", func() (err error) { cfg.OSDetect, err = flags.GetBool("os"); return }},
		{"identify", func() (err error) { cfg.Identify, err = flags.GetBool("identify"); return }},
		{"proxy", func() (err error) { cfg.Proxy, err = flags.GetString("proxy"); return }},
		{"banner-timeout", func() (err error) { cfg.BannerTimeout, err = flags.GetDuration("banner-timeout"); return }},
	}
	for _, o := range overrides {
		if !flags.Changed(o.name) {
			continue
		}
		if err := o.apply(); err != nil {
			return nil, err
		}
	}

	noOS, err := flags.GetBool("no-os")
	if err != nil {
		return nil, err
	}
	if noOS {
		cfg.OSDetect = false
	}

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.LogJSON, err = flags.GetBool("log-json")
	if err != nil {
		return nil, err
	}

	cfg.Debug = getDebugFlag(cmd)

	return cfg, nil
}

// setupLogger creates the logger every component receives.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return applog.NewJSONLogger(w, cfg.Debug)
	}
	return applog.NewLogger(w, cfg.Debug)
}

// prepareTarget parses the port range and resolves the address. Every
// problem that makes a scan pointless is reported here, before a single
// packet leaves the host.
func prepareTarget(ctx context.Context, cfg *config.Config) (model.Target, []int, error) {
	ports, err := portrange.Parse(cfg.PortExpression)
	if err != nil {
		return model.Target{}, nil, err
	}

	ip, err := packet.ResolveIPv4(ctx, cfg.Address)
	if err != nil {
		return model.Target{}, nil, err
	}

	return model.Target{Address: cfg.Address, IP: ip}, ports, nil
}

// runScan executes the scan.
func runScan(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	target, ports, err := prepareTarget(ctx, cfg)
	if err != nil {
		return err
	}

	if !packet.CanOpenRawSocket() {
		return packet.ErrNoPrivilege
	}

	var db *database.ScanDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "dir", cfg.DBDir)
	}

	transport := packet.NewRawTransport(
		packet.WithMaxSockets(cfg.MaxSockets),
		packet.WithTransportLogger(logger),
	)

	scanReport, scanErr := executeScan(ctx, cfg, target, ports, transport, logger)
	if scanReport == nil {
		return scanErr
	}

	if err := outputReport(out, cfg, scanReport); err != nil {
		logger.Error("report failed", "target", cfg.Address, "error", err)
	}

	if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
		logger.Error("failed to save scan report", "target", cfg.Address, "error", err)
	}

	if scanErr != nil {
		return scanErr
	}
	if !scanReport.Complete() {
		return ErrScanIncomplete
	}
	return nil
}

// executeScan probes ports of target through transport and blocks until
// every unit has finished or ctx is canceled.
func executeScan(
	ctx context.Context,
	cfg *config.Config,
	target model.Target,
	ports []int,
	transport packet.Transport,
	logger *slog.Logger,
) (*model.ScanReport, error) {
	halfOpen := packet.SYN
	if cfg.HalfOpenFlag == config.HalfOpenACK {
		halfOpen = packet.ACK
	}

	prober := probe.New(
		packet.NewRateLimited(transport, cfg.Rate),
		probe.WithLogger(logger),
		probe.WithTimeout(cfg.Timeout),
		probe.WithRSTDelay(cfg.RSTDelay),
		probe.WithHalfOpenFlags(halfOpen),
	)

	var identifier pipeline.Identifier
	if cfg.Identify {
		dialer, err := protocol.NewProxyDialer(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		identifier = protocol.NewBannerGrabber(grabberOptions(cfg, dialer, logger)...)
	}

	logger.Debug("scan settings",
		"concurrency", cfg.Concurrency,
		"max_sockets", cfg.MaxSockets,
		"timeout", cfg.Timeout.String(),
		"rate", cfg.Rate,
		"half_open_flag", cfg.HalfOpenFlag,
	)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return newPortPipeline(prober, identifier, cfg, logger)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	scanReport, err := bp.Scan(ctx, target, ports)
	scanReport.PortExpression = cfg.PortExpression

	summary := scanReport.Summary()
	logger.Info("scan finished",
		"target", target.Address,
		"open", summary.Open,
		"closed", summary.Closed,
		"errored", summary.Errored,
		"skipped", summary.Skipped,
		"duration", scanReport.Duration.String(),
	)

	return scanReport, err
}

// grabberOptions configures banner grabbing from cfg. Profile signatures are
// checked before the built-in ones.
func grabberOptions(cfg *config.Config, dialer proxy.Dialer, logger *slog.Logger) []protocol.BannerGrabberOption {
	opts := []protocol.BannerGrabberOption{
		protocol.WithDialer(dialer),
		protocol.WithBannerTimeout(cfg.BannerTimeout),
		protocol.WithAttempts(cfg.BannerAttempts),
		protocol.WithGrabberLogger(logger),
	}

	if len(cfg.Signatures) > 0 {
		signatures := make([]protocol.Signature, 0, len(cfg.Signatures)+len(protocol.DefaultSignatures))
		for _, sig := range cfg.Signatures {
			signatures = append(signatures, protocol.Signature{Pattern: sig.Pattern, Name: sig.Name})
		}
		opts = append(opts, protocol.WithSignatures(append(signatures, protocol.DefaultSignatures...)))
	}

	if len(cfg.ProbeMessages) > 0 {
		probes := make([][]byte, len(cfg.ProbeMessages))
		for i, msg := range cfg.ProbeMessages {
			probes[i] = []byte(msg)
		}
		opts = append(opts, protocol.WithProbeMessages(probes...))
	}
	return opts
}

// newPortPipeline builds the per-port pipeline: the decision procedure,
// then fingerprinting and identification of open ports when enabled.
func newPortPipeline(prober *probe.Prober, identifier pipeline.Identifier, cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.DecisionPipeline(prober, pipeline.WithLogger(logger))

	if cfg.OSDetect {
		p.AddStep(pipeline.NewFingerprintStep(prober, pipeline.WithFingerprintLogger(logger)))
	}
	if identifier != nil {
		p.AddStep(pipeline.NewIdentifyStep(identifier, pipeline.WithIdentifyLogger(logger)))
	}

	return p
}

// openOutput returns the report destination: stdout, or cfg.ReportFile
// created with owner-only permissions.
func openOutput(stdout io.Writer, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// outputReport outputs the scan report in the requested format.
func outputReport(stdout io.Writer, cfg *config.Config, scanReport *model.ScanReport) error {
	output, closeOutput, err := openOutput(stdout, cfg)
	if err != nil {
		return err
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewVersionedJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Debug))
	}

	// A report written to a file is echoed to the terminal as text.
	if cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Debug)))
	}

	if _, err := writer.Write(scanReport); err != nil {
		_ = closeOutput() //nolint:errcheck // the write error is more useful
		return err
	}
	return closeOutput()
}

// saveScanReport saves the scan report to the database.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.ScanDB, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// A canceled scan is still worth keeping.
	id, err := db.SaveScanReport(context.WithoutCancel(ctx), scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Debug("scan report saved to database",
		"target", scanReport.Address,
		"id", id,
		"path", db.Path(),
	)
	return nil
}
