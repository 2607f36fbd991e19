package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/config"
	"github.com/nao1215/vrscan/internal/database"
	vrlog "github.com/nao1215/vrscan/internal/log"
	"github.com/nao1215/vrscan/internal/metrics"
	"github.com/nao1215/vrscan/internal/model"
	"github.com/nao1215/vrscan/internal/pipeline"
	"github.com/nao1215/vrscan/internal/report"
	"github.com/nao1215/vrscan/internal/snapshot"
)

// ErrVisualChanges is returned by scan when a check failed or errored.
var ErrVisualChanges = errors.New("visual changes detected")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the pages of a site for visual changes",
		Long: `Scan loads every page listed in the scan file at every viewport, takes a
screenshot and compares it with the stored baseline.

A page/viewport pair without a baseline records one and passes. The exit
status is non-zero when any check failed or errored, so scan can gate a CI
pipeline. Use --no-fail to only report.

Examples:
  # Scan using .vrscan from the current or home directory
  vrscan scan

  # Scan a staging deployment with the same page list
  vrscan scan --base-url https://staging.example.com

  # Accept the current rendering as the new baselines
  vrscan scan --update

  # Markdown report for a CI job summary
  vrscan scan --markdown -o report.md

  # Inside a container
  vrscan scan --no-sandbox --chrome-path /usr/bin/chromium`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	// Input flags
	cmd.Flags().StringP("config", "c", "",
		"Scan file path (default: .vrscan in current or home directory)")
	cmd.Flags().StringP("base-url", "u", "",
		"Base URL for page hrefs (overrides baseURL in the scan file)")

	// Comparison flags
	cmd.Flags().BoolP("update", "U", false,
		"Overwrite baselines with the new screenshots")
	cmd.Flags().Float64("threshold", config.DefaultThreshold,
		"Fraction of pixels that may differ before a check fails (0-1)")

	// Browser flags
	cmd.Flags().Duration("settle", config.DefaultSettleDelay,
		"Delay between page load and screenshot")
	cmd.Flags().Duration("check-timeout", 0,
		"Timeout for a single page/viewport check (0 = no limit)")
	cmd.Flags().Duration("launch-timeout", 0,
		"Timeout for starting the browser (0 = no limit)")
	cmd.Flags().Int("max-tabs", 0,
		"Maximum concurrent tabs per page (0 = one per viewport)")
	cmd.Flags().String("chrome-path", "",
		"Chrome or Chromium binary (default: search the usual locations)")
	cmd.Flags().Bool("no-sandbox", false,
		"Disable the Chrome sandbox (needed in some containers)")
	cmd.Flags().String("proxy", "",
		"Proxy server for the browser (e.g., socks5://127.0.0.1:1080)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file (node_exporter textfile format)")

	// Storage and exit status flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the baseline and history database")
	cmd.Flags().Bool("no-history", false,
		"Do not save this run to the history database")
	cmd.Flags().Bool("no-fail", false,
		"Exit with status zero even when checks fail")

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

	logger, err := setupLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
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

	return runScan(ctx, cfg, newChrome(cfg, logger), cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from cobra command flags and the scan file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
		return nil, err
	}
	if cfg.Update, err = flags.GetBool("update"); err != nil {
		return nil, err
	}
	if cfg.Threshold, err = flags.GetFloat64("threshold"); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = flags.GetDuration("settle"); err != nil {
		return nil, err
	}
	if cfg.CheckTimeout, err = flags.GetDuration("check-timeout"); err != nil {
		return nil, err
	}
	if cfg.LaunchTimeout, err = flags.GetDuration("launch-timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxTabs, err = flags.GetInt("max-tabs"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if cfg.NoSandbox, err = flags.GetBool("no-sandbox"); err != nil {
		return nil, err
	}
	if cfg.ProxyServer, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.NoHistory, err = flags.GetBool("no-history"); err != nil {
		return nil, err
	}
	if cfg.NoFail, err = flags.GetBool("no-fail"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormat(cmd)

	if cfg.ScanFile, err = loadScanFile(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadScanFile finds and loads the scan file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise a missing file yields nil and Validate reports what is missing.
func loadScanFile(configPath string) (*config.File, error) {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("scan file not found: %s", configPath)
		}
		return nil, nil
	}

	f, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan file %s: %w", path, err)
	}
	return f, nil
}

// setupLogger creates the secure logger and registers the scan file's
// cookie values as secrets.
func setupLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	logger, err := vrlog.NewLogger(w, cfg.LogFormat, cfg.Verbose)
	if err != nil {
		return nil, err
	}
	if cfg.ScanFile == nil {
		return logger, nil
	}

	cookies := cfg.ScanFile.ScanOptions("").CookieStrings()
	return vrlog.WithSecrets(logger, slices.Collect(maps.Values(cookies))...), nil
}

// newChrome creates the browser engine from the configuration.
func newChrome(cfg *config.Config, logger *slog.Logger) *browser.Chrome {
	return browser.NewChrome(
		browser.WithExecPath(cfg.ChromePath),
		browser.WithNoSandbox(cfg.NoSandbox),
		browser.WithProxyServer(cfg.ProxyServer),
		browser.WithLaunchTimeout(cfg.LaunchTimeout),
		browser.WithLogger(logger),
	)
}

// runScan executes the scan with engine and writes the report to stdout
// or the configured report file.
func runScan(ctx context.Context, cfg *config.Config, engine browser.Engine, stdout io.Writer, logger *slog.Logger) error {
	catalog, err := cfg.ScanFile.Catalog()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	opts := cfg.ScanFile.ScanOptions(cfg.BaseURL)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Debug("database opened", "path", db.Path())

	store := snapshot.NewStore(db,
		snapshot.WithThreshold(cfg.Threshold),
		snapshot.WithUpdate(cfg.Update),
		snapshot.WithLogger(logger),
	)

	scannerOpts := []pipeline.ScannerOption{
		pipeline.WithCatalog(catalog),
		pipeline.WithSettleDelay(cfg.SettleDelay),
		pipeline.WithCheckTimeout(cfg.CheckTimeout),
		pipeline.WithMaxTabs(cfg.MaxTabs),
		pipeline.WithScannerLogger(logger),
	}
	var collector *metrics.Collector
	if cfg.MetricsFile != "" {
		collector = metrics.NewCollector()
		scannerOpts = append(scannerOpts, pipeline.WithObserver(collector))
	}

	scanner := pipeline.NewScanner(engine, store, scannerOpts...)

	logger.Info("starting scan",
		"base_url", opts.BaseURL,
		"pages", len(cfg.ScanFile.Pages),
		"viewports", catalog.Names(),
		"update", cfg.Update,
	)
	startTime := time.Now()

	run, scanErr := scanner.Run(ctx, cfg.ScanFile.Pages, opts)

	// History and metrics are kept for aborted runs too.
	if !cfg.NoHistory {
		if err := db.SaveScanRun(ctx, run); err != nil {
			logger.Error("failed to save scan run", "run", run.ID, "error", err)
		}
	}
	if collector != nil {
		collector.ObserveRun(run)
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "error", err)
		}
	}

	if scanErr != nil {
		return fmt.Errorf("scan failed: %w", scanErr)
	}

	logger.Info("scan completed", "run", run.ID, "elapsed", time.Since(startTime).Round(time.Millisecond))

	if err := outputReport(cfg, run, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	summary := run.Summarize()
	if summary.HasChanges() && !cfg.NoFail {
		return fmt.Errorf("%w: %d failed, %d errored of %d checks",
			ErrVisualChanges, summary.Failed, summary.Errored, summary.Checks)
	}
	return nil
}

// outputReport writes the run in the requested format.
// With a report file, stdout still gets the text report so CI logs show
// the result.
func outputReport(cfg *config.Config, run *model.ScanRun, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, report.WithVerbose(cfg.Verbose)))
	}

	_, err := writer.Write(run)
	return err
}
