package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	vrlog "github.com/nao1215/vrscan/internal/log"
)

// NewRootCmd creates the root command for vrscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vrscan",
		Short: "Visual regression scanner for websites",
		Long: `vrscan captures every page of a site at several device viewports with
headless Chrome and compares the screenshots against stored baselines.

The first scan records the baselines. Later scans report each page and
viewport as pass, fail (the page looks different) or error (the page could
not be checked). Use --update to accept intended changes.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", vrlog.FormatText, "Log output format: text or json")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewDiscoverCmd())
	cmd.AddCommand(NewBaselinesCmd())
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

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormat retrieves the log format flag from the command or its parent.
func getLogFormat(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return vrlog.FormatText
		}
	}
	return format
}
