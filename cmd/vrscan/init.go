package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/vrscan/internal/config"
)

//go:embed templates/vrscan.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new vrscan scan file",
		Long: `Initialize creates a new .vrscan scan file in the current directory.

The generated file includes:
- The base URL and an example page list
- Commented examples for cookies, viewports and discovery settings

Examples:
  # Create .vrscan in current directory
  vrscan init

  # Create the scan file at a specific path
  vrscan init -o ci/vrscan.yaml

  # Force overwrite existing file
  vrscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the scan file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing scan file")

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
			return fmt.Errorf("scan file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/vrscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read scan file template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may end up holding session cookies.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write scan file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created scan file: %s\n", outputPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  - Set baseURL and list your pages (vrscan discover <url> helps)")
	fmt.Fprintln(out, "  - Run vrscan scan once to record the baselines")
	fmt.Fprintln(out, "  - Run vrscan scan again after each change to catch regressions")

	return nil
}
