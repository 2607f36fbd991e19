package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/vrscan/internal/config"
	"github.com/nao1215/vrscan/internal/database"
)

// NewBaselinesCmd creates the baselines command.
func NewBaselinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baselines",
		Short: "List the stored baseline screenshots",
		Long: `Baselines lists every baseline screenshot in the database with its size
and the time it was last recorded.

Baseline names have the form page-<viewport>-<title>, where the title is
lowercased and every run of non-alphanumeric characters becomes "_".

Examples:
  # List all baselines
  vrscan baselines

  # Only baselines of the phone viewport
  vrscan baselines --prefix page-phone-`,
		Args: cobra.NoArgs,
		RunE: runBaselinesCmd,
	}

	cmd.Flags().String("prefix", "",
		"Only list baselines whose name starts with this prefix")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the baseline and history database")

	return cmd
}

// runBaselinesCmd executes the baselines command.
func runBaselinesCmd(cmd *cobra.Command, _ []string) error {
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return listBaselines(ctx, db, cmd.OutOrStdout(), prefix)
}

// listBaselines prints the stored baselines sorted by name.
func listBaselines(ctx context.Context, db *database.DB, w io.Writer, prefix string) error {
	all, err := db.ListBaselines(ctx)
	if err != nil {
		return fmt.Errorf("failed to list baselines: %w", err)
	}

	baselines := make([]database.BaselineInfo, 0, len(all))
	for _, b := range all {
		if strings.HasPrefix(b.Name, prefix) {
			baselines = append(baselines, b)
		}
	}

	if len(baselines) == 0 {
		fmt.Fprintln(w, "No baselines found in the database.")
		fmt.Fprintln(w, "\nUse 'vrscan scan' to record baselines.")
		return nil
	}

	fmt.Fprintf(w, "Baselines (%d):\n\n", len(baselines))
	fmt.Fprintf(w, "  %-50s  %-11s  %s\n", "Name", "Size", "Updated")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 82))
	for _, b := range baselines {
		fmt.Fprintf(w, "  %-50s  %-11s  %s\n",
			b.Name,
			fmt.Sprintf("%dx%d", b.Width, b.Height),
			b.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}
