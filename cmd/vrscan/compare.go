package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/vrscan/internal/config"
	"github.com/nao1215/vrscan/internal/database"
	"github.com/nao1215/vrscan/internal/model"
)

// Constants for the overall direction of a comparison.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
)

// defaultListLimit is the number of runs shown by --list.
const defaultListLimit = 20

// ErrNotEnoughRuns is returned when the history holds fewer than two runs
// to compare.
var ErrNotEnoughRuns = errors.New("at least 2 scan runs are required for comparison")

// NewCompareCmd creates the compare command.
// This command compares scan runs stored in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare scan runs from the history database",
		Long: `Compare displays the differences between the latest scan run and an
earlier one:
- Regressions: checks that passed before and fail or error now
- Recoveries: checks that failed or errored before and pass now
- Added and removed page/viewport checks

Every 'vrscan scan' saves its run unless --no-history is given. Runs are
compared per base URL; without --base-url the site of the latest run is used.
Aborted runs are kept in the history but never compared.

Examples:
  # Compare the latest two runs
  vrscan compare

  # List run history for a site
  vrscan compare --list --base-url https://example.com

  # Compare the latest run with a specific run
  vrscan compare --with-run-id 01JB6V2X3KQ4W8N0Y5R7T9C1DE

  # Output the comparison as Markdown
  vrscan compare --markdown`,
		Args: cobra.NoArgs,
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan run history")
	cmd.Flags().Int("limit", defaultListLimit,
		"Maximum number of runs listed by --list")

	// Comparison target flags
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare the latest run with this run (use --list to see available IDs)")
	cmd.Flags().StringP("base-url", "u", "",
		"Only consider runs of this base URL")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the baseline and history database")

	return cmd
}

// compareOptions holds the parsed flags of the compare command.
type compareOptions struct {
	list      bool
	limit     int
	withRunID string
	baseURL   string
	json      bool
	markdown  bool
	dbDir     string
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseCompareFlags(cmd)
	if err != nil {
		return err
	}

	// Validate before opening the database.
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", opts.limit)
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	if opts.list {
		return listRunHistory(ctx, db, out, opts.baseURL, opts.limit)
	}
	return runComparison(ctx, db, out, opts)
}

// parseCompareFlags reads the compare command flags.
func parseCompareFlags(cmd *cobra.Command) (compareOptions, error) {
	var opts compareOptions
	var err error
	flags := cmd.Flags()

	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = flags.GetString("with-run-id"); err != nil {
		return opts, err
	}
	if opts.baseURL, err = flags.GetString("base-url"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	return opts, nil
}

// listRunHistory prints the run history, newest first.
func listRunHistory(ctx context.Context, db *database.DB, w io.Writer, baseURL string, limit int) error {
	runs, err := db.ListRuns(ctx, baseURL, limit)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No scan runs found in the database.")
		fmt.Fprintln(w, "\nUse 'vrscan scan' to scan a site.")
		return nil
	}

	fmt.Fprintf(w, "Scan history (%d runs):\n\n", len(runs))
	fmt.Fprintf(w, "  %-26s  %-19s  %-30s  %s\n", "ID", "Date", "Base URL", "Outcomes")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 100))

	for _, meta := range runs {
		fmt.Fprintf(w, "  %-26s  %-19s  %-30s  %s\n",
			meta.ID,
			meta.StartedAt.Format("2006-01-02 15:04:05"),
			meta.BaseURL,
			formatOutcomes(meta),
		)
	}

	fmt.Fprintln(w, "\nUse 'vrscan compare' to compare the latest two runs.")
	fmt.Fprintln(w, "Use 'vrscan compare --with-run-id <id>' to compare with a specific run.")
	return nil
}

// formatOutcomes formats the outcome counts of a listed run as a short string.
func formatOutcomes(meta database.RunMetadata) string {
	if meta.Error != "" {
		return "Aborted"
	}
	s := meta.Summary
	if s.Checks == 0 {
		return "No checks"
	}
	return fmt.Sprintf("P:%d F:%d E:%d", s.Passed, s.Failed, s.Errored)
}

// runComparison loads the two runs and prints their comparison.
func runComparison(ctx context.Context, db *database.DB, w io.Writer, opts compareOptions) error {
	baseURL := opts.baseURL
	if baseURL == "" {
		latest, err := db.GetLatestCompletedRuns(ctx, "", 1)
		if err != nil {
			return fmt.Errorf("failed to get scan history: %w", err)
		}
		if len(latest) == 0 {
			return fmt.Errorf("%w (found 0)", ErrNotEnoughRuns)
		}
		baseURL = latest[0].BaseURL
	}

	runs, err := db.GetLatestCompletedRuns(ctx, baseURL, 2)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no completed scan run found for %s", baseURL)
	}

	current := runs[0]
	var previous *model.ScanRun

	if opts.withRunID != "" {
		previous, err = db.GetRunByID(ctx, opts.withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", opts.withRunID, err)
		}
		if previous == nil {
			return fmt.Errorf("run %s not found", opts.withRunID)
		}
		if previous.BaseURL != current.BaseURL {
			return fmt.Errorf("run %s belongs to %s, not %s", opts.withRunID, previous.BaseURL, current.BaseURL)
		}
		if previous.Error != "" {
			return fmt.Errorf("run %s was aborted (%s); choose a completed run", opts.withRunID, previous.Error)
		}
		if previous.ID == current.ID {
			return fmt.Errorf("run %s is the latest run; choose an earlier one", opts.withRunID)
		}
	} else {
		if len(runs) < 2 {
			return fmt.Errorf("%w (found %d for %s)", ErrNotEnoughRuns, len(runs), baseURL)
		}
		previous = runs[1]
	}

	result := compareRuns(previous, current)

	switch {
	case opts.json:
		return outputComparisonJSON(w, result)
	case opts.markdown:
		return outputComparisonMarkdown(w, result)
	default:
		return outputComparisonText(w, result)
	}
}

// ComparisonResult holds the result of comparing two scan runs.
type ComparisonResult struct {
	// BaseURL is the site both runs scanned.
	BaseURL string `json:"base_url"`

	// PreviousRun and CurrentRun identify the compared runs.
	PreviousRun RunInfo `json:"previous_run"`
	CurrentRun  RunInfo `json:"current_run"`

	// Regressions passed before and fail or error now.
	Regressions []CheckChange `json:"regressions,omitempty"`

	// Recoveries failed or errored before and pass now.
	Recoveries []CheckChange `json:"recoveries,omitempty"`

	// Added checks only exist in the current run.
	Added []CheckChange `json:"added,omitempty"`

	// Removed checks only exist in the previous run.
	Removed []CheckChange `json:"removed,omitempty"`

	// Unchanged is the number of checks with the same status in both runs.
	Unchanged int `json:"unchanged"`

	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`
}

// RunInfo describes one side of a comparison.
type RunInfo struct {
	ID      string        `json:"id"`
	Started string        `json:"started"`
	Summary model.Summary `json:"summary"`
}

// CheckChange is one page/viewport check whose status changed.
type CheckChange struct {
	Page     string         `json:"page"`
	Viewport string         `json:"viewport"`
	Previous *model.Outcome `json:"previous,omitempty"`
	Current  *model.Outcome `json:"current,omitempty"`
}

// checkKey identifies a check across runs.
type checkKey struct {
	page     string
	viewport string
}

// pageLabel names a page for comparison; untitled pages fall back to
// their position.
func pageLabel(index int, title string) string {
	if title == "" {
		return "#" + strconv.Itoa(index)
	}
	return title
}

// outcomesOf flattens the checks of a run.
func outcomesOf(run *model.ScanRun) map[checkKey]model.Outcome {
	out := make(map[checkKey]model.Outcome)
	for i, page := range run.Pages {
		label := pageLabel(i, page.Title)
		for vp, o := range page.VisualChanges {
			out[checkKey{page: label, viewport: vp}] = o
		}
	}
	return out
}

// compareRuns compares two runs check by check.
func compareRuns(previous, current *model.ScanRun) *ComparisonResult {
	result := &ComparisonResult{
		BaseURL:     current.BaseURL,
		PreviousRun: runInfo(previous),
		CurrentRun:  runInfo(current),
	}

	prev := outcomesOf(previous)
	curr := outcomesOf(current)

	for key, c := range curr {
		change := CheckChange{Page: key.page, Viewport: key.viewport, Current: &c}
		p, ok := prev[key]
		switch {
		case !ok:
			result.Added = append(result.Added, change)
		case p.Passed() && !c.Passed():
			change.Previous = &p
			result.Regressions = append(result.Regressions, change)
		case !p.Passed() && c.Passed():
			change.Previous = &p
			result.Recoveries = append(result.Recoveries, change)
		default:
			result.Unchanged++
		}
	}
	for key, p := range prev {
		if _, ok := curr[key]; !ok {
			result.Removed = append(result.Removed, CheckChange{Page: key.page, Viewport: key.viewport, Previous: &p})
		}
	}

	for _, list := range [][]CheckChange{result.Regressions, result.Recoveries, result.Added, result.Removed} {
		slices.SortFunc(list, func(a, b CheckChange) int {
			return cmp.Or(cmp.Compare(a.Page, b.Page), cmp.Compare(a.Viewport, b.Viewport))
		})
	}

	switch {
	case len(result.Regressions) > len(result.Recoveries):
		result.Direction = directionWorsened
	case len(result.Regressions) < len(result.Recoveries):
		result.Direction = directionImproved
	default:
		result.Direction = directionUnchanged
	}

	return result
}

// runInfo extracts the display metadata of a run.
func runInfo(run *model.ScanRun) RunInfo {
	return RunInfo{
		ID:      run.ID,
		Started: run.StartedAt.Format("2006-01-02 15:04:05"),
		Summary: run.Summarize(),
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Scan Comparison: " + result.BaseURL)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText("**Status:** " + formatDirection(result.Direction))
	md.PlainText("")

	prev, curr := result.PreviousRun.Summary, result.CurrentRun.Summary
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "`" + result.PreviousRun.ID + "`", "`" + result.CurrentRun.ID + "`", "-"},
			{"Date", result.PreviousRun.Started, result.CurrentRun.Started, "-"},
			{"Pass", strconv.Itoa(prev.Passed), strconv.Itoa(curr.Passed), formatDelta(curr.Passed - prev.Passed)},
			{"Fail", strconv.Itoa(prev.Failed), strconv.Itoa(curr.Failed), formatDelta(curr.Failed - prev.Failed)},
			{"Error", strconv.Itoa(prev.Errored), strconv.Itoa(curr.Errored), formatDelta(curr.Errored - prev.Errored)},
			{"**Total**", "**" + strconv.Itoa(prev.Checks) + "**", "**" + strconv.Itoa(curr.Checks) + "**",
				"**" + formatDelta(curr.Checks-prev.Checks) + "**"},
		},
	})

	sections := []struct {
		title   string
		changes []CheckChange
	}{
		{"Regressions", result.Regressions},
		{"Recoveries", result.Recoveries},
		{"Added", result.Added},
		{"Removed", result.Removed},
	}
	for _, s := range sections {
		if len(s.changes) == 0 {
			continue
		}
		md.PlainText("")
		md.H2(fmt.Sprintf("%s (%d)", s.title, len(s.changes)))
		md.PlainText("")
		items := make([]string, 0, len(s.changes))
		for _, c := range s.changes {
			items = append(items, fmt.Sprintf("**%s** `%s`: %s", c.Page, c.Viewport, formatTransition(c)))
		}
		md.BulletList(items...)
	}

	if result.Unchanged > 0 {
		md.PlainText("")
		md.HorizontalRule()
		md.PlainText("")
		md.PlainText(fmt.Sprintf("*%d checks unchanged*", result.Unchanged))
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(w, "Scan Comparison: %s\n", result.BaseURL)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nStatus: %s\n", formatDirection(result.Direction))

	fmt.Fprintf(w, "\nPrevious run: %s (%s)\n", result.PreviousRun.ID, result.PreviousRun.Started)
	fmt.Fprintf(w, "Current run:  %s (%s)\n", result.CurrentRun.ID, result.CurrentRun.Started)

	prev, curr := result.PreviousRun.Summary, result.CurrentRun.Summary
	fmt.Fprintln(w, "\nOutcomes:")
	fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", "Status", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Pass", prev.Passed, curr.Passed, formatDelta(curr.Passed-prev.Passed))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Fail", prev.Failed, curr.Failed, formatDelta(curr.Failed-prev.Failed))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Error", prev.Errored, curr.Errored, formatDelta(curr.Errored-prev.Errored))
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Total", prev.Checks, curr.Checks, formatDelta(curr.Checks-prev.Checks))

	writeChanges := func(title, marker string, changes []CheckChange) {
		if len(changes) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", title, len(changes))
		for _, c := range changes {
			fmt.Fprintf(w, "  [%s] %s @ %s: %s\n", marker, c.Page, c.Viewport, formatTransition(c))
		}
	}
	writeChanges("Regressions", "-", result.Regressions)
	writeChanges("Recoveries", "+", result.Recoveries)
	writeChanges("Added", "new", result.Added)
	writeChanges("Removed", "gone", result.Removed)

	if result.Unchanged > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d checks\n", result.Unchanged)
	}
	return nil
}

// formatTransition renders the status change of a check.
func formatTransition(c CheckChange) string {
	switch {
	case c.Previous == nil && c.Current != nil:
		return c.Current.String()
	case c.Current == nil && c.Previous != nil:
		return c.Previous.String()
	case c.Previous != nil:
		return c.Previous.Status.String() + " -> " + c.Current.String()
	default:
		return ""
	}
}

// formatDirection formats the comparison direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (more checks pass)"
	case directionWorsened:
		return "WORSENED (more checks fail)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
