package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/vrscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// Plain ASCII only, so the output can be piped to files or CI logs.
type SimpleWriter struct {
	baseWriter

	// verbose lists every viewport of every page, including pages where
	// all checks passed.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.ScanRun) (int, error) {
	var sb strings.Builder

	summary := run.Summarize()
	w.writeHeader(&sb, run)
	w.writeSummary(&sb, summary)
	w.writePages(&sb, run)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.ScanRun) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                  VISUAL REGRESSION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Base URL:   %s\n", run.BaseURL)
	fmt.Fprintf(sb, "Run ID:     %s\n", run.ID)
	fmt.Fprintf(sb, "Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Viewports:  %s\n", strings.Join(run.Viewports, ", "))

	if run.Error != "" {
		fmt.Fprintf(sb, "Status:     ABORTED - %s\n", run.Error)
	} else {
		sb.WriteString("Status:     Complete\n")
	}
	sb.WriteString("\n")
}

// writeSummary writes the outcome counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  PAGES:   %d\n", s.Pages)
	fmt.Fprintf(sb, "  CHECKS:  %d\n", s.Checks)
	fmt.Fprintf(sb, "  PASS:    %d\n", s.Passed)
	fmt.Fprintf(sb, "  FAIL:    %d\n", s.Failed)
	fmt.Fprintf(sb, "  ERROR:   %d\n", s.Errored)
	sb.WriteString("\n")
}

// writePages writes one block per page.
// Passing pages collapse to a single line unless verbose is set.
func (w *SimpleWriter) writePages(sb *strings.Builder, run *model.ScanRun) {
	if len(run.Pages) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for i, page := range run.Pages {
		title := page.Title
		if title == "" {
			title = fmt.Sprintf("(untitled #%d)", i)
		}

		if page.Passed() && !w.verbose {
			fmt.Fprintf(sb, "[ok] %s\n", title)
			continue
		}

		fmt.Fprintf(sb, "[%s] %s\n", pageIndicator(page), title)
		for _, name := range pageViewports(run, page) {
			outcome := page.VisualChanges[name]
			fmt.Fprintf(sb, "    %-12s %s\n", name, outcome.String())
		}
	}
	sb.WriteString("\n")
}

// pageIndicator returns a short marker for the worst outcome of a page.
func pageIndicator(page model.PageReport) string {
	worst := model.StatusPass
	for _, o := range page.VisualChanges {
		if o.Status > worst {
			worst = o.Status
		}
	}
	switch worst {
	case model.StatusError:
		return "!!"
	case model.StatusFail:
		return "!"
	default:
		return "ok"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by vrscan\n")
	sb.WriteString("https://github.com/nao1215/vrscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func sortedKeys(m map[string]model.Outcome) []string {
	return slices.Sorted(maps.Keys(m))
}
