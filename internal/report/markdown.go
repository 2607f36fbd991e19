package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/vrscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, e.g. for CI job
// summaries or pull request comments.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.ScanRun) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := run.Summarize()

	w.writeHeader(md, run)
	w.writeSummary(md, summary)
	w.writeResults(md, run)
	w.writeErrors(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.ScanRun) {
	md.H1("Visual Regression Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + run.BaseURL + "`"},
			{"Run ID", "`" + run.ID + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on run state.
func statusText(run *model.ScanRun) string {
	if run.Error != "" {
		return "❌ Aborted - " + run.Error
	}
	return "✅ Complete"
}

// writeSummary writes the outcome summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"✅ Pass", strconv.Itoa(s.Passed)},
			{"🟠 Fail", strconv.Itoa(s.Failed)},
			{"🔴 Error", strconv.Itoa(s.Errored)},
			{"**Total**", "**" + strconv.Itoa(s.Checks) + "**"},
		},
	})
	md.PlainText("")

	if s.Checks > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Check Outcomes"),
		piechart.WithShowData(true),
	)

	if s.Passed > 0 {
		chart.LabelAndIntValue("Pass", uint64(s.Passed))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Fail", uint64(s.Failed))
	}
	if s.Errored > 0 {
		chart.LabelAndIntValue("Error", uint64(s.Errored))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.Summary) {
	switch {
	case s.Errored > 0:
		md.Cautionf("%d check(s) could not complete.", s.Errored)
	case s.Failed > 0:
		md.Warningf("%d check(s) differ from their baseline.", s.Failed)
	case s.Checks == 0:
		md.Note("No checks were run.")
	default:
		md.Tip("No visual changes detected.")
	}
	md.PlainText("")
}

// writeResults writes a page by viewport matrix.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, run *model.ScanRun) {
	md.H2("Results")
	md.PlainText("")

	if len(run.Pages) == 0 {
		md.PlainText("No pages were scanned.")
		md.PlainText("")
		return
	}

	header := append([]string{"Page"}, run.Viewports...)
	rows := make([][]string, len(run.Pages))
	for i, page := range run.Pages {
		row := make([]string, 0, len(header))
		row = append(row, pageTitle(i, page))
		for _, name := range run.Viewports {
			outcome, ok := page.VisualChanges[name]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, statusCell(outcome.Status))
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrors lists the messages of errored checks.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, run *model.ScanRun) {
	var items []string
	for i, page := range run.Pages {
		for _, name := range pageViewports(run, page) {
			outcome := page.VisualChanges[name]
			if outcome.Status == model.StatusError {
				items = append(items, fmt.Sprintf("**%s** (%s): %s", pageTitle(i, page), name, outcome.Error))
			}
		}
	}
	if len(items) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [vrscan](https://github.com/nao1215/vrscan)*")
}

func pageTitle(index int, page model.PageReport) string {
	if page.Title == "" {
		return fmt.Sprintf("(untitled #%d)", index)
	}
	return page.Title
}

func statusCell(s model.Status) string {
	switch s {
	case model.StatusPass:
		return "✅ pass"
	case model.StatusFail:
		return "🟠 fail"
	case model.StatusError:
		return "🔴 error"
	default:
		return s.String()
	}
}
