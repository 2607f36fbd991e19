package report

import (
	"io"

	"github.com/nao1215/vrscan/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.ScanRun) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// Our Writer writes runs, not raw bytes, so io.MultiWriter does not fit.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.ScanRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// pageViewports returns the viewports of a page in display order: the
// run's catalog order first, then any extra keys the page carries.
func pageViewports(run *model.ScanRun, page model.PageReport) []string {
	names := make([]string, 0, len(page.VisualChanges))
	seen := make(map[string]bool, len(page.VisualChanges))
	for _, name := range run.Viewports {
		if _, ok := page.VisualChanges[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	for _, name := range sortedKeys(page.VisualChanges) {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}
