package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// PageReport holds the results of every viewport check for one page.
type PageReport struct {
	// Title is copied from the input PageSpec.
	Title string `json:"title"`

	// VisualChanges maps each catalog viewport name to its outcome.
	// Every catalog viewport appears exactly once.
	VisualChanges map[string]Outcome `json:"visual_changes"`
}

// NewPageReport creates a report for title with an empty outcome map.
func NewPageReport(title string) PageReport {
	return PageReport{
		Title:         title,
		VisualChanges: make(map[string]Outcome),
	}
}

// Passed reports whether every viewport of the page passed.
func (p PageReport) Passed() bool {
	for _, o := range p.VisualChanges {
		if !o.Passed() {
			return false
		}
	}
	return true
}

// ScanRun is a complete scan together with its metadata.
// It is what gets persisted in the history database and rendered by the
// report writers.
type ScanRun struct {
	// ID is a ULID, so IDs sort by creation time.
	ID string `json:"id"`

	// BaseURL is the ScanOptions.BaseURL of the run.
	BaseURL string `json:"base_url"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Viewports lists the catalog names in catalog order, which is the
	// display order used by the writers.
	Viewports []string `json:"viewports"`

	// Pages is index-aligned with the scanned PageSpec list.
	Pages []PageReport `json:"pages"`

	// Error is set when the scan aborted.
	Error string `json:"error,omitempty"`
}

// NewScanRun starts a new run record.
func NewScanRun(baseURL string, viewports []string) *ScanRun {
	return &ScanRun{
		ID:        ulid.Make().String(),
		BaseURL:   baseURL,
		StartedAt: time.Now(),
		Viewports: viewports,
		Pages:     make([]PageReport, 0),
	}
}

// Duration returns the wall-clock duration of the run.
func (r *ScanRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary counts check outcomes of a run.
type Summary struct {
	Pages   int `json:"pages"`
	Checks  int `json:"checks"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// Summarize counts the outcomes of every page and viewport.
func (r *ScanRun) Summarize() Summary {
	s := Summary{Pages: len(r.Pages)}
	for _, p := range r.Pages {
		for _, o := range p.VisualChanges {
			s.Checks++
			switch o.Status {
			case StatusPass:
				s.Passed++
			case StatusFail:
				s.Failed++
			case StatusError:
				s.Errored++
			}
		}
	}
	return s
}

// HasChanges reports whether any check failed or errored.
func (s Summary) HasChanges() bool {
	return s.Failed > 0 || s.Errored > 0
}
