package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/model"
	"github.com/nao1215/vrscan/internal/snapshot"
)

// Scanner coordinates a whole scan: it owns the browser session for the
// duration of one Scan call and scans the pages one after another.
type Scanner struct {
	engine    browser.Engine
	snapshots snapshot.Engine
	catalog   model.Catalog

	settleDelay  time.Duration
	checkTimeout time.Duration
	maxTabs      int
	observer     CheckObserver

	logger *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithCatalog replaces the default viewport catalog.
func WithCatalog(catalog model.Catalog) ScannerOption {
	return func(s *Scanner) {
		s.catalog = catalog
	}
}

// WithSettleDelay sets the wait between navigation and screenshot.
func WithSettleDelay(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.settleDelay = d
	}
}

// WithCheckTimeout bounds every single-page check. Zero, the default,
// means no limit.
func WithCheckTimeout(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.checkTimeout = d
	}
}

// WithMaxTabs caps the number of tabs open at the same time.
// Zero, the default, opens one tab per viewport.
func WithMaxTabs(n int) ScannerOption {
	return func(s *Scanner) {
		if n >= 0 {
			s.maxTabs = n
		}
	}
}

// WithObserver registers an observer for finished checks.
func WithObserver(observer CheckObserver) ScannerOption {
	return func(s *Scanner) {
		s.observer = observer
	}
}

// WithScannerLogger sets a custom logger for the scanner.
func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner that drives engine and submits captures
// to snapshots.
func NewScanner(engine browser.Engine, snapshots snapshot.Engine, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		engine:      engine,
		snapshots:   snapshots,
		catalog:     model.DefaultCatalog(),
		settleDelay: DefaultSettleDelay,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Catalog returns the viewport catalog the scanner checks against.
func (s *Scanner) Catalog() model.Catalog {
	return s.catalog
}

// Scan checks every page at every catalog viewport.
//
// Pages are scanned in input order; page n is complete before page n+1
// starts. The returned reports are index-aligned with pages; pages whose
// titles collide get distinct baselines (see model.UniqueBaselines). The
// browser session is launched once and closed exactly once, whatever happens.
//
// Any session-level failure aborts the scan: Scan then returns nil and an
// error wrapping ErrSessionFailed that names the page and viewport.
func (s *Scanner) Scan(ctx context.Context, pages []model.PageSpec, opts model.ScanOptions) ([]model.PageReport, error) {
	if err := s.validate(opts); err != nil {
		return nil, err
	}
	pages = model.UniqueBaselines(pages)

	session, err := s.engine.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %w", ErrSessionFailed, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			s.logger.Warn("failed to close browser session", "error", closeErr)
		}
	}()

	checker := &Checker{
		Snapshots:   s.snapshots,
		SettleDelay: s.settleDelay,
		Timeout:     s.checkTimeout,
		Observer:    s.observer,
		Logger:      s.logger,
	}
	pageScanner := NewPageScanner(checker, s.catalog, s.maxTabs, s.logger)

	reports := make([]model.PageReport, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.logger.Debug("page started", "index", i+1, "total", len(pages), "title", page.Title)

		report, err := pageScanner.Scan(ctx, session, i, page, opts)
		if err != nil {
			s.logger.Error("scan aborted", "page", page.Title, "error", err)
			return nil, err
		}
		reports[i] = report
	}

	return reports, nil
}

// Run scans pages and wraps the result in a ScanRun for reporting and
// history. A failed scan still returns a run, with Error set and no pages.
func (s *Scanner) Run(ctx context.Context, pages []model.PageSpec, opts model.ScanOptions) (*model.ScanRun, error) {
	run := model.NewScanRun(opts.BaseURL, s.catalog.Names())

	reports, err := s.Scan(ctx, pages, opts)
	run.FinishedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
		return run, err
	}

	run.Pages = reports
	return run, nil
}

// validate rejects input that would make the scan meaningless before
// any browser is started.
func (s *Scanner) validate(opts model.ScanOptions) error {
	if _, err := opts.ParseBaseURL(); err != nil {
		return err
	}
	if s.catalog.Len() == 0 {
		return model.ErrEmptyCatalog
	}
	return nil
}
