package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/model"
)

// PageScanner checks one page at every viewport of a catalog.
type PageScanner struct {
	checker *Checker
	catalog model.Catalog

	// maxTabs caps the number of concurrently open tabs. Zero means one
	// tab per viewport.
	maxTabs int

	logger *slog.Logger
}

// NewPageScanner creates a PageScanner.
func NewPageScanner(checker *Checker, catalog model.Catalog, maxTabs int, logger *slog.Logger) *PageScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageScanner{
		checker: checker,
		catalog: catalog,
		maxTabs: maxTabs,
		logger:  logger,
	}
}

// Scan runs one check per viewport concurrently and waits for all of them.
//
// The returned report has an entry for every catalog viewport. A failed
// check shows up as an error outcome without affecting its siblings. An
// error is returned only when a check hit a session-level failure or ctx
// was cancelled; the remaining checks are then cancelled too.
func (ps *PageScanner) Scan(ctx context.Context, session browser.Session, index int, page model.PageSpec, opts model.ScanOptions) (model.PageReport, error) {
	viewports := ps.catalog.Viewports()

	ps.logger.Info("scanning page",
		"title", page.Title,
		"href", page.Href,
		"viewports", len(viewports),
	)
	startTime := time.Now()

	// Each check writes only its own slot.
	outcomes := make([]model.Outcome, len(viewports))

	g, gctx := errgroup.WithContext(ctx)
	if ps.maxTabs > 0 {
		g.SetLimit(ps.maxTabs)
	}

	for i, viewport := range viewports {
		g.Go(func() error {
			outcome, err := ps.checker.Run(gctx, session, index, page, viewport, opts)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.PageReport{}, err
	}

	report := model.NewPageReport(page.Title)
	for i, viewport := range viewports {
		report.VisualChanges[viewport.Name] = outcomes[i]
	}

	ps.logger.Info("page scanned",
		"title", page.Title,
		"passed", report.Passed(),
		"elapsed", time.Since(startTime),
	)
	return report, nil
}
