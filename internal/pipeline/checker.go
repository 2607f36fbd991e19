package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/model"
	"github.com/nao1215/vrscan/internal/snapshot"
)

// CheckObserver is notified of every finished check.
// Implementations must be safe for concurrent use.
type CheckObserver interface {
	ObserveCheck(id model.CheckID, outcome model.Outcome, elapsed time.Duration)
}

// Checker runs single-page checks.
// A Checker holds only configuration and can run many checks concurrently.
type Checker struct {
	// Snapshots compares or records each capture.
	Snapshots snapshot.Engine

	// SettleDelay is the wait between navigation and screenshot.
	SettleDelay time.Duration

	// Timeout bounds a whole check. Zero means no limit.
	Timeout time.Duration

	// Observer, if set, is notified of every finished check.
	Observer CheckObserver

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// steps returns the ordered steps that run against an open tab.
func (c *Checker) steps() []Step {
	return []Step{
		ViewportStep{},
		CookieStep{},
		NavigateStep{},
		SettleStep{Delay: c.SettleDelay},
		ScreenshotStep{},
		CompareStep{Engine: c.Snapshots, Logger: c.logger()},
	}
}

// Run checks page at viewport on session.
//
// Failures of the check itself are reported as an error Outcome. The
// returned error is non-nil only when the check could not be judged at
// all: the session died (wrapping ErrSessionFailed) or ctx was cancelled.
func (c *Checker) Run(ctx context.Context, session browser.Session, index int, page model.PageSpec, viewport model.Viewport, opts model.ScanOptions) (model.Outcome, error) {
	id := model.NewCheckID(index, page, viewport.Name)
	start := time.Now()

	matched, err := c.run(ctx, session, id, page, viewport, opts)
	if err != nil {
		if sErr := session.Err(); sErr != nil {
			return model.Outcome{}, fmt.Errorf("%w: page %d %q, viewport %s: %w",
				ErrSessionFailed, index, page.Title, viewport.Name, errors.Join(err, sErr))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Outcome{}, ctxErr
		}
	}

	outcome := model.Match(matched)
	if err != nil {
		outcome = model.Failed(err)
		c.logger().Warn("check failed",
			"page", page.Title,
			"viewport", viewport.Name,
			"error", err,
		)
	}

	if c.Observer != nil {
		c.Observer.ObserveCheck(id, outcome, time.Since(start))
	}
	return outcome, nil
}

// run opens the check's tab, executes the steps and returns the
// snapshot engine's verdict. The tab is closed on every path.
func (c *Checker) run(ctx context.Context, session browser.Session, id model.CheckID, page model.PageSpec, viewport model.Viewport, opts model.ScanOptions) (bool, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	url, err := opts.ResolveURL(page)
	if err != nil {
		return false, err
	}

	tab, err := session.OpenTab(ctx, id)
	if err != nil {
		return false, fmt.Errorf("open tab: %w", err)
	}
	defer func() {
		if closeErr := tab.Close(); closeErr != nil {
			c.logger().Debug("failed to close tab", "check", id.String(), "error", closeErr)
		}
	}()

	check := &Check{
		ID:       id,
		Page:     page,
		Viewport: viewport,
		URL:      url,
		Cookies:  opts.CookieStrings(),
		Tab:      tab,
	}

	err = New(c.steps(), WithLogger(c.logger())).Execute(ctx, check)
	c.logger().Debug("check finished",
		"check", id.String(),
		"url", url,
		"status_code", check.StatusCode,
		"steps", check.Performed,
		"matched", check.Matched,
	)
	if err != nil {
		return false, err
	}
	return check.Matched, nil
}
