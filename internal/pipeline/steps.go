package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/vrscan/internal/snapshot"
)

// DefaultSettleDelay is how long a check waits after navigation before
// taking the screenshot.
const DefaultSettleDelay = 100 * time.Millisecond

// ViewportStep sizes the tab to the check's viewport.
type ViewportStep struct{}

// Name returns the step name.
func (ViewportStep) Name() string { return "viewport" }

// Do executes the step.
func (ViewportStep) Do(ctx context.Context, check *Check) error {
	if check.Tab == nil {
		return ErrNoTab
	}
	return check.Tab.SetViewport(ctx, check.Viewport.Width, check.Viewport.Height)
}

// CookieStep applies the scan's cookies to the tab. An empty set is
// still applied so the step runs for every check.
type CookieStep struct{}

// Name returns the step name.
func (CookieStep) Name() string { return "cookies" }

// Do executes the step.
func (CookieStep) Do(ctx context.Context, check *Check) error {
	if check.Tab == nil {
		return ErrNoTab
	}
	cookies := check.Cookies
	if cookies == nil {
		cookies = map[string]string{}
	}
	return check.Tab.SetCookies(ctx, cookies, check.URL)
}

// NavigateStep loads the page and enforces the expected status code.
type NavigateStep struct{}

// Name returns the step name.
func (NavigateStep) Name() string { return "navigate" }

// Do executes the step.
func (NavigateStep) Do(ctx context.Context, check *Check) error {
	if check.Tab == nil {
		return ErrNoTab
	}

	status, err := check.Tab.Navigate(ctx, check.URL)
	if err != nil {
		return err
	}
	check.StatusCode = status

	if want := check.Page.ExpectedCode; want != 0 && status != want {
		return fmt.Errorf("%w: %s answered %d, expected %d", ErrUnexpectedStatus, check.URL, status, want)
	}
	return nil
}

// SettleStep waits for rendering and animations to settle.
type SettleStep struct {
	// Delay is the wait. Zero skips waiting.
	Delay time.Duration
}

// Name returns the step name.
func (SettleStep) Name() string { return "settle" }

// Do executes the step.
func (s SettleStep) Do(ctx context.Context, check *Check) error {
	if check.Tab == nil {
		return ErrNoTab
	}
	return check.Tab.Wait(ctx, s.Delay)
}

// ScreenshotStep captures the tab's viewport.
type ScreenshotStep struct{}

// Name returns the step name.
func (ScreenshotStep) Name() string { return "screenshot" }

// Do executes the step.
func (ScreenshotStep) Do(ctx context.Context, check *Check) error {
	if check.Tab == nil {
		return ErrNoTab
	}
	png, err := check.Tab.Screenshot(ctx)
	if err != nil {
		return err
	}
	check.Screenshot = png
	return nil
}

// CompareStep submits the screenshot to the snapshot engine under the
// check's baseline name.
type CompareStep struct {
	// Engine compares or records the capture.
	Engine snapshot.Engine

	// Logger receives the engine's reports.
	Logger *slog.Logger
}

// Name returns the step name.
func (CompareStep) Name() string { return "compare" }

// Do executes the step.
func (s CompareStep) Do(ctx context.Context, check *Check) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	matched, err := s.Engine.CompareOrRecord(ctx, check.ID.Baseline, check.Screenshot, func(r snapshot.Report) {
		logger.Info(r.String(), "page", check.Page.Title, "viewport", check.Viewport.Name)
	})
	if err != nil {
		return err
	}
	check.Matched = matched
	return nil
}
