package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/model"
)

// Check is the state of one single-page check as it moves through the
// pipeline. Every check owns its Check value; nothing in it is shared
// with other checks.
type Check struct {
	// ID identifies the check and names its baseline.
	ID model.CheckID

	// Page and Viewport are the check's inputs.
	Page     model.PageSpec
	Viewport model.Viewport

	// URL is Page.Href resolved against the scan's base URL.
	URL string

	// Cookies is the scan's cookie set.
	Cookies map[string]string

	// Tab is the dedicated browser tab.
	Tab browser.Tab

	// StatusCode is the HTTP status of the main document.
	StatusCode int

	// Screenshot holds the PNG capture once taken.
	Screenshot []byte

	// Matched is the snapshot engine's verdict.
	Matched bool

	// Performed lists the names of the steps that completed, in order.
	Performed []string
}

// Step defines the interface that all check steps must implement.
type Step interface {
	// Do executes the step against the check.
	Do(ctx context.Context, check *Check) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order and stops at the first failing step.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given steps and options.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: append([]Step(nil), steps...),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Execute runs all steps in sequence.
// Cancellation is checked before each step; steps handle their own
// timeouts. The returned error names the step that failed.
func (p *Pipeline) Execute(ctx context.Context, check *Check) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("check cancelled",
				"step", step.Name(),
				"check", check.ID.String(),
				"reason", err,
			)
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"check", check.ID.String(),
		)

		if err := step.Do(ctx, check); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"check", check.ID.String(),
				"error", err,
			)
			return fmt.Errorf("%s: %w", step.Name(), err)
		}

		check.Performed = append(check.Performed, step.Name())
	}

	return nil
}
