package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate() so
// callers can match them with errors.Is().
var (
	// ErrNoBaseURL is returned when neither --base-url nor the scan file
	// provides a base URL.
	ErrNoBaseURL = errors.New("no base URL specified: use --base-url or set baseURL in the scan file")

	// ErrNoPages is returned when the scan file lists no pages.
	ErrNoPages = errors.New("no pages to scan: add pages to the scan file")

	// ErrInvalidThreshold is returned when the mismatch threshold is outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 1")

	// ErrInvalidSettleDelay is returned when the settle delay is negative.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be non-negative")

	// ErrInvalidTimeout is returned when a timeout is negative.
	// Zero disables the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidMaxTabs is returned when the tab limit is negative.
	// Zero means one tab per viewport.
	ErrInvalidMaxTabs = errors.New("invalid max tabs: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
