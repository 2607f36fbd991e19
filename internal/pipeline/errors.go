package pipeline

import "errors"

// Scan errors.
var (
	// ErrSessionFailed is returned when the shared browser session could not
	// be launched or died during the scan. The scan is aborted.
	ErrSessionFailed = errors.New("browser session failed")

	// ErrUnexpectedStatus is returned when a page answers with a status
	// other than its expected code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrNoTab is returned when a step runs before a tab was attached.
	ErrNoTab = errors.New("no browser tab attached to check")
)
