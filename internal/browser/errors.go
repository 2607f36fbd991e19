package browser

import "errors"

// Browser automation errors.
var (
	// ErrSessionClosed is returned when a tab is requested from a session
	// that was closed or whose browser process has gone away.
	ErrSessionClosed = errors.New("browser session closed")

	// ErrTabClosed is returned when an action is issued on a closed tab.
	ErrTabClosed = errors.New("browser tab closed")

	// ErrInvalidViewport is returned for non-positive viewport dimensions.
	ErrInvalidViewport = errors.New("invalid viewport dimensions")

	// ErrEmptyScreenshot is returned when the browser produced no image data.
	ErrEmptyScreenshot = errors.New("browser returned an empty screenshot")
)
