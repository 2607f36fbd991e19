package snapshot

import "errors"

// Snapshot errors.
var (
	// ErrEmptyName is returned when a capture is submitted without a baseline name.
	ErrEmptyName = errors.New("baseline name is empty")

	// ErrInvalidImage is returned when a capture or stored baseline is not a valid PNG.
	ErrInvalidImage = errors.New("invalid PNG image")
)
