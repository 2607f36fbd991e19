package crawler

import "errors"

// Crawler errors.
var (
	// ErrInvalidProxyAddress is returned when a proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrInvalidStartURL is returned when discovery cannot start from the given URL.
	ErrInvalidStartURL = errors.New("invalid start URL")

	// ErrNotHTML is returned when the start page is not an HTML document.
	ErrNotHTML = errors.New("start page is not HTML")
)
