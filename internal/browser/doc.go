// Package browser drives a headless Chrome through the Chrome DevTools
// Protocol.
//
// The package defines the automation contract used by the scan pipeline
// (Engine, Session and Tab) and a chromedp-backed implementation of it.
//
// One Session corresponds to one browser process. Every visual check opens
// its own Tab, so the viewport and cookies applied by one check never leak
// into another check running at the same time.
package browser
