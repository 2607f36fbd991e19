// Package pipeline runs visual regression scans.
//
// The work is layered the same way at every level:
//   - Pipeline executes the ordered Steps of one single-page check
//     (viewport, cookies, navigate, settle, screenshot, compare) against
//     a tab of its own.
//   - Checker wraps one check: it opens the tab, runs the pipeline and
//     turns the result into an Outcome.
//   - PageScanner fans a page out to one check per catalog viewport with
//     errgroup and collects a PageReport.
//   - Scanner launches the browser session, scans the pages one after
//     another and closes the session on every exit path.
//
// Check-level failures become error outcomes in the report. A failure of
// the shared browser session aborts the whole scan with ErrSessionFailed.
package pipeline
