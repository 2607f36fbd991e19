// Package report renders scan runs for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured JSON for CI integration
//   - MarkdownWriter: Markdown with a result matrix and a pie chart
//
// Writers implement the Writer interface, so they can be combined with
// MultiWriter to write the same run to several destinations.
package report
