// Package database provides SQLite-based storage for vrscan.
//
// A single database file holds two tables:
//   - baselines: the reference screenshot for every baseline name
//   - scan_runs: every completed scan, for history and comparison
//
// SQLite (via modernc.org/sqlite) keeps the store in one CGO-free file
// next to the user's data, which is all a local regression tool needs.
package database
