// Package snapshot compares screenshots against named baselines.
//
// The Engine contract is what the scan pipeline depends on. Store is the
// bundled implementation: it keeps one PNG per baseline name in a
// BaselineStore, records a baseline the first time a name is seen and
// afterwards reports whether new captures still match it.
package snapshot
