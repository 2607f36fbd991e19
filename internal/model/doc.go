// Package model defines the data structures shared by the vrscan packages.
//
// This package contains the following main types:
//   - PageSpec and ScanOptions: the caller supplied scan input
//   - Viewport and Catalog: the fixed matrix of device profiles
//   - CheckID: the immutable identity of one (page, viewport) check
//   - Outcome: the pass/fail/error result of one check
//   - PageReport and ScanRun: the aggregated results
//
// Design decision: We keep models in their own package so that the
// pipeline, the browser and snapshot adapters, the database and the report
// writers can all share them without import cycles.
package model
