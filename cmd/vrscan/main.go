// Package main provides the entry point for the vrscan CLI.
//
// vrscan is a visual regression scanner. It loads every page of a site in
// headless Chrome at a set of device viewports, compares each screenshot
// with a stored baseline and reports which pages changed.
//
// Usage:
//
//	vrscan init
//	vrscan discover https://example.com >> .vrscan
//	vrscan scan
//
// See --help for all available options.
package main

// main is the entry point for vrscan.
func main() {
	Execute()
}
