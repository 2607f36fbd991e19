// Package config provides configuration structures and utilities for vrscan.
// It defines the command line settings of a scan, the YAML scan file that
// lists the pages of a site, and the XDG locations vrscan uses.
package config
