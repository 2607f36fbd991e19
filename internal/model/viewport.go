package model

import (
	"errors"
	"fmt"
)

// Viewport errors.
var (
	// ErrEmptyCatalog is returned when a catalog has no viewports.
	ErrEmptyCatalog = errors.New("viewport catalog is empty")

	// ErrInvalidViewport is returned for a viewport with a blank name or
	// non-positive dimensions.
	ErrInvalidViewport = errors.New("invalid viewport")

	// ErrDuplicateViewport is returned when two catalog entries share a name.
	ErrDuplicateViewport = errors.New("duplicate viewport name")
)

// Viewport is a named width x height profile simulating a device screen.
type Viewport struct {
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// String returns "name (WxH)".
func (v Viewport) String() string {
	return fmt.Sprintf("%s (%dx%d)", v.Name, v.Width, v.Height)
}

// Catalog is the ordered set of viewports every page is checked against.
//
// A Catalog is treated as immutable once built: the scanner only reads it,
// and Viewports returns a copy so callers cannot alter the entries.
type Catalog struct {
	viewports []Viewport
}

// defaultViewports is the built-in device matrix.
// Heights are tall on purpose so that most of a page fits in one capture.
var defaultViewports = []Viewport{
	{Name: "phone", Width: 320, Height: 1000},
	{Name: "tablet", Width: 768, Height: 4000},
	{Name: "massive", Width: 1440, Height: 4000},
}

// DefaultCatalog returns the built-in phone/tablet/massive catalog.
func DefaultCatalog() Catalog {
	c, _ := NewCatalog(defaultViewports...) //nolint:errcheck // built-in entries are valid
	return c
}

// NewCatalog builds a catalog from the given viewports, keeping their order.
func NewCatalog(viewports ...Viewport) (Catalog, error) {
	if len(viewports) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(viewports))
	for _, v := range viewports {
		if v.Name == "" || v.Width <= 0 || v.Height <= 0 {
			return Catalog{}, fmt.Errorf("%w: %+v", ErrInvalidViewport, v)
		}
		if seen[v.Name] {
			return Catalog{}, fmt.Errorf("%w: %s", ErrDuplicateViewport, v.Name)
		}
		seen[v.Name] = true
	}

	out := make([]Viewport, len(viewports))
	copy(out, viewports)
	return Catalog{viewports: out}, nil
}

// Viewports returns a copy of the catalog entries in order.
func (c Catalog) Viewports() []Viewport {
	out := make([]Viewport, len(c.viewports))
	copy(out, c.viewports)
	return out
}

// Names returns the viewport names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.viewports))
	for i, v := range c.viewports {
		names[i] = v.Name
	}
	return names
}

// Lookup returns the viewport with the given name.
func (c Catalog) Lookup(name string) (Viewport, bool) {
	for _, v := range c.viewports {
		if v.Name == name {
			return v, true
		}
	}
	return Viewport{}, false
}

// Len returns the number of viewports.
func (c Catalog) Len() int {
	return len(c.viewports)
}
