package config

import "github.com/nao1215/vrscan/internal/model"

// File represents the structure of the .vrscan scan file.
//
//	baseURL: https://example.com
//	cookies:
//	  session: abc123
//	pages:
//	  - href: /
//	    title: Home
//	    expectedCode: 200
//	viewports:
//	  - {name: phone, width: 320, height: 1000}
type File struct {
	// BaseURL resolves relative page hrefs.
	BaseURL string `yaml:"baseURL"`

	// Cookies are set on every tab before navigation.
	Cookies map[string]any `yaml:"cookies,omitempty"`

	// Pages are scanned in order.
	Pages []model.PageSpec `yaml:"pages"`

	// Viewports replaces the built-in catalog when set.
	Viewports []model.Viewport `yaml:"viewports,omitempty"`

	// Discover holds the settings of `vrscan discover` for this site.
	Discover DiscoverConfig `yaml:"discover,omitempty"`
}

// DiscoverConfig tunes page discovery.
type DiscoverConfig struct {
	// Depth overrides the default link depth when non-zero.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the default page limit when non-zero.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are URL patterns to skip during discovery.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during discovery.
	// If specified, only URLs matching these patterns are visited.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// Validate checks that there are pages and that the viewport override
// is usable. A page with an empty href is the base URL itself.
func (f *File) Validate() error {
	if len(f.Pages) == 0 {
		return ErrNoPages
	}
	if len(f.Viewports) > 0 {
		if _, err := f.Catalog(); err != nil {
			return err
		}
	}
	return nil
}

// ScanOptions returns the options for a scan of this file's pages.
// A non-empty baseURL overrides the file's base URL.
func (f *File) ScanOptions(baseURL string) model.ScanOptions {
	if baseURL == "" {
		baseURL = f.BaseURL
	}
	return model.ScanOptions{
		BaseURL: baseURL,
		Cookies: f.Cookies,
	}
}

// Catalog returns the viewport catalog: the file's viewports when set,
// the built-in catalog otherwise.
func (f *File) Catalog() (model.Catalog, error) {
	if len(f.Viewports) == 0 {
		return model.DefaultCatalog(), nil
	}
	return model.NewCatalog(f.Viewports...)
}
