package model

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidBaseURL is returned when ScanOptions.BaseURL is not an absolute URL.
var ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http(s) URL")

// PageSpec describes one page to scan.
// It is caller supplied and read-only for the whole scan.
type PageSpec struct {
	// Href is the page location, relative to ScanOptions.BaseURL or absolute.
	// Empty means the base URL itself.
	Href string `json:"href" yaml:"href"`

	// Title is the human-readable page name.
	// It appears in reports and is used to derive baseline names.
	Title string `json:"title" yaml:"title"`

	// ExpectedCode is the HTTP status the page must answer with.
	// Zero accepts any status.
	ExpectedCode int `json:"expected_code,omitempty" yaml:"expectedCode,omitempty"`

	// Baseline overrides the title as the source of the baseline name.
	// Empty means the title is used.
	Baseline string `json:"baseline,omitempty" yaml:"baseline,omitempty"`
}

// ScanOptions holds the settings shared by every check of a scan.
type ScanOptions struct {
	// BaseURL resolves relative PageSpec.Href values.
	BaseURL string `json:"base_url" yaml:"baseURL"`

	// Cookies are set on every tab before navigation.
	// Values are converted with fmt.Sprint.
	Cookies map[string]any `json:"-" yaml:"cookies,omitempty"`
}

// ParseBaseURL parses and validates BaseURL.
func (o ScanOptions) ParseBaseURL() (*url.URL, error) {
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, o.BaseURL)
	}
	return u, nil
}

// ResolveURL returns the absolute URL of page against BaseURL.
func (o ScanOptions) ResolveURL(page PageSpec) (string, error) {
	base, err := o.ParseBaseURL()
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(page.Href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", page.Href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// CookieStrings returns the cookie set with every value converted to a string.
// A nil cookie map yields an empty, non-nil map.
func (o ScanOptions) CookieStrings() map[string]string {
	out := make(map[string]string, len(o.Cookies))
	for name, v := range o.Cookies {
		out[name] = fmt.Sprint(v)
	}
	return out
}
