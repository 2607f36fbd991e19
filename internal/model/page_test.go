package model

import (
	"errors"
	"testing"
)

// TestScanOptionsResolveURL tests href resolution against the base URL.
func TestScanOptionsResolveURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		baseURL  string
		href     string
		expected string
	}{
		{"root href", "https://example.com", "/", "https://example.com/"},
		{"empty href is the base URL", "https://example.com/docs/", "", "https://example.com/docs/"},
		{"relative path", "https://example.com/docs/", "intro", "https://example.com/docs/intro"},
		{"absolute path replaces base path", "https://example.com/docs/", "/pricing", "https://example.com/pricing"},
		{"absolute href wins", "https://example.com", "https://other.test/x", "https://other.test/x"},
		{"query kept", "http://localhost:8080", "/search?q=a", "http://localhost:8080/search?q=a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := ScanOptions{BaseURL: tc.baseURL}
			got, err := opts.ResolveURL(PageSpec{Href: tc.href})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestScanOptionsParseBaseURL tests base URL validation.
func TestScanOptionsParseBaseURL(t *testing.T) {
	t.Parallel()

	invalid := []string{"", "example.com", "/relative", "ftp://example.com", "https://"}
	for _, base := range invalid {
		t.Run("rejects "+base, func(t *testing.T) {
			t.Parallel()
			_, err := ScanOptions{BaseURL: base}.ParseBaseURL()
			if !errors.Is(err, ErrInvalidBaseURL) {
				t.Errorf("expected ErrInvalidBaseURL for %q, got %v", base, err)
			}
		})
	}

	t.Run("accepts https URL", func(t *testing.T) {
		t.Parallel()
		u, err := ScanOptions{BaseURL: "https://example.com"}.ParseBaseURL()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Host != "example.com" {
			t.Errorf("expected host example.com, got %q", u.Host)
		}
	})
}

// TestScanOptionsCookieStrings tests cookie value conversion.
func TestScanOptionsCookieStrings(t *testing.T) {
	t.Parallel()

	t.Run("nil cookies yield empty map", func(t *testing.T) {
		t.Parallel()
		got := ScanOptions{}.CookieStrings()
		if got == nil {
			t.Fatal("expected non-nil map")
		}
		if len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})

	t.Run("values are stringified", func(t *testing.T) {
		t.Parallel()
		got := ScanOptions{Cookies: map[string]any{
			"session": "abc",
			"count":   3,
			"beta":    true,
		}}.CookieStrings()

		if got["session"] != "abc" || got["count"] != "3" || got["beta"] != "true" {
			t.Errorf("unexpected conversion: %v", got)
		}
	})
}
