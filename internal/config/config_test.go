package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/vrscan/internal/model"
)

// TestNewConfig verifies the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Threshold is 0.001", func(t *testing.T) {
		t.Parallel()
		if cfg.Threshold != 0.001 {
			t.Errorf("expected Threshold to be 0.001, got %v", cfg.Threshold)
		}
	})

	t.Run("default SettleDelay is 100ms", func(t *testing.T) {
		t.Parallel()
		if cfg.SettleDelay != 100*time.Millisecond {
			t.Errorf("expected SettleDelay to be 100ms, got %v", cfg.SettleDelay)
		}
	})

	t.Run("timeouts are unbounded by default", func(t *testing.T) {
		t.Parallel()
		if cfg.CheckTimeout != 0 || cfg.LaunchTimeout != 0 {
			t.Errorf("expected no timeouts, got %v and %v", cfg.CheckTimeout, cfg.LaunchTimeout)
		}
	})

	t.Run("default MaxTabs is one per viewport", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxTabs != 0 {
			t.Errorf("expected MaxTabs to be 0, got %d", cfg.MaxTabs)
		}
	})

	t.Run("default DBDir is the XDG data directory", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})
}

func validConfig() *Config {
	cfg := NewConfig()
	cfg.ScanFile = &File{
		BaseURL: "https://example.com",
		Pages:   []model.PageSpec{{Href: "/", Title: "Home"}},
	}
	return cfg
}

// TestConfigValidate tests the Validate method.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"missing base URL returns ErrNoBaseURL", func(c *Config) { c.ScanFile.BaseURL = "" }, ErrNoBaseURL},
		{"missing scan file returns ErrNoBaseURL", func(c *Config) { c.ScanFile = nil }, ErrNoBaseURL},
		{"flag base URL without scan file returns ErrNoPages", func(c *Config) { c.ScanFile = nil; c.BaseURL = "https://example.com" }, ErrNoPages},
		{"empty pages returns ErrNoPages", func(c *Config) { c.ScanFile.Pages = nil }, ErrNoPages},
		{"negative threshold returns ErrInvalidThreshold", func(c *Config) { c.Threshold = -0.1 }, ErrInvalidThreshold},
		{"threshold above one returns ErrInvalidThreshold", func(c *Config) { c.Threshold = 1.5 }, ErrInvalidThreshold},
		{"negative settle delay returns ErrInvalidSettleDelay", func(c *Config) { c.SettleDelay = -time.Second }, ErrInvalidSettleDelay},
		{"negative check timeout returns ErrInvalidTimeout", func(c *Config) { c.CheckTimeout = -time.Second }, ErrInvalidTimeout},
		{"negative launch timeout returns ErrInvalidTimeout", func(c *Config) { c.LaunchTimeout = -time.Second }, ErrInvalidTimeout},
		{"negative max tabs returns ErrInvalidMaxTabs", func(c *Config) { c.MaxTabs = -1 }, ErrInvalidMaxTabs},
		{"json and markdown both enabled returns ErrConflictingReportFormats", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
		{"invalid viewport override is rejected", func(c *Config) { c.ScanFile.Viewports = []model.Viewport{{Name: "bad"}} }, model.ErrInvalidViewport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("page without href is the base URL", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.ScanFile.Pages = append(cfg.ScanFile.Pages, model.PageSpec{Title: "Landing"})
		if err := cfg.Validate(); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}

		opts := cfg.ScanFile.ScanOptions("")
		got, err := opts.ResolveURL(cfg.ScanFile.Pages[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != opts.BaseURL {
			t.Errorf("expected %q, got %q", opts.BaseURL, got)
		}
	})

	t.Run("zero threshold and timeouts are valid", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Threshold = 0
		cfg.SettleDelay = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}

// TestEffectiveBaseURL tests flag and file precedence.
func TestEffectiveBaseURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if got := cfg.EffectiveBaseURL(); got != "https://example.com" {
		t.Errorf("expected file base URL, got %q", got)
	}

	cfg.BaseURL = "http://localhost:8080"
	if got := cfg.EffectiveBaseURL(); got != "http://localhost:8080" {
		t.Errorf("expected flag base URL, got %q", got)
	}

	if got := NewConfig().EffectiveBaseURL(); got != "" {
		t.Errorf("expected empty base URL, got %q", got)
	}
}

// TestFile tests scan file helpers.
func TestFile(t *testing.T) {
	t.Parallel()

	t.Run("scan options use the file base URL and cookies", func(t *testing.T) {
		t.Parallel()

		f := &File{BaseURL: "https://example.com", Cookies: map[string]any{"session": "abc", "n": 1}}
		opts := f.ScanOptions("")
		if opts.BaseURL != "https://example.com" {
			t.Errorf("unexpected base URL %q", opts.BaseURL)
		}
		if opts.CookieStrings()["n"] != "1" {
			t.Errorf("unexpected cookies %v", opts.CookieStrings())
		}
	})

	t.Run("scan options prefer an explicit base URL", func(t *testing.T) {
		t.Parallel()

		f := &File{BaseURL: "https://example.com"}
		if got := f.ScanOptions("https://staging.example.com").BaseURL; got != "https://staging.example.com" {
			t.Errorf("unexpected base URL %q", got)
		}
	})

	t.Run("catalog defaults to the built-in viewports", func(t *testing.T) {
		t.Parallel()

		c, err := (&File{}).Catalog()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Join(c.Names(), ","); got != "phone,tablet,massive" {
			t.Errorf("unexpected catalog %s", got)
		}
	})

	t.Run("catalog keeps override order", func(t *testing.T) {
		t.Parallel()

		f := &File{Viewports: []model.Viewport{
			{Name: "wide", Width: 1920, Height: 1080},
			{Name: "narrow", Width: 360, Height: 640},
		}}
		c, err := f.Catalog()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Join(c.Names(), ","); got != "wide,narrow" {
			t.Errorf("unexpected catalog %s", got)
		}
	})

	t.Run("duplicate viewport override is rejected", func(t *testing.T) {
		t.Parallel()

		f := &File{
			Pages: []model.PageSpec{{Href: "/"}},
			Viewports: []model.Viewport{
				{Name: "phone", Width: 320, Height: 1000},
				{Name: "phone", Width: 360, Height: 640},
			},
		}
		if err := f.Validate(); !errors.Is(err, model.ErrDuplicateViewport) {
			t.Errorf("expected ErrDuplicateViewport, got %v", err)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.vrscan")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML scan file", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".vrscan")
		content := `baseURL: https://example.com
cookies:
  session: abc123
  consent: true
pages:
  - href: /
    title: Home
    expectedCode: 200
  - href: /about
    title: About
viewports:
  - name: phone
    width: 320
    height: 1000
discover:
  depth: 2
  ignorePatterns:
    - "/admin/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if f.BaseURL != "https://example.com" {
			t.Errorf("unexpected base URL %q", f.BaseURL)
		}
		if len(f.Pages) != 2 || f.Pages[0].ExpectedCode != 200 || f.Pages[1].Title != "About" {
			t.Errorf("unexpected pages %+v", f.Pages)
		}
		if f.Cookies["session"] != "abc123" || f.Cookies["consent"] != true {
			t.Errorf("unexpected cookies %v", f.Cookies)
		}
		if len(f.Viewports) != 1 || f.Viewports[0].Width != 320 {
			t.Errorf("unexpected viewports %+v", f.Viewports)
		}
		if f.Discover.Depth != 2 || len(f.Discover.IgnorePatterns) != 1 {
			t.Errorf("unexpected discover settings %+v", f.Discover)
		}
		if err := f.Validate(); err != nil {
			t.Errorf("expected valid file, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".vrscan")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Cookies map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".vrscan")
		if err := os.WriteFile(configPath, []byte("baseURL: https://example.com\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Cookies == nil {
			t.Error("expected Cookies map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("pages: []"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds scan file in the current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("pages: []"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Chdir(dir)

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s in %s, got %q", DefaultConfigFile, dir, result)
		}
	})
}

// TestXDGDataDir tests the XDG data directory.
func TestXDGDataDir(t *testing.T) {
	t.Parallel()

	dir := XDGDataDir()
	if dir == "" {
		t.Fatal("expected non-empty path")
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("expected path to end with %s, got %s", AppName, dir)
	}
}
