package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "vrscan"

	// DefaultThreshold is the fraction of pixels that may differ before a
	// screenshot counts as changed.
	DefaultThreshold = 0.001

	// DefaultSettleDelay is the pause between the load event and the
	// screenshot, giving late layout and fonts time to finish.
	DefaultSettleDelay = 100 * time.Millisecond

	// DefaultDiscoverDepth is how many links away from the start page
	// discover follows.
	DefaultDiscoverDepth = 1

	// DefaultDiscoverMaxPages caps the number of discovered pages.
	DefaultDiscoverMaxPages = 50

	// DefaultDiscoverTimeout bounds each discovery request.
	DefaultDiscoverTimeout = 30 * time.Second
)

// Config holds all configuration options of a scan.
// It is populated from CLI flags and the scan file and passed through the
// application rather than kept in global state.
type Config struct {
	// ConfigFilePath is the path to the scan file.
	// If empty, the tool searches for .vrscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// ScanFile is the loaded scan file.
	ScanFile *File

	// BaseURL overrides the scan file's baseURL when set.
	BaseURL string

	// Update overwrites baselines with the new captures.
	Update bool

	// Threshold is the tolerated fraction of differing pixels, in [0, 1].
	Threshold float64

	// SettleDelay is the pause before each screenshot.
	SettleDelay time.Duration

	// CheckTimeout bounds a single check. Zero means no limit.
	CheckTimeout time.Duration

	// LaunchTimeout bounds browser startup. Zero means no limit.
	LaunchTimeout time.Duration

	// MaxTabs limits concurrent tabs per page. Zero means one per viewport.
	MaxTabs int

	// ChromePath is the Chrome binary. Empty searches the usual locations.
	ChromePath string

	// NoSandbox disables the Chrome sandbox, which some containers need.
	NoSandbox bool

	// ProxyServer is passed to Chrome, e.g. "socks5://127.0.0.1:1080".
	ProxyServer string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// MetricsFile receives Prometheus metrics in textfile format when set.
	MetricsFile string

	// NoHistory disables saving the run to the history database.
	NoHistory bool

	// NoFail keeps the exit status zero when checks fail or error.
	NoFail bool

	// DBDir is the directory of the SQLite database holding baselines and
	// run history. Defaults to the XDG data directory.
	DBDir string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFormat selects "text" or "json" log output.
	LogFormat string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Threshold:   DefaultThreshold,
		SettleDelay: DefaultSettleDelay,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for vrscan.
// On Linux: ~/.local/share/vrscan
// On macOS: ~/Library/Application Support/vrscan
// On Windows: %LOCALAPPDATA%\vrscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// EffectiveBaseURL returns BaseURL, falling back to the scan file's.
func (c *Config) EffectiveBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.ScanFile != nil {
		return c.ScanFile.BaseURL
	}
	return ""
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.EffectiveBaseURL() == "" {
		return ErrNoBaseURL
	}

	if c.ScanFile == nil || len(c.ScanFile.Pages) == 0 {
		return ErrNoPages
	}

	if c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}

	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}

	if c.CheckTimeout < 0 || c.LaunchTimeout < 0 {
		return ErrInvalidTimeout
	}

	if c.MaxTabs < 0 {
		return ErrInvalidMaxTabs
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return c.ScanFile.Validate()
}
