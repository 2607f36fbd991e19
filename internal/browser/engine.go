package browser

import (
	"context"
	"time"

	"github.com/nao1215/vrscan/internal/model"
)

// Engine launches browser sessions.
type Engine interface {
	// Launch starts a browser and returns a session bound to it.
	Launch(ctx context.Context) (Session, error)
}

// Session is a running browser shared by all checks of a scan.
//
// A Session is safe for concurrent use: tabs may be opened from several
// goroutines at once.
type Session interface {
	// OpenTab opens a new tab dedicated to the check identified by id.
	// The tab is closed when ctx is done or Close is called on it.
	OpenTab(ctx context.Context, id model.CheckID) (Tab, error)

	// Err returns a non-nil error, wrapping ErrSessionClosed, once the
	// session can no longer open tabs.
	Err() error

	// Close shuts the browser down. It is safe to call more than once.
	Close() error
}

// Tab is one browser tab owned by a single check.
// A Tab is not meant to be shared between goroutines.
type Tab interface {
	// SetViewport sets the tab's CSS viewport size.
	SetViewport(ctx context.Context, width, height int) error

	// SetCookies sets every cookie for the URL the tab will load.
	SetCookies(ctx context.Context, cookies map[string]string, pageURL string) error

	// Navigate loads url and returns the HTTP status of the main document.
	// The status is 0 when the browser did not report one.
	Navigate(ctx context.Context, url string) (int, error)

	// Wait pauses for d so rendering and animations can settle.
	Wait(ctx context.Context, d time.Duration) error

	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close closes the tab. It is safe to call more than once.
	Close() error
}
