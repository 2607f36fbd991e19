package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/vrscan/internal/model"
)

// Chrome is an Engine that runs a local headless Chrome via chromedp.
type Chrome struct {
	// execPath is the Chrome binary. Empty lets chromedp search the usual
	// install locations.
	execPath string

	// noSandbox disables the Chrome sandbox. Needed in some containers.
	noSandbox bool

	// proxyServer is passed to Chrome as --proxy-server when set.
	proxyServer string

	// launchTimeout bounds browser startup. Zero waits forever.
	launchTimeout time.Duration

	logger *slog.Logger
}

// ChromeOption configures a Chrome engine.
type ChromeOption func(*Chrome)

// WithExecPath sets the Chrome binary to run.
func WithExecPath(path string) ChromeOption {
	return func(c *Chrome) {
		c.execPath = path
	}
}

// WithNoSandbox disables the Chrome sandbox.
func WithNoSandbox(noSandbox bool) ChromeOption {
	return func(c *Chrome) {
		c.noSandbox = noSandbox
	}
}

// WithProxyServer routes browser traffic through the given proxy,
// e.g. "socks5://127.0.0.1:1080".
func WithProxyServer(proxy string) ChromeOption {
	return func(c *Chrome) {
		c.proxyServer = proxy
	}
}

// WithLaunchTimeout bounds how long Launch waits for the browser.
func WithLaunchTimeout(d time.Duration) ChromeOption {
	return func(c *Chrome) {
		c.launchTimeout = d
	}
}

// WithLogger sets the logger used for browser diagnostics.
func WithLogger(logger *slog.Logger) ChromeOption {
	return func(c *Chrome) {
		c.logger = logger
	}
}

// NewChrome creates a Chrome engine. No process is started until Launch.
func NewChrome(opts ...ChromeOption) *Chrome {
	c := &Chrome{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// allocatorOptions returns the command line flags for Chrome.
func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		// Scrollbars and font hinting differ between runs and hosts.
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("font-render-hinting", "none"),
	)

	if c.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	if c.proxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(c.proxyServer))
	}

	return opts
}

// Launch starts Chrome and waits until the first target is ready.
//
// The browser is not tied to ctx: it lives until Session.Close. ctx only
// bounds the startup.
func (c *Chrome) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), c.allocatorOptions()...)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			c.logger.Debug("chrome devtools error", "detail", fmt.Sprintf(format, args...))
		}),
	)

	s := &chromeSession{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		logger:      c.logger,
	}

	started := make(chan error, 1)
	go func() {
		// Running with no actions starts the browser process.
		started <- chromedp.Run(browserCtx)
	}()

	var timeout <-chan time.Time
	if c.launchTimeout > 0 {
		timer := time.NewTimer(c.launchTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-started:
		if err != nil {
			_ = s.Close() //nolint:errcheck // Best effort cleanup
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-timeout:
		_ = s.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("chrome did not start within %s", c.launchTimeout)
	case <-ctx.Done():
		_ = s.Close() //nolint:errcheck // Best effort cleanup
		return nil, ctx.Err()
	}

	c.logger.Debug("chrome started")
	return s, nil
}

// chromeSession is a running Chrome process.
type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// OpenTab opens a new target in the running browser.
func (s *chromeSession) OpenTab(ctx context.Context, id model.CheckID) (Tab, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(s.ctx)

	// Creating the target happens on the first Run.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		if sErr := s.Err(); sErr != nil {
			return nil, sErr
		}
		return nil, fmt.Errorf("failed to open tab for %s: %w", id.Baseline, err)
	}

	t := &chromeTab{
		id:     id,
		ctx:    tabCtx,
		cancel: tabCancel,
	}

	// Tie the tab's lifetime to the caller.
	go func() {
		select {
		case <-ctx.Done():
			tabCancel()
		case <-tabCtx.Done():
		}
	}()

	s.logger.Debug("tab opened", "check", id.String())
	return t, nil
}

// Err reports whether the session can still be used.
func (s *chromeSession) Err() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrSessionClosed
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}
	return nil
}

// Close stops the browser and releases the allocator.
func (s *chromeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// chromedp.Cancel closes the browser gracefully; the cancels make sure
	// the process and its temp profile are gone even if that fails.
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, chromedp.ErrInvalidContext) {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	s.logger.Debug("chrome stopped")
	return nil
}

// chromeTab is one Chrome target.
type chromeTab struct {
	id     model.CheckID
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions in the tab, failing fast if ctx is already done.
func (t *chromeTab) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ctx.Err() != nil {
		return ErrTabClosed
	}
	return chromedp.Run(t.ctx, actions...)
}

// SetViewport emulates a device viewport of the given size.
func (t *chromeTab) SetViewport(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	return t.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

// SetCookies sets every cookie scoped to pageURL.
func (t *chromeTab) SetCookies(ctx context.Context, cookies map[string]string, pageURL string) error {
	if len(cookies) == 0 {
		return nil
	}
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range cookies {
			if err := network.SetCookie(name, value).WithURL(pageURL).Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %q: %w", name, err)
			}
		}
		return nil
	}))
}

// Navigate loads url and waits for the load event.
func (t *chromeTab) Navigate(ctx context.Context, url string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.ctx.Err() != nil {
		return 0, ErrTabClosed
	}

	resp, err := chromedp.RunResponse(t.ctx, chromedp.Navigate(url))
	if err != nil {
		return 0, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if resp == nil {
		return 0, nil
	}
	return int(resp.Status), nil
}

// Wait sleeps for d inside the tab.
func (t *chromeTab) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return t.run(ctx, chromedp.Sleep(d))
}

// Screenshot captures the viewport as PNG.
func (t *chromeTab) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := t.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if len(buf) == 0 {
		return nil, ErrEmptyScreenshot
	}
	return buf, nil
}

// Close closes the target.
func (t *chromeTab) Close() error {
	t.cancel()
	return nil
}
