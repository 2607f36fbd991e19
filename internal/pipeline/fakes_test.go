package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/model"
	"github.com/nao1215/vrscan/internal/snapshot"
)

// fakeEngine is a browser.Engine that hands out one fakeSession.
type fakeEngine struct {
	session   *fakeSession
	launchErr error
	launches  atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{session: newFakeSession()}
}

func (e *fakeEngine) Launch(_ context.Context) (browser.Session, error) {
	e.launches.Add(1)
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	return e.session, nil
}

// fakeSession records every tab action in a shared trace.
type fakeSession struct {
	mu    sync.Mutex
	trace []string
	dead  error

	// status returns the HTTP status for a URL. Defaults to 200.
	status func(url string) int

	// navErr returns a navigation error for a URL.
	navErr func(url string) error

	// crashOn kills the session when a URL containing it is navigated.
	crashOn string

	// navDelay slows navigation down so concurrent tabs overlap.
	navDelay time.Duration

	closes    atomic.Int32
	openTabs  atomic.Int32
	maxOpen   atomic.Int32
	tabCloses atomic.Int32
}

func newFakeSession() *fakeSession {
	return &fakeSession{}
}

func (s *fakeSession) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, fmt.Sprintf(format, args...))
}

func (s *fakeSession) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.trace...)
}

func (s *fakeSession) kill(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = err
}

func (s *fakeSession) OpenTab(_ context.Context, id model.CheckID) (browser.Tab, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	n := s.openTabs.Add(1)
	for {
		cur := s.maxOpen.Load()
		if n <= cur || s.maxOpen.CompareAndSwap(cur, n) {
			break
		}
	}
	s.record("open %s", id.Baseline)
	return &fakeTab{session: s, id: id}, nil
}

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead != nil {
		return fmt.Errorf("%w: %v", browser.ErrSessionClosed, s.dead)
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

// fakeTab renders its viewport and cookies into the "screenshot" so
// tests can see exactly what a check captured.
type fakeTab struct {
	session *fakeSession
	id      model.CheckID

	width, height int
	cookies       map[string]string
	url           string
	closed        bool
}

func (t *fakeTab) SetViewport(_ context.Context, width, height int) error {
	t.width, t.height = width, height
	t.session.record("viewport %s %dx%d", t.id.Baseline, width, height)
	return nil
}

func (t *fakeTab) SetCookies(_ context.Context, cookies map[string]string, pageURL string) error {
	if cookies == nil {
		return errors.New("nil cookie set")
	}
	t.cookies = cookies
	t.session.record("cookies %s %d %s", t.id.Baseline, len(cookies), pageURL)
	return nil
}

func (t *fakeTab) Navigate(ctx context.Context, url string) (int, error) {
	t.url = url
	t.session.record("navigate %s %s", t.id.Baseline, url)

	if t.session.navDelay > 0 {
		select {
		case <-time.After(t.session.navDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if t.session.crashOn != "" && strings.Contains(url, t.session.crashOn) {
		t.session.kill(errors.New("browser crashed"))
		return 0, errors.New("target closed")
	}
	if t.session.navErr != nil {
		if err := t.session.navErr(url); err != nil {
			return 0, err
		}
	}
	if t.session.status != nil {
		return t.session.status(url), nil
	}
	return 200, nil
}

func (t *fakeTab) Wait(_ context.Context, d time.Duration) error {
	t.session.record("wait %s %s", t.id.Baseline, d)
	return nil
}

func (t *fakeTab) Screenshot(_ context.Context) ([]byte, error) {
	t.session.record("screenshot %s", t.id.Baseline)
	return []byte(fmt.Sprintf("%dx%d|%s|%s", t.width, t.height, t.url, t.cookies["session"])), nil
}

func (t *fakeTab) Close() error {
	if !t.closed {
		t.closed = true
		t.session.openTabs.Add(-1)
		t.session.tabCloses.Add(1)
		t.session.record("close %s", t.id.Baseline)
	}
	return nil
}

// fakeSnapshots records captures and answers with verdict.
type fakeSnapshots struct {
	mu       sync.Mutex
	captures map[string]string

	// verdict decides the outcome of a comparison. Defaults to a match.
	verdict func(name string) (bool, error)
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{captures: make(map[string]string)}
}

func (f *fakeSnapshots) CompareOrRecord(_ context.Context, name string, png []byte, onReport func(snapshot.Report)) (bool, error) {
	f.mu.Lock()
	f.captures[name] = string(png)
	f.mu.Unlock()

	if onReport != nil {
		onReport(snapshot.Report{Name: name, Kind: snapshot.KindMatched})
	}
	if f.verdict != nil {
		return f.verdict(name)
	}
	return true, nil
}

func (f *fakeSnapshots) capture(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.captures[name]
	return c, ok
}

// recordingObserver counts observed checks.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]model.Outcome
}

func (r *recordingObserver) ObserveCheck(id model.CheckID, outcome model.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]model.Outcome)
	}
	r.outcomes[id.Baseline] = outcome
}

func mustCatalog(viewports ...model.Viewport) model.Catalog {
	c, err := model.NewCatalog(viewports...)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	phone  = model.Viewport{Name: "phone", Width: 320, Height: 1000}
	tablet = model.Viewport{Name: "tablet", Width: 768, Height: 4000}
)

var testOptions = model.ScanOptions{
	BaseURL: "https://example.com",
	Cookies: map[string]any{"session": "abc123"},
}
