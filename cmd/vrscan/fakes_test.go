package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"sync"
	"time"

	"github.com/nao1215/vrscan/internal/browser"
	"github.com/nao1215/vrscan/internal/model"
)

// fakeEngine renders every page as a solid rectangle of the viewport size.
// The color and HTTP status are chosen by URL path.
type fakeEngine struct {
	mu        sync.Mutex
	colors    map[string]color.RGBA
	statuses  map[string]int
	launchErr error
	launches  int
	closes    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		colors:   make(map[string]color.RGBA),
		statuses: make(map[string]int),
	}
}

func (e *fakeEngine) setColor(path string, c color.RGBA) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.colors[path] = c
}

func (e *fakeEngine) setStatus(path string, status int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses[path] = status
}

func (e *fakeEngine) render(path string) (color.RGBA, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colors[path]
	if !ok {
		c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	status, ok := e.statuses[path]
	if !ok {
		status = 200
	}
	return c, status
}

func (e *fakeEngine) Launch(_ context.Context) (browser.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.launches++
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	return &fakeSession{engine: e}, nil
}

type fakeSession struct {
	engine *fakeEngine
	once   sync.Once
}

func (s *fakeSession) OpenTab(_ context.Context, _ model.CheckID) (browser.Tab, error) {
	return &fakeTab{engine: s.engine}, nil
}

func (s *fakeSession) Err() error { return nil }

func (s *fakeSession) Close() error {
	s.once.Do(func() {
		s.engine.mu.Lock()
		s.engine.closes++
		s.engine.mu.Unlock()
	})
	return nil
}

type fakeTab struct {
	engine        *fakeEngine
	width, height int
	path          string
}

func (t *fakeTab) SetViewport(_ context.Context, width, height int) error {
	t.width, t.height = width, height
	return nil
}

func (t *fakeTab) SetCookies(_ context.Context, _ map[string]string, _ string) error {
	return nil
}

func (t *fakeTab) Navigate(_ context.Context, rawURL string) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, err
	}
	t.path = u.Path
	_, status := t.engine.render(t.path)
	return status, nil
}

func (t *fakeTab) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (t *fakeTab) Screenshot(_ context.Context) ([]byte, error) {
	c, _ := t.engine.render(t.path)

	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	for y := range t.height {
		for x := range t.width {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *fakeTab) Close() error { return nil }
