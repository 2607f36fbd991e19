package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/vrscan/internal/model"
)

// DefaultUserAgent is sent with every discovery request.
const DefaultUserAgent = "vrscan-discover/1.0 (+https://github.com/nao1215/vrscan)"

// Discoverer finds the pages of a site by following same-host links.
type Discoverer struct {
	// client performs the requests.
	client *http.Client

	// maxDepth limits how many links away from the start page to go.
	// 0 means only the start page.
	maxDepth int

	// maxPages limits the total number of pages returned.
	maxPages int

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// ignorePatterns are URL path patterns to skip.
	ignorePatterns []string

	// followPatterns, when set, restrict discovery to matching paths.
	followPatterns []string

	// expectStatus records each page's status as its expected code.
	expectStatus bool

	logger *slog.Logger
}

// DiscoverOption configures a Discoverer.
type DiscoverOption func(*Discoverer)

// WithMaxDepth sets the maximum link depth.
func WithMaxDepth(depth int) DiscoverOption {
	return func(d *Discoverer) {
		if depth >= 0 {
			d.maxDepth = depth
		}
	}
}

// WithMaxPages sets the maximum number of pages to return.
func WithMaxPages(maxPages int) DiscoverOption {
	return func(d *Discoverer) {
		if maxPages > 0 {
			d.maxPages = maxPages
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) DiscoverOption {
	return func(d *Discoverer) {
		d.userAgent = ua
	}
}

// WithIgnorePatterns sets URL path patterns to skip, e.g. "/admin/*" or "*.pdf".
func WithIgnorePatterns(patterns []string) DiscoverOption {
	return func(d *Discoverer) {
		d.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts discovery to paths matching one of patterns.
func WithFollowPatterns(patterns []string) DiscoverOption {
	return func(d *Discoverer) {
		d.followPatterns = patterns
	}
}

// WithExpectedCodes controls whether each page's status is recorded as
// its expected code.
func WithExpectedCodes(enabled bool) DiscoverOption {
	return func(d *Discoverer) {
		d.expectStatus = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DiscoverOption {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// NewDiscoverer creates a Discoverer using client.
func NewDiscoverer(client *http.Client, opts ...DiscoverOption) *Discoverer {
	d := &Discoverer{
		client:       client,
		maxDepth:     1,
		maxPages:     50,
		userAgent:    DefaultUserAgent,
		maxBodySize:  10 * 1024 * 1024, // 10MB
		expectStatus: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// queueItem represents an item in the discovery queue.
type queueItem struct {
	url   string
	depth int

	// anchor is the text of the link that led here.
	anchor string
}

// fetched is one downloaded page.
type fetched struct {
	// finalURL is the URL that answered, after redirects.
	finalURL string

	status int
	html   bool
	parsed *ParseResult
}

// Discover returns a PageSpec for every HTML page reachable from startURL
// within the depth and page limits, start page first.
//
// Hrefs are relative to the start URL's host so the result can be used
// with that host as base URL. Titles are unique after sanitizing.
func (d *Discoverer) Discover(ctx context.Context, startURL string) ([]model.PageSpec, error) {
	start, err := url.Parse(startURL)
	if err != nil || start.Host == "" || (start.Scheme != "http" && start.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	start.Fragment = ""

	pages := make([]model.PageSpec, 0)
	titles := newTitleSet()
	visited := make(map[string]bool)
	queue := []queueItem{{url: start.String(), depth: 0}}

	for len(queue) > 0 && len(pages) < d.maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		item := queue[0]
		queue = queue[1:]

		key := normalizeURL(item.url)
		if visited[key] {
			continue
		}
		visited[key] = true

		page, err := d.fetch(ctx, item.url)
		if err != nil {
			if item.depth == 0 {
				return nil, err
			}
			d.logger.Debug("skipping page", "url", item.url, "error", err)
			continue
		}
		if final := normalizeURL(page.finalURL); final != key {
			// A redirect target that was already scanned is the same page.
			if visited[final] {
				continue
			}
			visited[final] = true
		}
		if !page.html {
			if item.depth == 0 {
				return nil, fmt.Errorf("%w: %s", ErrNotHTML, item.url)
			}
			continue
		}

		u, _ := url.Parse(item.url) //nolint:errcheck // queued URLs were parsed already
		spec := model.PageSpec{
			Href:  u.RequestURI(),
			Title: titles.unique(pageTitle(page.parsed, item.anchor, u.Path)),
		}
		if d.expectStatus {
			spec.ExpectedCode = page.status
		}
		pages = append(pages, spec)
		d.logger.Debug("page discovered", "href", spec.Href, "title", spec.Title, "status", page.status)

		if item.depth < d.maxDepth {
			for _, link := range page.parsed.InternalLinks {
				if !visited[normalizeURL(link.URL)] && d.shouldFollow(link.URL) {
					queue = append(queue, queueItem{url: link.URL, depth: item.depth + 1, anchor: link.Text})
				}
			}
		}
	}

	return pages, nil
}

// fetch downloads and parses one page.
func (d *Discoverer) fetch(ctx context.Context, pageURL string) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	page := &fetched{finalURL: pageURL, status: resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		page.finalURL = resp.Request.URL.String()
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")) //nolint:errcheck // empty type means not HTML
	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return page, nil
	}

	// Links resolve against the final URL after redirects.
	parser, err := NewParser(page.finalURL)
	if err != nil {
		return nil, err
	}
	parsed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	page.html = true
	page.parsed = parsed
	return page, nil
}

// shouldFollow checks a URL against the ignore and follow patterns.
func (d *Discoverer) shouldFollow(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range d.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(d.followPatterns) == 0 {
		return true
	}
	for _, pattern := range d.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// normalizeURL normalizes a URL for deduplication.
// The fragment is dropped, scheme and host are lowercased and an empty
// path becomes "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// pageTitle picks the most readable title for a page: its <title>, its
// first heading, the text of the link that led to it, or finally a title
// made from the URL path.
func pageTitle(parsed *ParseResult, anchor, urlPath string) string {
	for _, candidate := range []string{parsed.Title, parsed.Heading, anchor} {
		if model.Sanitize(candidate) != "" {
			return candidate
		}
	}
	return titleFromPath(urlPath)
}

var titleCaser = cases.Title(language.English)

// titleFromPath turns "/about-us/our_team.html" into "About Us Our Team".
func titleFromPath(urlPath string) string {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return "Home"
	}
	trimmed = strings.TrimSuffix(trimmed, path.Ext(trimmed))

	words := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || r == '.'
	})
	return titleCaser.String(strings.Join(words, " "))
}

// titleSet hands out titles that stay distinct after sanitizing, since
// baseline names are derived from sanitized titles.
type titleSet struct {
	used map[string]bool
}

func newTitleSet() *titleSet {
	return &titleSet{used: make(map[string]bool)}
}

// unique returns title, or title with a numeric suffix if it collides.
func (s *titleSet) unique(title string) string {
	candidate := title
	for n := 2; s.used[model.Sanitize(candidate)]; n++ {
		candidate = title + " " + strconv.Itoa(n)
	}
	s.used[model.Sanitize(candidate)] = true
	return candidate
}

// matchPattern checks if a path matches a glob pattern.
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, p string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(p, prefix+"/") || p == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	if matched, err := filepath.Match(pattern, p); err == nil && matched {
		return true
	}

	// Bare filename patterns also match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}
