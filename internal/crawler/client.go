package crawler

import (
	"context"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// ClientConfig configures the HTTP client used for discovery.
type ClientConfig struct {
	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Timeout bounds each request. Zero means no limit.
	Timeout time.Duration

	// Cookies are sent with every request.
	Cookies map[string]string
}

// NewHTTPClient creates an HTTP client for discovery.
//
// With a ProxyAddress every connection is dialed through SOCKS5. Cookies
// are injected into every request, redirects included.
func NewHTTPClient(cfg ClientConfig) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if cfg.ProxyAddress != "" {
		if !isValidProxyAddress(cfg.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", cfg.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if header := cookieHeader(cfg.Cookies); header != "" {
		rt = &cookieTransport{base: transport, cookie: header}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// cookieHeader renders cookies as a Cookie header value with stable ordering.
func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, (&http.Cookie{Name: name, Value: cookies[name]}).String())
	}
	return strings.Join(parts, "; ")
}

// cookieTransport adds a fixed Cookie header to every request.
type cookieTransport struct {
	base   http.RoundTripper
	cookie string
}

// RoundTrip implements http.RoundTripper.
func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if existing := clone.Header.Get("Cookie"); existing != "" {
		clone.Header.Set("Cookie", existing+"; "+t.cookie)
	} else {
		clone.Header.Set("Cookie", t.cookie)
	}
	return t.base.RoundTrip(clone)
}

// isValidProxyAddress checks that address is "host:port" with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
