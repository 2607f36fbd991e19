package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"cookie":              true,
	"cookies":             true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"proxy-authorization": true,

	// Authentication
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"refresh_token": true,

	// Session
	"session":    true,
	"session_id": true,
	"sessionid":  true,
	"sid":        true,
	"jsessionid": true,

	// Credentials
	"credential":  true,
	"credentials": true,
	"auth":        true,
}

// sensitiveKeywords mark a key as sensitive when contained in it.
// The bare "key" is left out: it matches "primary_key" or "keyboard".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "cookie", "session",
}

// sensitivePatterns contains regex patterns that indicate sensitive values.
// Values matching these patterns will be sanitized regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Long opaque alphanumeric strings, typical for API keys
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// urlPattern finds http(s) URLs inside free text such as error messages.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// queryMask replaces sensitive query parameter values. It needs no
// escaping, unlike MaskValue.
const queryMask = "REDACTED"

// minSecretLength is the shortest registered secret that gets masked.
// Shorter values would match unrelated text.
const minSecretLength = 4

// SecureHandler wraps an slog.Handler to sanitize sensitive information.
// It intercepts log records and sanitizes attribute values that match
// sensitive key names, value patterns or registered secrets before
// passing them to the underlying handler.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler

	// secrets are literal values masked wherever they appear.
	secrets []string
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// WithSecrets returns a handler that additionally masks every occurrence
// of the given values. Values shorter than four bytes are ignored.
func (h *SecureHandler) WithSecrets(values ...string) *SecureHandler {
	secrets := make([]string, len(h.secrets), len(h.secrets)+len(values))
	copy(secrets, h.secrets)
	for _, v := range values {
		if len(v) >= minSecretLength {
			secrets = append(secrets, v)
		}
	}
	return &SecureHandler{handler: h.handler, secrets: secrets}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's message and attributes and passes it to
// the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, h.sanitizeText(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs), secrets: h.secrets}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if clean := h.sanitizeText(s); clean != s {
			return slog.String(a.Key, clean)
		}
	case slog.KindAny:
		// Errors often embed the URL that failed.
		if err, ok := a.Value.Any().(error); ok && err != nil {
			msg := err.Error()
			if clean := h.sanitizeText(msg); clean != msg {
				return slog.String(a.Key, clean)
			}
		}
	}

	return a
}

// sanitizeText masks registered secrets and URL credentials inside s.
func (h *SecureHandler) sanitizeText(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, MaskValue)
	}
	return urlPattern.ReplaceAllStringFunc(s, sanitizeURL)
}

// sanitizeURL hides the password and sensitive query parameters of raw.
// raw is returned unchanged when it has neither.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	changed := false
	if _, hasPassword := u.User.Password(); hasPassword {
		changed = true
	}

	if u.RawQuery != "" {
		query := u.Query()
		for name := range query {
			lower := strings.ToLower(name)
			if sensitiveKeys[lower] || containsSensitiveKeyword(lower) {
				query.Set(name, queryMask)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}

	if !changed {
		return raw
	}
	return u.Redacted()
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a value matches sensitive patterns.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// WithSecrets returns a logger that masks every occurrence of values.
// Loggers not backed by a SecureHandler get one.
func WithSecrets(logger *slog.Logger, values ...string) *slog.Logger {
	h, ok := logger.Handler().(*SecureHandler)
	if !ok {
		h = NewSecureHandler(logger.Handler())
	}
	return slog.New(h.WithSecrets(values...))
}

// NewSecureLogger creates a new slog.Logger with secure handling that
// writes text output to w. verbose selects Debug level; otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a new slog.Logger with secure handling
// that outputs JSON format. Useful for structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

// Log output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned by NewLogger for an unsupported format.
var ErrUnknownFormat = errors.New("unknown log format")

// NewLogger creates a secure logger writing format to w.
// An empty format means FormatText.
func NewLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	switch format {
	case "", FormatText:
		return NewSecureLogger(w, verbose), nil
	case FormatJSON:
		return NewSecureJSONLogger(w, verbose), nil
	default:
		return nil, fmt.Errorf("%w %q: use %s or %s", ErrUnknownFormat, format, FormatText, FormatJSON)
	}
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
