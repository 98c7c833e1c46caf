package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// urlMask replaces secrets inside URLs, where MaskValue would be escaped.
const urlMask = "REDACTED"

// sensitiveKeywords mark an attribute key, header name or URL query
// parameter as secret when they appear anywhere in it. Keys are compared
// lower-cased with '-' folded to '_'.
//
// The bare word "key" is not listed: it matches "primary_key" and
// "cache_key". Key-like names are covered by "api_key" and "private".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential",
	"private", "cookie", "session", "api_key", "apikey", "signature",
}

// sensitiveExactKeys are short names that are only secret as a whole.
var sensitiveExactKeys = []string{"sid", "jsessionid", "sig", "key"}

// sensitivePatterns match secret values regardless of their key, e.g. a
// header value logged under a generic attribute name.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// SecureHandler wraps an slog.Handler to sanitize sensitive information.
//
// The crawler logs three kinds of secrets: proxy URLs with credentials,
// per-domain cookies and headers from the config file, and crawled URLs
// whose query string carries a session or token. Attributes are masked by
// key name; URL values keep their host and path so verbose logs can still
// be shared.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It works with any underlying handler (text, JSON, etc.)
//  2. Every package can keep taking a plain *slog.Logger
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is wrapped.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the sanitized attributes added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr masks one attribute, descending into groups.
func sanitizeAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch {
	case v.Kind() == slog.KindGroup:
		group := v.Group()
		clean := make([]slog.Attr, len(group))
		for i, g := range group {
			clean[i] = sanitizeAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case isSensitiveKey(a.Key):
		return slog.String(a.Key, MaskValue)
	case v.Kind() != slog.KindString:
		return a
	}

	s := v.String()
	if isSensitiveValue(s) {
		return slog.String(a.Key, MaskValue)
	}
	if redacted, ok := redactURL(s); ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

// isSensitiveKey reports whether an attribute key, header name or query
// parameter names a secret.
func isSensitiveKey(key string) bool {
	k := strings.ReplaceAll(strings.ToLower(key), "-", "_")
	if slices.Contains(sensitiveExactKeys, k) {
		return true
	}
	return containsSensitiveKeyword(k)
}

// containsSensitiveKeyword checks if the lower-cased key contains a
// sensitive keyword.
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

// redactURL masks the password of a URL with userinfo and the values of
// sensitive query parameters. It reports false when value is not a URL or
// carries nothing to mask.
func redactURL(value string) (string, bool) {
	if !strings.Contains(value, "://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", false
	}

	changed := false
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), urlMask)
			changed = true
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if isSensitiveKey(name) {
				q.Set(name, urlMask)
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	if !changed {
		return "", false
	}
	return u.String(), true
}

// levelFor maps the verbose flag to a level. The crawl is long-running, so
// the quiet level is Info to keep progress lines visible.
func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewSecureLogger creates a text logger that masks secrets. Verbose enables
// Debug records.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(verbose)}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, opts)))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output for log
// aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(verbose)}
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, opts)))
}

// NewDiscardLogger returns a logger that drops every record. Components use
// it when no logger is supplied.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
