package model

import (
	"net"
	"net/url"
	"path"
	"strings"
)

// wwwPrefix is the literal prefix stripped by NormalizeDomain.
const wwwPrefix = "www."

// nonDocumentExtensions lists path extensions that never contain crawlable
// markup. URLs ending in one of these are rejected by IsValidURL.
var nonDocumentExtensions = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".ico": {}, ".bmp": {}, ".css": {}, ".js": {}, ".xml": {},
	".json": {}, ".zip": {}, ".rar": {}, ".gz": {}, ".tar": {}, ".7z": {},
	".doc": {}, ".docx": {}, ".ppt": {}, ".pptx": {}, ".xls": {}, ".xlsx": {},
	".mp3": {}, ".mp4": {}, ".avi": {},
}

// IsValidURL reports whether raw is an absolute http or https URL with a
// non-empty host whose path does not point at a non-document resource.
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Hostname() == "" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if _, skip := nonDocumentExtensions[ext]; skip {
		return false
	}
	return true
}

// ExtractDomain returns the lower-cased host of raw without any port.
// It returns an empty string when raw cannot be parsed or has no host.
func ExtractDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// NormalizeDomain strips a leading "www." prefix.
// The prefix is removed repeatedly as long as the remainder still contains
// a dot, which keeps the function idempotent and leaves "www.rw" untouched.
func NormalizeDomain(domain string) string {
	for strings.HasPrefix(domain, wwwPrefix) {
		rest := domain[len(wwwPrefix):]
		if !strings.Contains(rest, ".") {
			break
		}
		domain = rest
	}
	return domain
}

// CanonicalDomain returns the catalog key for domain: trimmed, lower-cased,
// without a trailing dot and with the www prefix removed.
func CanonicalDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	return NormalizeDomain(d)
}

// Target classifies URLs and hosts against one top-level domain suffix.
// The zero value matches nothing.
type Target struct {
	suffix string
}

// NewTarget creates a Target for suffix. A missing leading dot is added,
// so "rw" and ".rw" are equivalent.
func NewTarget(suffix string) Target {
	s := strings.ToLower(strings.TrimSpace(suffix))
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return Target{}
	}
	if !strings.HasPrefix(s, ".") {
		s = "." + s
	}
	return Target{suffix: s}
}

// Suffix returns the normalized suffix including its leading dot.
func (t Target) Suffix() string {
	return t.suffix
}

// Label returns the suffix without its leading dot, e.g. "rw".
func (t Target) Label() string {
	return strings.TrimPrefix(t.suffix, ".")
}

// MatchesHost reports whether host belongs to the target domain.
// IP literals never match.
func (t Target) MatchesHost(host string) bool {
	if t.suffix == "" {
		return false
	}
	h := strings.ToLower(strings.TrimSuffix(host, "."))
	if h == "" || net.ParseIP(strings.Trim(h, "[]")) != nil {
		return false
	}
	return strings.HasSuffix(h, t.suffix) && len(h) > len(t.suffix)
}

// Matches reports whether the host of raw belongs to the target domain.
func (t Target) Matches(raw string) bool {
	return t.MatchesHost(ExtractDomain(raw))
}

// IsTargetDomain reports whether the host of raw ends with suffix.
func IsTargetDomain(raw, suffix string) bool {
	return NewTarget(suffix).Matches(raw)
}
