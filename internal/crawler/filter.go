package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// shouldFollow checks if a link should be queued based on ignore/follow
// patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it (return false)
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, follow it (return true)
func (c *Crawler) shouldFollow(targetURL string) bool {
	if len(c.ignore) == 0 && len(c.follow) == 0 {
		return true
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range c.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(c.follow) > 0 {
		for _, pattern := range c.follow {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}
	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.php" matches "/index.php"
//   - "/news/20??" matches "/news/2024"
func matchPattern(pattern, path string) bool {
	// "/admin/*" matches everything below /admin, not just one segment.
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Bare filename patterns are matched against the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
