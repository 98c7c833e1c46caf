package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
)

const ctLogTitle = "Found via Certificate Transparency logs"

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ctEntry is the subset of a crt.sh JSON row we read.
type ctEntry struct {
	NameValue  string `json:"name_value"`
	CommonName string `json:"common_name"`
}

// CTLog mines certificate transparency logs for names under the target.
//
// Design decision: crt.sh answers "%.rw" with one JSON array that can run to
// hundreds of megabytes. The body is decoded element by element so memory
// stays flat and domains are recorded while the download is still running.
type CTLog struct {
	baseURL   string
	client    Doer
	userAgent string
}

// CTLogOption configures a CTLog.
type CTLogOption func(*CTLog)

// WithCTLogUserAgent sets the User-Agent header of the query.
func WithCTLogUserAgent(ua string) CTLogOption {
	return func(s *CTLog) {
		s.userAgent = ua
	}
}

// NewCTLog creates the strategy querying baseURL, e.g. "https://crt.sh/".
func NewCTLog(baseURL string, client Doer, opts ...CTLogOption) *CTLog {
	s := &CTLog{
		baseURL: baseURL,
		client:  client,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	return s
}

// Name returns "ct_log".
func (s *CTLog) Name() string {
	return config.StrategyCTLog
}

// Run queries the log and records every matching name.
func (s *CTLog) Run(ctx context.Context, env *Env) error {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return fmt.Errorf("invalid CT log URL %q: %w", s.baseURL, err)
	}
	q := u.Query()
	q.Set("q", "%"+env.Target.Suffix())
	q.Set("output", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create CT log request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("CT log query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CT log query failed: %w", &fetcher.StatusError{Code: resp.StatusCode})
	}

	pattern := hostPattern(env.Target)
	dec := json.NewDecoder(resp.Body)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read CT log response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("%w: CT log response is not a JSON array", ErrUnexpectedResponse)
	}

	seen := make(map[string]struct{})
	added := 0
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var entry ctEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("failed to decode CT log entry after %d names: %w", len(seen), err)
		}
		for _, host := range certificateNames(pattern, entry.NameValue, entry.CommonName) {
			if _, dup := seen[host]; dup {
				continue
			}
			seen[host] = struct{}{}
			if env.record(ctx, "https://"+host, model.MethodCertificateTransparency, ctLogTitle) {
				added++
			}
		}
	}

	env.Logger.Info("certificate transparency query finished", "names", len(seen), "added", added)
	return nil
}

// hostPattern matches a complete host name under target.
func hostPattern(target model.Target) *regexp.Regexp {
	return regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+` + regexp.QuoteMeta(target.Label()) + `$`)
}

// certificateNames splits certificate name fields into host names under the
// target. Wildcard labels are stripped, so "*.gov.rw" yields "gov.rw".
func certificateNames(pattern *regexp.Regexp, fields ...string) []string {
	var hosts []string
	for _, field := range fields {
		tokens := strings.FieldsFunc(field, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\r' || r == '\t'
		})
		for _, tok := range tokens {
			host := strings.ToLower(strings.TrimSuffix(tok, "."))
			for strings.HasPrefix(host, "*.") {
				host = host[2:]
			}
			if pattern.MatchString(host) {
				hosts = append(hosts, host)
			}
		}
	}
	return hosts
}
