package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "tldcrawl"

	// DefaultTargetSuffix is the top-level domain the crawler catalogs.
	DefaultTargetSuffix = ".rw"

	// DefaultMaxPages bounds the number of successfully fetched pages per run.
	DefaultMaxPages = 1000

	// DefaultMaxDepth is the link depth beyond a seed that is still fetched.
	// Items at depth >= MaxDepth are recorded but never fetched.
	DefaultMaxDepth = 3

	// DefaultConcurrency is the worker pool width. Single digits keep the
	// load on any one national-TLD host modest.
	DefaultConcurrency = 5

	// DefaultOutputDir is where catalog documents are written.
	DefaultOutputDir = "data"

	// DefaultRequestTimeout is the per-attempt timeout of the page fetcher.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultRobotsTimeout is the timeout for a robots.txt download.
	DefaultRobotsTimeout = 5 * time.Second

	// DefaultProbeTimeout is the timeout of one brute-force HEAD probe.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultMinDelay and DefaultMaxDelay bound the randomized politeness
	// delay that precedes every fetch.
	DefaultMinDelay = 1 * time.Second
	DefaultMaxDelay = 7 * time.Second

	// DefaultRetryAttempts is the number of fetch attempts per URL.
	DefaultRetryAttempts = 3

	// DefaultRetryBackoff is the base of the incremental retry backoff.
	// Attempt n waits roughly n times this value.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultDomainRate is the steady-state request rate per host in
	// requests per second. Zero disables the limiter.
	DefaultDomainRate = 1.0

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSearchPages caps result pages per search query.
	DefaultSearchPages = 3

	// DefaultCheckpointEvery is the number of crawled pages between full
	// catalog snapshots. Zero disables page-count checkpoints.
	DefaultCheckpointEvery = 50

	// DefaultCTLogURL is the certificate transparency search service.
	DefaultCTLogURL = "https://crt.sh/"

	// LogFormatText and LogFormatJSON are the accepted log formats.
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration options for one crawl run.
// It is populated from defaults, the YAML config file and CLI flags, in that
// order of increasing precedence, and is treated as immutable once the run
// starts.
//
// Design decision: We keep a single flat struct, as the rest of the
// application only reads it. Nesting (CrawlConfig, FetchConfig) would add
// indirection without a second consumer that needs a sub-struct.
type Config struct {
	// TargetSuffix is the top-level domain suffix, e.g. ".rw".
	TargetSuffix string

	// MaxPages is the number of successfully fetched pages after which the
	// worker pool stops.
	MaxPages int

	// MaxDepth is the maximum link depth. Depth 0 fetches only seeds and
	// search results; links found on them are recorded but not fetched.
	MaxDepth int

	// Concurrency is the worker pool width and the brute-force probe width.
	Concurrency int

	// Proxies is the proxy pool. Entries are URLs with scheme http, https or
	// socks5. An empty pool means direct connections.
	Proxies []string

	// UserAgents is the user-agent pool. One is picked at random per attempt.
	UserAgents []string

	// Strategies is the set of enabled discovery strategies.
	Strategies []string

	// RespectRobots enables the robots.txt politeness gate.
	RespectRobots bool

	// OutputDir is the directory holding the catalog documents.
	OutputDir string

	// Seeds are the domains pushed into the frontier by the seed strategy.
	Seeds []string

	// IgnorePatterns are URL path globs never followed by the crawl loop,
	// e.g. "/admin/*" or "*.php".
	IgnorePatterns []string

	// FollowPatterns, when set, restrict followed links to matching paths.
	FollowPatterns []string

	// SearchEngines lists the engines queried by the search strategy.
	SearchEngines []string

	// SearchPages caps the result pages requested per query.
	SearchPages int

	// Headless enables the headless browser for search result pages and for
	// crawl pages that yield no links over plain HTTP.
	Headless bool

	// RequestTimeout is the timeout of one page fetch attempt.
	RequestTimeout time.Duration

	// RobotsTimeout is the timeout of one robots.txt download.
	RobotsTimeout time.Duration

	// ProbeTimeout is the timeout of one brute-force existence probe.
	ProbeTimeout time.Duration

	// MinDelay and MaxDelay bound the politeness delay before every fetch.
	MinDelay time.Duration
	MaxDelay time.Duration

	// RetryAttempts is the number of attempts per fetch.
	RetryAttempts int

	// RetryBackoff is the base of the incremental retry backoff.
	RetryBackoff time.Duration

	// DomainRate is the per-host request rate in requests per second.
	DomainRate float64

	// MaxBodySize is the maximum response body size in bytes to read.
	// Zero uses DefaultMaxBodySize.
	MaxBodySize int64

	// CheckpointEvery is the number of crawled pages between snapshots.
	CheckpointEvery int

	// CTLogURL is the base URL of the certificate transparency search service.
	CTLogURL string

	// DBDir is the directory of the SQLite run history database.
	DBDir string

	// SaveToDB enables the run history database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string

	// ConfigFilePath is the explicit path of the YAML config file, if any.
	ConfigFilePath string

	// File holds the loaded config file. It carries per-domain overrides
	// consulted by the fetcher.
	File *File
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		TargetSuffix:    DefaultTargetSuffix,
		MaxPages:        DefaultMaxPages,
		MaxDepth:        DefaultMaxDepth,
		Concurrency:     DefaultConcurrency,
		UserAgents:      slices.Clone(DefaultUserAgents),
		Strategies:      slices.Clone(AllStrategies),
		RespectRobots:   true,
		OutputDir:       DefaultOutputDir,
		Seeds:           slices.Clone(DefaultSeeds),
		SearchEngines:   slices.Clone(DefaultSearchEngines),
		SearchPages:     DefaultSearchPages,
		RequestTimeout:  DefaultRequestTimeout,
		RobotsTimeout:   DefaultRobotsTimeout,
		ProbeTimeout:    DefaultProbeTimeout,
		MinDelay:        DefaultMinDelay,
		MaxDelay:        DefaultMaxDelay,
		RetryAttempts:   DefaultRetryAttempts,
		RetryBackoff:    DefaultRetryBackoff,
		DomainRate:      DefaultDomainRate,
		MaxBodySize:     DefaultMaxBodySize,
		CheckpointEvery: DefaultCheckpointEvery,
		CTLogURL:        DefaultCTLogURL,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
		LogFormat:       LogFormatText,
	}
}

// XDGDataDir returns the XDG data directory for tldcrawl.
// On Linux: ~/.local/share/tldcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for tldcrawl.
// On Linux: ~/.config/tldcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// StrategyEnabled reports whether the named strategy is enabled.
func (c *Config) StrategyEnabled(name string) bool {
	return slices.Contains(c.Strategies, name)
}

// DomainOverride returns the config file overrides for domain.
func (c *Config) DomainOverride(domain string) DomainConfig {
	if c.File == nil {
		return DomainConfig{}
	}
	return c.File.GetDomainConfig(domain)
}

// Validate checks if the configuration is valid.
//
// Design decision: We validate once, after flags and the config file are
// merged and before any network activity. The first violated rule is
// returned because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if strings.Trim(strings.TrimSpace(c.TargetSuffix), ".") == "" {
		return ErrEmptyTargetSuffix
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if len(c.UserAgents) == 0 {
		return ErrNoUserAgents
	}
	for _, p := range c.Proxies {
		if err := validateProxy(p); err != nil {
			return err
		}
	}
	for _, s := range c.Strategies {
		if !slices.Contains(AllStrategies, s) {
			return ErrUnknownStrategy
		}
	}
	for _, e := range c.SearchEngines {
		if !slices.Contains(KnownSearchEngines, e) {
			return ErrUnknownSearchEngine
		}
	}
	if c.SearchPages < 1 {
		return ErrInvalidSearchPages
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrEmptyOutputDir
	}
	if c.RequestTimeout <= 0 || c.RobotsTimeout <= 0 || c.ProbeTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return ErrInvalidDelay
	}
	if c.RetryAttempts < 1 || c.RetryBackoff < 0 {
		return ErrInvalidRetry
	}
	if c.DomainRate < 0 {
		return ErrInvalidDomainRate
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.CheckpointEvery < 0 {
		return ErrInvalidCheckpoint
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}
	return nil
}

// validateProxy checks that a proxy entry is a URL with a supported scheme
// and a host.
func validateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInvalidProxy
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return nil
	default:
		return ErrInvalidProxy
	}
}
