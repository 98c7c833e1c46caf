package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrEmptyTargetSuffix is returned when no top-level domain is configured.
	ErrEmptyTargetSuffix = errors.New("empty target suffix: set a top-level domain such as .rw")

	// ErrInvalidMaxPages is returned when max pages is below one.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidMaxDepth is returned when max depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker pool width is below one.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrNoUserAgents is returned when the user-agent pool is empty.
	ErrNoUserAgents = errors.New("user-agent pool cannot be empty")

	// ErrInvalidProxy is returned when a proxy entry is not an http, https or
	// socks5 URL with a host.
	ErrInvalidProxy = errors.New("invalid proxy: expected http://, https:// or socks5:// URL with host")

	// ErrUnknownStrategy is returned when a strategy name is not recognized.
	ErrUnknownStrategy = errors.New("unknown discovery strategy")

	// ErrUnknownSearchEngine is returned when a search engine name is not recognized.
	ErrUnknownSearchEngine = errors.New("unknown search engine")

	// ErrInvalidSearchPages is returned when the per-query page cap is below one.
	ErrInvalidSearchPages = errors.New("invalid search pages: must be at least 1")

	// ErrEmptyOutputDir is returned when no output directory is configured.
	ErrEmptyOutputDir = errors.New("output directory cannot be empty")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the politeness delay bounds are
	// negative or inverted.
	ErrInvalidDelay = errors.New("invalid delay: need 0 <= min-delay <= max-delay")

	// ErrInvalidRetry is returned when retry attempts are below one or the
	// backoff is negative.
	ErrInvalidRetry = errors.New("invalid retry settings: attempts must be at least 1 and backoff non-negative")

	// ErrInvalidDomainRate is returned when the per-host rate is negative.
	ErrInvalidDomainRate = errors.New("invalid domain rate: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidCheckpoint is returned when the checkpoint interval is negative.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint interval: must be non-negative")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")
)
