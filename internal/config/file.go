package config

import (
	"strings"
	"time"
)

// DomainConfig holds request overrides for one domain.
type DomainConfig struct {
	// Cookie is sent with every request to the domain.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers added to requests to the domain.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Skip excludes the domain from fetching. Its record is still kept when
	// another strategy discovers it.
	Skip bool `yaml:"skip,omitempty"`
}

// File represents the structure of the .tldcrawl.yaml configuration file.
// Every field is optional; unset fields keep the value already in Config.
type File struct {
	TargetSuffix    string   `yaml:"target_suffix,omitempty"`
	MaxPages        int      `yaml:"max_pages,omitempty"`
	MaxDepth        *int     `yaml:"max_depth,omitempty"`
	Concurrency     int      `yaml:"concurrency,omitempty"`
	Proxies         []string `yaml:"proxies,omitempty"`
	UserAgents      []string `yaml:"user_agents,omitempty"`
	Strategies      []string `yaml:"strategies,omitempty"`
	RespectRobots   *bool    `yaml:"respect_robots,omitempty"`
	OutputDir       string   `yaml:"output_dir,omitempty"`
	Seeds           []string `yaml:"seeds,omitempty"`
	IgnorePatterns  []string `yaml:"ignore_patterns,omitempty"`
	FollowPatterns  []string `yaml:"follow_patterns,omitempty"`
	SearchEngines   []string `yaml:"search_engines,omitempty"`
	SearchPages     int      `yaml:"search_pages,omitempty"`
	Headless        *bool    `yaml:"headless,omitempty"`
	RequestTimeout  Duration `yaml:"request_timeout,omitempty"`
	RobotsTimeout   Duration `yaml:"robots_timeout,omitempty"`
	ProbeTimeout    Duration `yaml:"probe_timeout,omitempty"`
	MinDelay        Duration `yaml:"min_delay,omitempty"`
	MaxDelay        Duration `yaml:"max_delay,omitempty"`
	RetryAttempts   int      `yaml:"retry_attempts,omitempty"`
	RetryBackoff    Duration `yaml:"retry_backoff,omitempty"`
	DomainRate      *float64 `yaml:"domain_rate,omitempty"`
	CheckpointEvery *int     `yaml:"checkpoint_every,omitempty"`
	CTLogURL        string   `yaml:"ct_log_url,omitempty"`

	// Domains maps a domain (without scheme) to its overrides.
	Domains map[string]DomainConfig `yaml:"domains,omitempty"`

	// Defaults are applied to every domain unless overridden in Domains.
	Defaults DomainConfig `yaml:"defaults,omitempty"`
}

// ApplyTo copies every set field of the file into cfg and attaches the file
// so per-domain overrides are available to the fetcher.
func (f *File) ApplyTo(cfg *Config) {
	if f.TargetSuffix != "" {
		cfg.TargetSuffix = f.TargetSuffix
	}
	if f.MaxPages != 0 {
		cfg.MaxPages = f.MaxPages
	}
	if f.MaxDepth != nil {
		cfg.MaxDepth = *f.MaxDepth
	}
	if f.Concurrency != 0 {
		cfg.Concurrency = f.Concurrency
	}
	if len(f.Proxies) > 0 {
		cfg.Proxies = f.Proxies
	}
	if len(f.UserAgents) > 0 {
		cfg.UserAgents = f.UserAgents
	}
	if len(f.Strategies) > 0 {
		cfg.Strategies = f.Strategies
	}
	if f.RespectRobots != nil {
		cfg.RespectRobots = *f.RespectRobots
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if len(f.Seeds) > 0 {
		cfg.Seeds = f.Seeds
	}
	if len(f.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = f.IgnorePatterns
	}
	if len(f.FollowPatterns) > 0 {
		cfg.FollowPatterns = f.FollowPatterns
	}
	if len(f.SearchEngines) > 0 {
		cfg.SearchEngines = f.SearchEngines
	}
	if f.SearchPages != 0 {
		cfg.SearchPages = f.SearchPages
	}
	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	setDuration(&cfg.RequestTimeout, f.RequestTimeout)
	setDuration(&cfg.RobotsTimeout, f.RobotsTimeout)
	setDuration(&cfg.ProbeTimeout, f.ProbeTimeout)
	setDuration(&cfg.MinDelay, f.MinDelay)
	setDuration(&cfg.MaxDelay, f.MaxDelay)
	setDuration(&cfg.RetryBackoff, f.RetryBackoff)
	if f.RetryAttempts != 0 {
		cfg.RetryAttempts = f.RetryAttempts
	}
	if f.DomainRate != nil {
		cfg.DomainRate = *f.DomainRate
	}
	if f.CheckpointEvery != nil {
		cfg.CheckpointEvery = *f.CheckpointEvery
	}
	if f.CTLogURL != "" {
		cfg.CTLogURL = f.CTLogURL
	}
	cfg.File = f
}

func setDuration(dst *time.Duration, d Duration) {
	if !d.IsZero() {
		*dst = d.Duration
	}
}

// GetDomainConfig returns the overrides for domain merged over Defaults.
// Lookup is case-insensitive and ignores a leading "www.".
func (f *File) GetDomainConfig(domain string) DomainConfig {
	result := f.Defaults
	if len(f.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(f.Defaults.Headers))
		for k, v := range f.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	key := strings.TrimPrefix(strings.ToLower(domain), "www.")
	for name, dc := range f.Domains {
		if strings.TrimPrefix(strings.ToLower(name), "www.") != key {
			continue
		}
		if dc.Cookie != "" {
			result.Cookie = dc.Cookie
		}
		if dc.Skip {
			result.Skip = true
		}
		if len(dc.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range dc.Headers {
				result.Headers[k] = v
			}
		}
	}
	return result
}
