package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults. A failure here means a default
// changed, which should be intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("target suffix is .rw", func(t *testing.T) {
		t.Parallel()
		if cfg.TargetSuffix != ".rw" {
			t.Errorf("expected TargetSuffix .rw, got %q", cfg.TargetSuffix)
		}
	})

	t.Run("crawl bounds", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 1000 || cfg.MaxDepth != 3 || cfg.Concurrency != 5 {
			t.Errorf("unexpected bounds: pages=%d depth=%d concurrency=%d", cfg.MaxPages, cfg.MaxDepth, cfg.Concurrency)
		}
	})

	t.Run("politeness", func(t *testing.T) {
		t.Parallel()
		if !cfg.RespectRobots {
			t.Error("expected RespectRobots to be true")
		}
		if cfg.MinDelay != time.Second || cfg.MaxDelay != 7*time.Second {
			t.Errorf("expected 1s..7s delay, got %v..%v", cfg.MinDelay, cfg.MaxDelay)
		}
	})

	t.Run("retry", func(t *testing.T) {
		t.Parallel()
		if cfg.RetryAttempts != 3 {
			t.Errorf("expected 3 attempts, got %d", cfg.RetryAttempts)
		}
		if cfg.RequestTimeout != 15*time.Second {
			t.Errorf("expected 15s request timeout, got %v", cfg.RequestTimeout)
		}
	})

	t.Run("all strategies enabled", func(t *testing.T) {
		t.Parallel()
		for _, s := range AllStrategies {
			if !cfg.StrategyEnabled(s) {
				t.Errorf("expected strategy %s to be enabled", s)
			}
		}
	})

	t.Run("pools are copies", func(t *testing.T) {
		t.Parallel()
		other := NewConfig()
		other.Seeds[0] = "changed.rw"
		if DefaultSeeds[0] == "changed.rw" {
			t.Error("NewConfig must not alias DefaultSeeds")
		}
	})

	t.Run("default config validates", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"empty suffix", func(c *Config) { c.TargetSuffix = "." }, ErrEmptyTargetSuffix},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"zero depth is fine", func(c *Config) { c.MaxDepth = 0 }, nil},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"no user agents", func(c *Config) { c.UserAgents = nil }, ErrNoUserAgents},
		{"bad proxy scheme", func(c *Config) { c.Proxies = []string{"ftp://p:21"} }, ErrInvalidProxy},
		{"proxy without host", func(c *Config) { c.Proxies = []string{"http://"} }, ErrInvalidProxy},
		{"socks proxy", func(c *Config) { c.Proxies = []string{"socks5://127.0.0.1:1080"} }, nil},
		{"unknown strategy", func(c *Config) { c.Strategies = []string{"telepathy"} }, ErrUnknownStrategy},
		{"unknown engine", func(c *Config) { c.SearchEngines = []string{"altavista"} }, ErrUnknownSearchEngine},
		{"zero search pages", func(c *Config) { c.SearchPages = 0 }, ErrInvalidSearchPages},
		{"empty output", func(c *Config) { c.OutputDir = " " }, ErrEmptyOutputDir},
		{"zero timeout", func(c *Config) { c.RobotsTimeout = 0 }, ErrInvalidTimeout},
		{"inverted delay", func(c *Config) { c.MinDelay = 5 * time.Second; c.MaxDelay = time.Second }, ErrInvalidDelay},
		{"zero delay is fine", func(c *Config) { c.MinDelay = 0; c.MaxDelay = 0 }, nil},
		{"zero attempts", func(c *Config) { c.RetryAttempts = 0 }, ErrInvalidRetry},
		{"negative rate", func(c *Config) { c.DomainRate = -1 }, ErrInvalidDomainRate},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative checkpoint", func(c *Config) { c.CheckpointEvery = -1 }, ErrInvalidCheckpoint},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("seeds: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("applies fields", func(t *testing.T) {
		t.Parallel()

		content := `
max_pages: 20
max_depth: 0
respect_robots: false
seeds: [example.rw]
request_timeout: 3s
min_delay: 0
max_delay: 2
domain_rate: 0
proxies:
  - socks5://127.0.0.1:9050
defaults:
  headers:
    X-Default: "1"
domains:
  www.example.rw:
    cookie: "session=abc"
    headers:
      X-Site: "2"
  skipped.rw:
    skip: true
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		file, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}

		cfg := NewConfig()
		file.ApplyTo(cfg)

		if cfg.MaxPages != 20 || cfg.MaxDepth != 0 {
			t.Errorf("bounds not applied: pages=%d depth=%d", cfg.MaxPages, cfg.MaxDepth)
		}
		if cfg.RespectRobots {
			t.Error("respect_robots: false not applied")
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "example.rw" {
			t.Errorf("seeds = %v", cfg.Seeds)
		}
		if cfg.RequestTimeout != 3*time.Second {
			t.Errorf("request_timeout = %v", cfg.RequestTimeout)
		}
		if cfg.MaxDelay != 2*time.Second {
			t.Errorf("numeric max_delay should be seconds, got %v", cfg.MaxDelay)
		}
		if cfg.MinDelay != DefaultMinDelay {
			t.Errorf("zero min_delay keeps the default, got %v", cfg.MinDelay)
		}
		if cfg.DomainRate != 0 {
			t.Errorf("explicit domain_rate 0 should disable the limiter, got %v", cfg.DomainRate)
		}
		if cfg.StrategyEnabled("nope") {
			t.Error("unexpected strategy")
		}

		dc := cfg.DomainOverride("EXAMPLE.rw")
		if dc.Cookie != "session=abc" {
			t.Errorf("cookie = %q", dc.Cookie)
		}
		if dc.Headers["X-Default"] != "1" || dc.Headers["X-Site"] != "2" {
			t.Errorf("headers = %v", dc.Headers)
		}
		if !cfg.DomainOverride("skipped.rw").Skip {
			t.Error("expected skipped.rw to be skipped")
		}
		if cfg.DomainOverride("other.rw").Skip {
			t.Error("other.rw should not be skipped")
		}
	})
}

func TestGetDomainConfigDoesNotMutateDefaults(t *testing.T) {
	t.Parallel()

	f := &File{
		Defaults: DomainConfig{Headers: map[string]string{"A": "1"}},
		Domains: map[string]DomainConfig{
			"gov.rw": {Headers: map[string]string{"B": "2"}},
		},
	}
	_ = f.GetDomainConfig("gov.rw")
	if _, ok := f.Defaults.Headers["B"]; ok {
		t.Error("GetDomainConfig leaked a site header into Defaults")
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir() = %q", XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir() = %q", XDGConfigDir())
	}
}
