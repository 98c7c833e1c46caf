package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/tldcrawl/internal/catalog"
	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/discovery"
	tlog "github.com/nao1215/tldcrawl/internal/log"
	"github.com/nao1215/tldcrawl/internal/model"
	"github.com/nao1215/tldcrawl/internal/transport"
)

// parseCrawlFlags returns the config built from a crawl invocation.
func parseCrawlFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	root := NewRootCmd()
	crawl, _, err := root.Find([]string{"crawl"})
	if err != nil {
		t.Fatal(err)
	}
	if err := crawl.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return buildConfig(crawl)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("flags override the config file", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, `
max_pages: 50
concurrency: 8
seeds: [risa.rw]
respect_robots: false
request_timeout: "30s"
domains:
  portal.gov.rw:
    cookie: "sid=1"
`)
		cfg, err := parseCrawlFlags(t,
			"--config", path,
			"--max-pages", "10",
			"--strategy", "seed,ct_log",
			"--no-db",
			"-v",
			"--log-format", "json",
		)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}

		if cfg.MaxPages != 10 {
			t.Errorf("MaxPages = %d, flag should win", cfg.MaxPages)
		}
		if cfg.Concurrency != 8 || !slices.Equal(cfg.Seeds, []string{"risa.rw"}) || cfg.RespectRobots {
			t.Errorf("config file values lost: concurrency %d seeds %v robots %v", cfg.Concurrency, cfg.Seeds, cfg.RespectRobots)
		}
		if cfg.RequestTimeout != 30*time.Second {
			t.Errorf("RequestTimeout = %s, unset flag must not reset the file value", cfg.RequestTimeout)
		}
		if !slices.Equal(cfg.Strategies, []string{"seed", "ct_log"}) {
			t.Errorf("Strategies = %v", cfg.Strategies)
		}
		if cfg.SaveToDB || !cfg.Verbose || cfg.LogFormat != config.LogFormatJSON {
			t.Errorf("SaveToDB %v Verbose %v LogFormat %s", cfg.SaveToDB, cfg.Verbose, cfg.LogFormat)
		}
		if cfg.DomainOverride("portal.gov.rw").Cookie != "sid=1" {
			t.Error("per-domain overrides should be attached")
		}
	})

	t.Run("defaults without flags", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseCrawlFlags(t, "--config", writeConfigFile(t, "{}\n"))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.MaxPages != config.DefaultMaxPages || !cfg.RespectRobots || !cfg.SaveToDB {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("boolean negations", func(t *testing.T) {
		t.Parallel()

		cfg, err := parseCrawlFlags(t, "--config", writeConfigFile(t, "{}\n"),
			"--no-robots", "--headless", "--suffix", ".ke", "--seed", "go.ke", "--seed", "kenet.or.ke")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.RespectRobots || !cfg.Headless || cfg.TargetSuffix != ".ke" {
			t.Errorf("RespectRobots %v Headless %v suffix %s", cfg.RespectRobots, cfg.Headless, cfg.TargetSuffix)
		}
		if !slices.Equal(cfg.Seeds, []string{"go.ke", "kenet.or.ke"}) {
			t.Errorf("Seeds = %v", cfg.Seeds)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		_, err := parseCrawlFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("unparsable config file", func(t *testing.T) {
		t.Parallel()

		_, err := parseCrawlFlags(t, "--config", writeConfigFile(t, "max_pages: [oops\n"))
		if err == nil || !strings.Contains(err.Error(), "failed to load config file") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestRunCrawlCmdRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"crawl", "--config", writeConfigFile(t, "{}\n"), "--concurrency", "0"})

	err := root.Execute()
	if !errors.Is(err, config.ErrInvalidConcurrency) {
		t.Errorf("error = %v, want ErrInvalidConcurrency", err)
	}
}

func TestCheckProxies(t *testing.T) {
	t.Parallel()

	pool, err := transport.NewPool([]string{"socks5://127.0.0.1:1", "http://127.0.0.1:1"})
	if err != nil {
		t.Fatal(err)
	}
	checkProxies(t.Context(), pool, tlog.NewDiscardLogger())
	if pool.Len() != 0 {
		t.Errorf("unreachable proxies should be dropped, %d left", pool.Len())
	}

	direct, err := transport.NewPool(nil)
	if err != nil {
		t.Fatal(err)
	}
	checkProxies(t.Context(), direct, tlog.NewDiscardLogger())
	if direct.Len() != 0 {
		t.Error("direct pool must stay empty")
	}
}

type countingStats struct {
	calls atomic.Int32
}

func (c *countingStats) Stats() model.RunStats {
	c.calls.Add(1)
	return model.RunStats{Running: true, PagesCrawled: 7}
}

func TestStartProgress(t *testing.T) {
	t.Parallel()

	t.Run("polls until stopped", func(t *testing.T) {
		t.Parallel()

		src := &countingStats{}
		stop := startProgress(src, time.Millisecond, tlog.NewDiscardLogger())
		deadline := time.Now().Add(5 * time.Second)
		for src.calls.Load() < 2 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		stop()
		after := src.calls.Load()
		if after < 2 {
			t.Fatalf("progress polled %d times", after)
		}
		time.Sleep(10 * time.Millisecond)
		if src.calls.Load() != after {
			t.Error("progress kept polling after stop")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		src := &countingStats{}
		stop := startProgress(src, 0, tlog.NewDiscardLogger())
		stop()
		if src.calls.Load() != 0 {
			t.Error("a zero interval disables progress")
		}
	})
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cat := catalog.New()
	cat.Add(t.Context(), model.DomainRecord{Domain: "gov.rw", URL: "https://gov.rw"})
	rt := &discovery.Runtime{Catalog: cat, Store: catalog.NewStore(dir, "rw")}

	var out bytes.Buffer
	printSummary(&out, rt, &discovery.Summary{
		Stats:       model.RunStats{PagesCrawled: 12, DomainsDiscovered: 1, Elapsed: 90 * time.Second},
		Failed:      []string{"zone_transfer"},
		ArchivePath: filepath.Join(dir, "rw_domains_20240501_130000.json"),
	})

	for _, want := range []string{
		"Crawl finished in 1m30s",
		"Pages crawled:   12",
		"Catalog size:    1",
		filepath.Join(dir, "rw_domains.json"),
		"rw_domains_20240501_130000.json",
		"[zone_transfer]",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	printSummary(&out, rt, nil)
	if out.Len() != 0 {
		t.Error("nil summary prints nothing")
	}
}
