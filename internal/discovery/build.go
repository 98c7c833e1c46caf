package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/tldcrawl/internal/catalog"
	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/crawler"
	"github.com/nao1215/tldcrawl/internal/database"
	"github.com/nao1215/tldcrawl/internal/fetcher"
	"github.com/nao1215/tldcrawl/internal/model"
	"github.com/nao1215/tldcrawl/internal/robots"
	"github.com/nao1215/tldcrawl/internal/transport"
)

// ctLogTimeout bounds the certificate transparency download, which is far
// larger than any page.
const ctLogTimeout = 3 * time.Minute

// Runtime is a fully wired crawl run.
type Runtime struct {
	Orchestrator *Orchestrator
	Catalog      *catalog.Catalog
	Store        *catalog.Store
	Pool         *transport.Pool
	RunID        string
	// Preloaded is the number of records carried over from the existing
	// catalog file.
	Preloaded int
}

// Build wires every component of a run from cfg. The run history database
// is opened when cfg.SaveToDB is set; failing to open it is logged and the
// run continues without history.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	target := model.NewTarget(cfg.TargetSuffix)
	rnd := fetcher.NewRand(uint64(time.Now().UnixNano())) //nolint:gosec // non-negative

	pool, err := transport.NewPool(cfg.Proxies,
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithHeaderFunc(func(host string) (string, map[string]string) {
			dc := cfg.DomainOverride(host)
			return dc.Cookie, dc.Headers
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transport pool: %w", err)
	}

	httpFetcher := fetcher.NewHTTPFetcher(pool,
		fetcher.WithUserAgents(cfg.UserAgents),
		fetcher.WithRetry(cfg.RetryAttempts, cfg.RetryBackoff),
		fetcher.WithDelay(cfg.MinDelay, cfg.MaxDelay),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithDomainLimiter(fetcher.NewDomainLimiter(cfg.DomainRate, 1)),
		fetcher.WithSkip(func(host string) bool { return cfg.DomainOverride(host).Skip }),
		fetcher.WithRand(rnd),
		fetcher.WithLogger(logger.With("component", "fetcher")),
	)

	gate := robots.NewGate(pool.Direct().Client,
		robots.WithRespect(cfg.RespectRobots),
		robots.WithTimeout(cfg.RobotsTimeout),
		robots.WithUserAgent(rnd.Pick(cfg.UserAgents)),
		robots.WithLogger(logger.With("component", "robots")),
	)

	var renderer *fetcher.Renderer
	if cfg.Headless {
		proxy := ""
		if len(cfg.Proxies) > 0 {
			proxy = cfg.Proxies[0]
		}
		renderer = fetcher.NewRenderer(fetcher.RenderOptions{
			Timeout:        2 * cfg.RequestTimeout,
			UserAgents:     cfg.UserAgents,
			Proxy:          proxy,
			MaxBodySize:    cfg.MaxBodySize,
			ScrollPause:    time.Second,
			ConcurrentTabs: cfg.Concurrency,
		}, fetcher.WithRenderLogger(logger.With("component", "renderer")), fetcher.WithRenderRand(rnd))
	}

	store := catalog.NewStore(cfg.OutputDir, target.Label())
	catalogOpts := []catalog.Option{
		catalog.WithStore(store),
		catalog.WithLogger(logger.With("component", "catalog")),
	}

	orchOpts := []Option{
		WithCheckpointEvery(cfg.CheckpointEvery),
		WithArchiver(store),
		WithRand(rnd),
		WithLogger(logger),
	}
	if renderer != nil {
		orchOpts = append(orchOpts, WithCloser(renderer))
	}

	runID := uuid.NewString()
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			run, err := db.StartRun(ctx, target.Suffix(), cfg.Strategies)
			if err != nil {
				_ = db.Close()
				logger.Warn("run history disabled", "error", err)
			} else {
				runID = run.ID
				catalogOpts = append(catalogOpts, catalog.WithSink(db.Sink(run.ID)))
				orchOpts = append(orchOpts, WithHistory(db), WithCloser(db))
			}
		}
	}
	orchOpts = append(orchOpts, WithRunID(runID))

	cat := catalog.New(catalogOpts...)
	preloaded, err := preload(cat, store)
	if err != nil {
		logger.Warn("existing catalog is unreadable, starting empty", "path", store.Path(), "error", err)
	}

	crawlerOpts := []crawler.Option{
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithGate(gate),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.FollowPatterns),
	}
	if renderer != nil {
		crawlerOpts = append(crawlerOpts, crawler.WithRenderer(renderer))
	}
	orchOpts = append(orchOpts, WithCrawlerOptions(crawlerOpts...))

	phase1, phase2, err := strategies(cfg, pool, httpFetcher, renderer, rnd)
	if err != nil {
		return nil, err
	}
	orchOpts = append(orchOpts, WithPhase(phase1...), WithPhase(phase2...))
	if cfg.StrategyEnabled(config.StrategySearch) {
		orchOpts = append(orchOpts, WithSearchEngines(cfg.SearchEngines))
	}

	frontier := crawler.NewFrontier(target, cfg.MaxDepth)
	orch := New(frontier, httpFetcher, cat, target, orchOpts...)

	return &Runtime{
		Orchestrator: orch,
		Catalog:      cat,
		Store:        store,
		Pool:         pool,
		RunID:        runID,
		Preloaded:    preloaded,
	}, nil
}

// preload carries the records of the existing catalog file into cat, so a
// resumed run never rediscovers them.
func preload(cat *catalog.Catalog, store *catalog.Store) (int, error) {
	doc, err := store.Load()
	if err != nil && !errors.Is(err, catalog.ErrCorruptDocument) {
		return 0, err
	}
	return cat.Preload(doc.Domains), err
}

// strategies builds the enabled strategies split into the two phases.
func strategies(cfg *config.Config, pool *transport.Pool, httpFetcher fetcher.Fetcher, renderer *fetcher.Renderer, rnd *fetcher.Rand) ([]Strategy, []Strategy, error) {
	var phase1, phase2 []Strategy
	direct := pool.Direct().Client

	for _, name := range cfg.Strategies {
		switch name {
		case config.StrategyCTLog:
			client := &http.Client{Timeout: ctLogTimeout, Transport: direct.Transport}
			phase1 = append(phase1, NewCTLog(cfg.CTLogURL, client, WithCTLogUserAgent(rnd.Pick(cfg.UserAgents))))
		case config.StrategySeed:
			phase1 = append(phase1, NewSeed(cfg.Seeds))
		case config.StrategyZoneTransfer:
			phase1 = append(phase1, NewZoneTransfer(cfg.ProbeTimeout))
		case config.StrategySearch:
			for _, engine := range cfg.SearchEngines {
				opts := []SearchOption{WithSearchPages(cfg.SearchPages)}
				if renderer != nil {
					opts = append(opts, WithSessions(func(name string) (fetcher.Fetcher, error) {
						session, err := renderer.Session(name)
						if err != nil {
							return nil, err
						}
						return session, nil
					}))
				}
				s, err := NewSearch(engine, httpFetcher, opts...)
				if err != nil {
					return nil, nil, err
				}
				phase1 = append(phase1, s)
			}
		case config.StrategyBruteForce:
			prober := NewHTTPProber(direct, cfg.ProbeTimeout, cfg.UserAgents, rnd)
			phase2 = append(phase2, NewBruteForce(prober, cfg.Seeds, WithProbeConcurrency(cfg.Concurrency)))
		default:
			return nil, nil, fmt.Errorf("%w: %s", config.ErrUnknownStrategy, name)
		}
	}
	return phase1, phase2, nil
}
