package discovery

import (
	"context"
	"strings"

	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/model"
)

// Seed pushes the configured seed domains into the frontier at depth 0.
type Seed struct {
	seeds []string
}

// NewSeed creates the seed strategy. Entries may be bare domains or URLs.
func NewSeed(seeds []string) *Seed {
	return &Seed{seeds: seeds}
}

// Name returns "seed".
func (s *Seed) Name() string {
	return config.StrategySeed
}

// Run pushes every seed under the target. Seeds outside the target are
// logged and dropped.
func (s *Seed) Run(_ context.Context, env *Env) error {
	items := make([]model.FrontierItem, 0, len(s.seeds))
	for _, seed := range s.seeds {
		u := seedURL(seed)
		if u == "" {
			continue
		}
		if !env.Target.Matches(u) {
			env.Logger.Warn("seed is outside the target domain", "seed", seed, "suffix", env.Target.Suffix())
			continue
		}
		items = append(items, model.FrontierItem{URL: u, Depth: 0, Source: model.MethodSeed})
	}
	env.Frontier.Push(items...)
	env.Logger.Info("seeds queued", "count", len(items))
	return nil
}

// seedURL turns "gov.rw" into "https://gov.rw". URLs are kept as they are.
func seedURL(seed string) string {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return ""
	}
	if strings.Contains(seed, "://") {
		return seed
	}
	return "https://" + strings.TrimSuffix(seed, "/")
}
