package rule

import (
	"context"
	"sort"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

// Config enables a rule and carries its settings.
type Config struct {
	Enabled  bool
	Settings map[string]any
}

// Chain executes rules in sequence.
type Chain struct {
	rules []Rule
}

// NewChain creates a new rule chain.
func NewChain() *Chain {
	return &Chain{
		rules: make([]Rule, 0),
	}
}

// BuildChain creates a chain from configuration.
// The non-finite rule is always present; other registered rules are added
// when enabled, in name order. Rules with invalid settings are skipped.
func BuildChain(configs map[string]Config) *Chain {
	c := NewChain()
	c.Add(&NonFiniteRule{})

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		if !cfg.Enabled || name == nonFiniteRuleName {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			zlog.Warn().Msgf("rule: unknown rule in config: name=%s", name)
			continue
		}
		r := factory()
		if err := r.ValidateConfig(cfg.Settings); err != nil {
			zlog.Error().Msgf("rule: failed to validate config: name=%s err=%v", name, err)
			continue
		}
		c.Add(r)
	}
	return c
}

// Add adds a rule to the chain.
func (c *Chain) Add(r Rule) {
	c.rules = append(c.rules, r)
}

// Execute runs all rules in sequence.
// Returns immediately if any rule rejects the exercise.
// Rules are only applied if they declare they apply to the exercise's origin.
func (c *Chain) Execute(ctx context.Context, ex exercise.Exercise) Result {
	origin := OriginOf(ex)
	for _, r := range c.rules {
		if !r.AppliesTo(origin) {
			continue
		}

		result := r.Check(ctx, ex)
		if !result.Accepted {
			zlog.Debug().Msgf("rule: rejected: rule=%s code=%s exercise=%s", r.Name(), result.Code, ex.ID)
			return result
		}
	}
	return Accept()
}

// Rules returns all rules in the chain.
func (c *Chain) Rules() []Rule {
	return c.rules
}
