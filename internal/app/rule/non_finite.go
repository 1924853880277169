package rule

import (
	"context"
	"math"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

const nonFiniteRuleName = "non_finite_rule"

// NonFiniteRule rejects NaN, infinite and negative phase lengths.
type NonFiniteRule struct{}

func (r *NonFiniteRule) Name() string {
	return nonFiniteRuleName
}

func (r *NonFiniteRule) Description() string {
	return "Rejects phase durations that are not finite non-negative numbers"
}

func (r *NonFiniteRule) ReturnCodes() []string {
	return []string{"invalid_duration"}
}

func (r *NonFiniteRule) ValidateConfig(settings map[string]any) error {
	return nil
}

func (r *NonFiniteRule) AppliesTo(origin Origin) bool {
	return true
}

func (r *NonFiniteRule) Check(ctx context.Context, ex exercise.Exercise) Result {
	for _, v := range []float64{ex.Inhale, ex.Hold1, ex.Exhale, ex.Hold2} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Reject("invalid_duration")
		}
	}
	return Accept()
}

func init() {
	Register(nonFiniteRuleName, func() Rule {
		return &NonFiniteRule{}
	})
}
