package rule

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

// PhaseRangeConfig represents the configuration for PhaseRangeRule.
// Holds may always be zero.
type PhaseRangeConfig struct {
	MinBreathSeconds float64 `yaml:"min_breath_seconds" mapstructure:"min_breath_seconds" default:"1" validate:"gt=0"`
	MaxBreathSeconds float64 `yaml:"max_breath_seconds" mapstructure:"max_breath_seconds" default:"15" validate:"gtefield=MinBreathSeconds"`
	MaxHoldSeconds   float64 `yaml:"max_hold_seconds" mapstructure:"max_hold_seconds" default:"15" validate:"gte=0"`
}

// PhaseRangeRule checks that every phase of a custom exercise is within range.
type PhaseRangeRule struct {
	config *PhaseRangeConfig
}

// NewPhaseRangeRule creates a new phase range rule.
func NewPhaseRangeRule() *PhaseRangeRule {
	return &PhaseRangeRule{}
}

func (r *PhaseRangeRule) Name() string {
	return "phase_range_rule"
}

func (r *PhaseRangeRule) Description() string {
	return "Checks that inhale, exhale and hold lengths are within allowed limits"
}

func (r *PhaseRangeRule) ReturnCodes() []string {
	return []string{"phase_out_of_range"}
}

func (r *PhaseRangeRule) ValidateConfig(settings map[string]any) error {
	var config PhaseRangeConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	r.config = &config
	zlog.Info().Msgf("phase range rule config: %+v", config)
	return nil
}

func (r *PhaseRangeRule) AppliesTo(origin Origin) bool {
	// Built-in exercises are trusted
	return origin == OriginCustom
}

func (r *PhaseRangeRule) Check(ctx context.Context, ex exercise.Exercise) Result {
	// If config is not set, accept all exercises
	if r.config == nil {
		return Accept()
	}

	for _, v := range []float64{ex.Inhale, ex.Exhale} {
		if v < r.config.MinBreathSeconds || v > r.config.MaxBreathSeconds {
			return Reject("phase_out_of_range")
		}
	}
	for _, v := range []float64{ex.Hold1, ex.Hold2} {
		if v < 0 || v > r.config.MaxHoldSeconds {
			return Reject("phase_out_of_range")
		}
	}
	return Accept()
}

func init() {
	Register("phase_range_rule", func() Rule {
		return &PhaseRangeRule{}
	})
}
