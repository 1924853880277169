package rule

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

// TitleConfig represents the configuration for TitleRule.
type TitleConfig struct {
	MaxLength int `yaml:"max_length" mapstructure:"max_length" default:"40" validate:"gte=1,lte=200"`
}

// TitleRule checks that a custom exercise has a usable title.
type TitleRule struct {
	config *TitleConfig
}

func (r *TitleRule) Name() string {
	return "title_rule"
}

func (r *TitleRule) Description() string {
	return "Checks that custom exercises have a non-empty title of limited length"
}

func (r *TitleRule) ReturnCodes() []string {
	return []string{"title_invalid"}
}

func (r *TitleRule) ValidateConfig(settings map[string]any) error {
	var config TitleConfig
	if err := mapstructure.WeakDecode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	r.config = &config
	return nil
}

func (r *TitleRule) AppliesTo(origin Origin) bool {
	return origin == OriginCustom
}

func (r *TitleRule) Check(ctx context.Context, ex exercise.Exercise) Result {
	title := strings.TrimSpace(ex.Title)
	if title == "" {
		return Reject("title_invalid")
	}
	if r.config != nil && utf8.RuneCountInString(title) > r.config.MaxLength {
		return Reject("title_invalid")
	}
	return Accept()
}

func init() {
	Register("title_rule", func() Rule {
		return &TitleRule{}
	})
}
