package rule

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

func TestBuildChain(t *testing.T) {
	tests := []struct {
		name    string
		configs map[string]Config
		want    []string
	}{
		{
			name:    "Nothing enabled",
			configs: nil,
			want:    []string{"non_finite_rule"},
		},
		{
			name: "Enabled rules in name order",
			configs: map[string]Config{
				"title_rule":       {Enabled: true},
				"phase_range_rule": {Enabled: true},
			},
			want: []string{"non_finite_rule", "phase_range_rule", "title_rule"},
		},
		{
			name: "Disabled and unknown rules are skipped",
			configs: map[string]Config{
				"phase_range_rule": {Enabled: false},
				"mystery_rule":     {Enabled: true},
			},
			want: []string{"non_finite_rule"},
		},
		{
			name: "Invalid settings skip the rule",
			configs: map[string]Config{
				"phase_range_rule": {Enabled: true, Settings: map[string]any{"max_hold_seconds": -3}},
			},
			want: []string{"non_finite_rule"},
		},
		{
			name: "Mandatory rule is not duplicated",
			configs: map[string]Config{
				"non_finite_rule": {Enabled: true},
			},
			want: []string{"non_finite_rule"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BuildChain(tt.configs)
			names := make([]string, 0, len(c.Rules()))
			for _, r := range c.Rules() {
				names = append(names, r.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestChain_Execute(t *testing.T) {
	c := BuildChain(map[string]Config{
		"phase_range_rule": {Enabled: true},
		"title_rule":       {Enabled: true},
	})
	require.Len(t, c.Rules(), 3)

	tests := []struct {
		name         string
		ex           exercise.Exercise
		wantAccepted bool
		wantCode     string
	}{
		{
			name:         "valid custom",
			ex:           custom(4, 7, 8, 0),
			wantAccepted: true,
		},
		{
			name:     "non-finite rejected first",
			ex:       custom(math.NaN(), 0, 40, 0),
			wantCode: "invalid_duration",
		},
		{
			name:     "out of range",
			ex:       custom(4, 0, 40, 0),
			wantCode: "phase_out_of_range",
		},
		{
			name: "builtin skips custom rules",
			ex: exercise.Exercise{
				ID: "x", Inhale: 30, Exhale: 30,
			},
			wantAccepted: true,
		},
		{
			name: "untitled custom",
			ex: func() exercise.Exercise {
				ex := custom(4, 4, 4, 4)
				ex.Title = ""
				return ex
			}(),
			wantCode: "title_invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Execute(context.Background(), tt.ex)
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			assert.Equal(t, tt.wantCode, result.Code)
		})
	}
}

func TestOriginOf(t *testing.T) {
	assert.Equal(t, OriginCustom, OriginOf(exercise.Exercise{Custom: true}))
	assert.Equal(t, OriginBuiltin, OriginOf(exercise.Exercise{}))
	assert.Equal(t, "custom", OriginCustom.String())
}
