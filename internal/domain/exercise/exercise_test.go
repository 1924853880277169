package exercise

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeconds(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected time.Duration
	}{
		{name: "whole seconds", value: 4, expected: 4 * time.Second},
		{name: "fractional", value: 0.5, expected: 500 * time.Millisecond},
		{name: "zero", value: 0, expected: 0},
		{name: "negative", value: -3, expected: 0},
		{name: "NaN", value: math.NaN(), expected: 0},
		{name: "positive infinity", value: math.Inf(1), expected: 0},
		{name: "negative infinity", value: math.Inf(-1), expected: 0},
		{name: "at cap", value: MaxPhase.Seconds(), expected: MaxPhase},
		{name: "past int64 range", value: 1e300, expected: MaxPhase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Seconds(tt.value))
		})
	}
}

func TestExercise_Durations(t *testing.T) {
	e := Exercise{Inhale: 2, Hold1: 1, Exhale: 2, Hold2: math.NaN()}

	d := e.Durations()

	assert.Equal(t, 2*time.Second, d.Inhale)
	assert.Equal(t, time.Second, d.Hold1)
	assert.Equal(t, 2*time.Second, d.Exhale)
	assert.Equal(t, time.Duration(0), d.Hold2)
	assert.Equal(t, 5*time.Second, d.Total())
}

func TestDurations_TotalOfHugePhases(t *testing.T) {
	d := Exercise{Inhale: 1e300, Hold1: 1e300, Exhale: 1e300, Hold2: 1e300}.Durations()
	assert.Equal(t, 4*MaxPhase, d.Total())
}

func TestExercise_Pattern(t *testing.T) {
	assert.Equal(t, "4-4-4-4", Fallback.Pattern())
	assert.Equal(t, "6-0-6-0", Defaults()[0].Pattern())
	assert.Equal(t, "500ms-0-1-0", Exercise{Inhale: 0.5, Exhale: 1}.Pattern())
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	assert.Len(t, defaults, 3)

	ids := make(map[string]bool)
	for _, e := range defaults {
		assert.False(t, ids[e.ID], "duplicate id %s", e.ID)
		ids[e.ID] = true
		assert.Greater(t, e.Inhale, 0.0)
		assert.Greater(t, e.Exhale, 0.0)
		assert.GreaterOrEqual(t, e.Hold1, 0.0)
		assert.GreaterOrEqual(t, e.Hold2, 0.0)
	}

	e, ok := FindByID(defaults, DefaultID)
	assert.True(t, ok)
	assert.Equal(t, "Box Breathing", e.Title)

	_, ok = FindByID(defaults, "missing")
	assert.False(t, ok)
}
