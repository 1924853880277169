// Package exercise provides the Exercise domain entity.
package exercise

import (
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when no exercise has the requested ID.
var ErrNotFound = errors.New("exercise not found")

// Exercise represents a breathing technique.
// Phase lengths are expressed in seconds.
type Exercise struct {
	ID               string  `json:"id" yaml:"id"`
	Title            string  `json:"title" yaml:"title"`
	Inhale           float64 `json:"inhale" yaml:"inhale"`
	Hold1            float64 `json:"hold1" yaml:"hold1"`
	Exhale           float64 `json:"exhale" yaml:"exhale"`
	Hold2            float64 `json:"hold2" yaml:"hold2"`
	ShortDescription string  `json:"short_description,omitempty" yaml:"short_description,omitempty"`
	Description      string  `json:"description,omitempty" yaml:"description,omitempty"`
	Benefit          string  `json:"benefit,omitempty" yaml:"benefit,omitempty"`
	Method           string  `json:"method,omitempty" yaml:"method,omitempty"`
	Symbol           string  `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Custom           bool    `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Durations holds the four normalised phase lengths of an exercise.
type Durations struct {
	Inhale time.Duration
	Hold1  time.Duration
	Exhale time.Duration
	Hold2  time.Duration
}

// Durations converts the exercise's second values into durations.
// Negative, NaN or infinite values are treated as zero.
func (e Exercise) Durations() Durations {
	return Durations{
		Inhale: Seconds(e.Inhale),
		Hold1:  Seconds(e.Hold1),
		Exhale: Seconds(e.Exhale),
		Hold2:  Seconds(e.Hold2),
	}
}

// Total returns the length of one full cycle.
func (d Durations) Total() time.Duration {
	return d.Inhale + d.Hold1 + d.Exhale + d.Hold2
}

// MaxPhase caps a single phase so conversions and cycle totals cannot overflow.
const MaxPhase = 24 * time.Hour

// Seconds converts a second value into a duration, normalising invalid input to zero.
// Values past MaxPhase are clamped to it.
func Seconds(v float64) time.Duration {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v >= MaxPhase.Seconds() {
		return MaxPhase
	}
	return time.Duration(v * float64(time.Second))
}

// Pattern returns the short "4-4-4-4" notation for the exercise.
func (e Exercise) Pattern() string {
	return formatSeconds(e.Inhale) + "-" + formatSeconds(e.Hold1) + "-" +
		formatSeconds(e.Exhale) + "-" + formatSeconds(e.Hold2)
}

func formatSeconds(v float64) string {
	d := Seconds(v)
	if d%time.Second == 0 {
		return strconv.Itoa(int(d / time.Second))
	}
	return d.String()
}
