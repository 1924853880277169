// Package animation eases the breathing shape between its contracted and expanded poses.
package animation

import (
	"math"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/app/breathing"
)

// Easing selects the interpolation curve.
type Easing int

const (
	EasingLinear    Easing = iota // Constant rate
	EasingEaseInOut               // Quadratic ease in and out
)

// String returns the string representation of the easing.
func (e Easing) String() string {
	switch e {
	case EasingLinear:
		return "linear"
	case EasingEaseInOut:
		return "ease_in_out"
	default:
		return "unknown"
	}
}

// ParseEasing parses a configured easing name. Unknown names fall back to linear.
func ParseEasing(name string) Easing {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ease_in_out", "ease-in-out", "easeinout":
		return EasingEaseInOut
	default:
		return EasingLinear
	}
}

// apply maps linear progress p in [0,1] onto the curve.
func (e Easing) apply(p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	if e == EasingEaseInOut {
		if p < 0.5 {
			return 2 * p * p
		}
		return 1 - math.Pow(-2*p+2, 2)/2
	}
	return p
}

// Params are the animated shape values.
type Params struct {
	Radius      float64
	StrokeWidth float64
}

// Config holds the pose constants.
type Config struct {
	ContractedRadius float64
	ExpandedRadius   float64
	ThinStroke       float64
	ThickStroke      float64
	Easing           Easing
}

// DefaultConfig returns the standard pose constants.
func DefaultConfig() Config {
	return Config{
		ContractedRadius: 66,
		ExpandedRadius:   179,
		ThinStroke:       3,
		ThickStroke:      6,
		Easing:           EasingLinear,
	}
}

// Contracted returns the baseline pose.
func (c Config) Contracted() Params {
	return Params{Radius: c.ContractedRadius, StrokeWidth: c.ThinStroke}
}

// Expanded returns the peak inhale pose.
func (c Config) Expanded() Params {
	return Params{Radius: c.ExpandedRadius, StrokeWidth: c.ThickStroke}
}

// Driver owns the animated values. Values are computed on read from the
// active ease, so no goroutine runs while animating.
type Driver struct {
	mu      sync.Mutex
	config  Config
	now     func() time.Time
	enabled func() bool

	from     Params
	to       Params
	start    time.Time
	duration time.Duration
	easing   bool
	paused   bool
}

// NewDriver creates a driver at the contracted pose.
// enabled is read on every ease call; when it reports false values snap to target.
func NewDriver(config Config, enabled func() bool) *Driver {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	base := config.Contracted()
	return &Driver{
		config:  config,
		now:     time.Now,
		enabled: enabled,
		from:    base,
		to:      base,
	}
}

// Value returns the current interpolated shape.
func (d *Driver) Value() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.valueLocked(d.now())
}

// Animating reports whether an ease is in flight.
func (d *Driver) Animating() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.easing && d.now().Sub(d.start) < d.duration
}

// AnimateInhale eases toward the expanded pose over duration.
func (d *Driver) AnimateInhale(duration time.Duration) {
	d.easeTo(d.config.Expanded(), duration)
}

// AnimateExhale eases toward the contracted pose over duration.
func (d *Driver) AnimateExhale(duration time.Duration) {
	d.easeTo(d.config.Contracted(), duration)
}

// Pause cancels the in-flight ease and freezes the current values.
// Eases issued while paused are dropped until Resume or Reset.
func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.paused = true
	current := d.valueLocked(d.now())
	d.from = current
	d.to = current
	d.easing = false
	d.duration = 0
}

// Resume re-issues the ease for phase over the remaining time only.
// Hold phases leave the shape static.
func (d *Driver) Resume(phase breathing.Phase, remaining time.Duration) {
	d.mu.Lock()
	d.paused = false
	d.mu.Unlock()

	if remaining <= 0 {
		return
	}

	zlog.Debug().Msgf("animation: resume: phase=%s remaining=%v", phase, remaining)

	switch phase {
	case breathing.PhaseInhale:
		d.AnimateInhale(remaining)
	case breathing.PhaseExhale:
		d.AnimateExhale(remaining)
	}
}

// Reset cancels any ease and snaps back to the contracted pose.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	base := d.config.Contracted()
	d.from = base
	d.to = base
	d.easing = false
	d.duration = 0
	d.paused = false
}

func (d *Driver) easeTo(target Params, duration time.Duration) {
	enabled := d.enabled()

	d.mu.Lock()
	defer d.mu.Unlock()

	// A phase entry racing a pause must not move the frozen shape
	if d.paused {
		return
	}

	now := d.now()
	if !enabled || duration <= 0 {
		d.from = target
		d.to = target
		d.easing = false
		d.duration = 0
		return
	}

	// Start from wherever the shape is now, so a re-issued ease has no jump.
	d.from = d.valueLocked(now)
	d.to = target
	d.start = now
	d.duration = duration
	d.easing = true
}

func (d *Driver) valueLocked(now time.Time) Params {
	if !d.easing || d.duration <= 0 {
		return d.to
	}

	p := float64(now.Sub(d.start)) / float64(d.duration)
	k := d.config.Easing.apply(p)
	return Params{
		Radius:      lerp(d.from.Radius, d.to.Radius, k),
		StrokeWidth: lerp(d.from.StrokeWidth, d.to.StrokeWidth, k),
	}
}

func lerp(a, b, k float64) float64 {
	return a + (b-a)*k
}
