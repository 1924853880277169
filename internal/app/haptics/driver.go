// Package haptics drives one-shot and continuous haptic pulses.
package haptics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// DefaultPulseInterval is the continuous vibration period.
const DefaultPulseInterval = 100 * time.Millisecond

var ErrUnknownIntensity = errors.New("unknown haptic intensity")

// Intensity is the strength of a single pulse.
type Intensity int

const (
	IntensityLight Intensity = iota
	IntensityMedium
	IntensityHeavy
	IntensitySoft
	IntensityRigid
)

// String returns the string representation of the intensity.
func (i Intensity) String() string {
	switch i {
	case IntensityLight:
		return "light"
	case IntensityMedium:
		return "medium"
	case IntensityHeavy:
		return "heavy"
	case IntensitySoft:
		return "soft"
	case IntensityRigid:
		return "rigid"
	default:
		return "unknown"
	}
}

// ParseIntensity parses a configured intensity name.
func ParseIntensity(name string) (Intensity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return IntensityLight, nil
	case "medium":
		return IntensityMedium, nil
	case "heavy":
		return IntensityHeavy, nil
	case "soft":
		return IntensitySoft, nil
	case "rigid":
		return IntensityRigid, nil
	default:
		return 0, errors.Wrapf(ErrUnknownIntensity, "intensity=%q", name)
	}
}

// Pulser fires a single haptic pulse.
type Pulser interface {
	TriggerPulse(ctx context.Context, intensity Intensity) error
}

// Config holds driver configuration.
type Config struct {
	PulseInterval       time.Duration // Continuous vibration period
	ContinuousIntensity Intensity     // Intensity of continuous pulses
	PulseTimeout        time.Duration // Upper bound for a single pulse call
}

// Driver fires haptic cues. Pulse failures are logged and never returned.
type Driver struct {
	mu      sync.Mutex
	pulser  Pulser
	config  Config
	enabled func() bool

	// Continuous loop
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDriver creates a haptics driver. enabled is read on every trigger.
func NewDriver(pulser Pulser, config Config, enabled func() bool) *Driver {
	if config.PulseInterval <= 0 {
		config.PulseInterval = DefaultPulseInterval
	}
	if config.PulseTimeout <= 0 {
		config.PulseTimeout = time.Second
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Driver{
		pulser:  pulser,
		config:  config,
		enabled: enabled,
	}
}

// TriggerHaptic fires a single pulse without waiting for it.
func (d *Driver) TriggerHaptic(intensity Intensity) {
	if !d.enabled() {
		return
	}
	go d.pulse(context.Background(), intensity)
}

// StartContinuousVibration pulses on a fixed interval until stopped.
// isActive is checked on every tick; the loop ends on its own once it reports false.
func (d *Driver) StartContinuousVibration(isActive func() bool) {
	if !d.enabled() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	zlog.Debug().Msgf("haptics: continuous vibration started: interval=%v", d.config.PulseInterval)
	go d.loop(ctx, done, isActive)
}

// StopVibration stops the continuous loop and waits for it to exit.
func (d *Driver) StopVibration() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// ForceStop immediately halts any continuous pulses.
func (d *Driver) ForceStop() {
	d.StopVibration()
}

// Vibrating reports whether the continuous loop is running.
func (d *Driver) Vibrating() bool {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (d *Driver) stopLocked() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
	zlog.Debug().Msg("haptics: continuous vibration stopped")
}

func (d *Driver) loop(ctx context.Context, done chan struct{}, isActive func() bool) {
	defer close(done)

	ticker := time.NewTicker(d.config.PulseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if isActive != nil && !isActive() {
				zlog.Debug().Msg("haptics: continuous vibration ended: session inactive")
				return
			}
			if !d.enabled() {
				return
			}
			d.pulse(ctx, d.config.ContinuousIntensity)
		}
	}
}

func (d *Driver) pulse(ctx context.Context, intensity Intensity) {
	ctx, cancel := context.WithTimeout(ctx, d.config.PulseTimeout)
	defer cancel()

	if err := d.pulser.TriggerPulse(ctx, intensity); err != nil {
		if ctx.Err() != nil {
			return
		}
		zlog.Warn().Msgf("haptics: pulse failed: intensity=%s err=%v", intensity, err)
	}
}
