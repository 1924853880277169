// Package haptics provides haptic pulse backends.
package haptics

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	cue "github.com/osa030/breathbox/internal/app/haptics"
	"github.com/osa030/breathbox/internal/app/notification"
	"github.com/osa030/breathbox/internal/infra/config"
)

// Publisher broadcasts a notification.
type Publisher interface {
	Publish(typ string, fields map[string]any)
}

// LogPulser writes every pulse to the debug log.
// It is the backend for hosts without a vibration motor.
type LogPulser struct {
	count atomic.Uint64
}

// NewLogPulser creates a LogPulser.
func NewLogPulser() *LogPulser {
	return &LogPulser{}
}

// TriggerPulse logs the pulse.
func (p *LogPulser) TriggerPulse(ctx context.Context, intensity cue.Intensity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := p.count.Add(1)
	zlog.Debug().Msgf("haptics: pulse: intensity=%s count=%d", intensity, n)
	return nil
}

// Count returns the number of pulses triggered.
func (p *LogPulser) Count() uint64 {
	return p.count.Load()
}

// BroadcastConfig configures the broadcast backend.
type BroadcastConfig struct {
	// Every Nth pulse is published; 1 publishes all of them.
	SampleEvery int `yaml:"sample_every" mapstructure:"sample_every" default:"1" validate:"gte=1,lte=100"`
}

// BroadcastPulser publishes pulses to remote subscribers, which render them on a device.
type BroadcastPulser struct {
	publisher Publisher
	config    BroadcastConfig
	count     atomic.Uint64
}

// NewBroadcastPulser creates a BroadcastPulser from backend settings.
func NewBroadcastPulser(publisher Publisher, settings map[string]any) (*BroadcastPulser, error) {
	var cfg BroadcastConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &BroadcastPulser{publisher: publisher, config: cfg}, nil
}

// TriggerPulse publishes the pulse.
func (p *BroadcastPulser) TriggerPulse(ctx context.Context, intensity cue.Intensity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := p.count.Add(1)
	if (n-1)%uint64(p.config.SampleEvery) != 0 {
		return nil
	}
	p.publisher.Publish(notification.TypeHapticPulse, map[string]any{
		"intensity": intensity.String(),
		"count":     float64(n),
	})
	return nil
}

// NewPulserFromConfig creates the configured pulse backend.
func NewPulserFromConfig(cfg *config.Config, publisher Publisher) (cue.Pulser, error) {
	zlog.Debug().Msgf("haptics: creating backend: type=%s settings=%+v", cfg.Haptics.Backend.Type, cfg.Haptics.Backend.Settings)
	switch cfg.Haptics.Backend.Type {
	case "log", "":
		return NewLogPulser(), nil
	case "broadcast":
		if publisher == nil {
			return nil, errors.New("broadcast haptics backend requires a publisher")
		}
		p, err := NewBroadcastPulser(publisher, cfg.Haptics.Backend.Settings)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create broadcast haptics backend")
		}
		return p, nil
	default:
		return nil, errors.Newf("unsupported haptics backend: %s", cfg.Haptics.Backend.Type)
	}
}
