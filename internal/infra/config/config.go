// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Log       LogConfig             `yaml:"log"`
	Storage   StorageConfig         `yaml:"storage"`
	Cycle     CycleConfig           `yaml:"cycle"`
	Animation AnimationConfig       `yaml:"animation"`
	Audio     AudioConfig           `yaml:"audio"`
	Haptics   HapticsConfig         `yaml:"haptics"`
	Session   SessionConfig         `yaml:"session"`
	Rules     map[string]RuleConfig `yaml:"rules"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`
	Messages  MessagesConfig        `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr         string `yaml:"addr" default:":8090"`
	ControlToken string `yaml:"control_token"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout" validate:"oneof=stdout stderr discard file"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// StorageConfig represents persistence configuration.
type StorageConfig struct {
	DBPath string `yaml:"db_path" default:"data/breathbox.db" validate:"required"`
}

// CycleConfig represents breathing cycle timing configuration.
type CycleConfig struct {
	PollIntervalMs    int `yaml:"poll_interval_ms" default:"10" validate:"gte=1,lte=100"`
	DisplayIntervalMs int `yaml:"display_interval_ms" default:"100" validate:"gte=10,lte=1000"`
}

// AnimationConfig represents the breathing shape configuration.
type AnimationConfig struct {
	ContractedRadius float64 `yaml:"contracted_radius" default:"66" validate:"gt=0"`
	ExpandedRadius   float64 `yaml:"expanded_radius" default:"179" validate:"gtfield=ContractedRadius"`
	ThinStroke       float64 `yaml:"thin_stroke" default:"3" validate:"gt=0"`
	ThickStroke      float64 `yaml:"thick_stroke" default:"6" validate:"gtefield=ThinStroke"`
	Easing           string  `yaml:"easing" default:"linear" validate:"oneof=linear ease_in_out"`
}

// AudioBackendConfig selects the clip backend and carries its settings.
type AudioBackendConfig struct {
	Type     string         `yaml:"type" default:"silent" validate:"oneof=silent exec"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// HapticsBackendConfig selects the pulse backend and carries its settings.
type HapticsBackendConfig struct {
	Type     string         `yaml:"type" default:"log" validate:"oneof=log broadcast"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// ClipPairConfig represents the inhale and exhale clip files of a sound pack.
type ClipPairConfig struct {
	Inhale string `yaml:"inhale" validate:"required"`
	Exhale string `yaml:"exhale" validate:"required"`
}

// AudioConfig represents cue audio configuration.
type AudioConfig struct {
	Backend AudioBackendConfig        `yaml:"backend"`
	Volume  float64                   `yaml:"volume" default:"0.3" validate:"gte=0,lte=1"`
	Packs   map[string]ClipPairConfig `yaml:"packs" validate:"dive"`
}

// HapticsConfig represents haptic cue configuration.
type HapticsConfig struct {
	Backend             HapticsBackendConfig `yaml:"backend"`
	PulseIntervalMs     int                  `yaml:"pulse_interval_ms" default:"100" validate:"gte=10,lte=1000"`
	CycleStartIntensity string               `yaml:"cycle_start_intensity" default:"medium" validate:"oneof=light medium heavy soft rigid"`
	ContinuousIntensity string               `yaml:"continuous_intensity" default:"soft" validate:"oneof=light medium heavy soft rigid"`
}

// SessionConfig represents breathing screen configuration.
type SessionConfig struct {
	AutoStartDelayMs   int    `yaml:"auto_start_delay_ms" default:"300" validate:"gte=0,lte=10000"`
	ControlsAutoHideMs int    `yaml:"controls_auto_hide_ms" default:"3000" validate:"gte=0,lte=60000"`
	ExitGraceMs        int    `yaml:"exit_grace_ms" default:"150" validate:"gte=0,lte=5000"`
	PauseOnBackground  bool   `yaml:"pause_on_background"`
	AppVersion         string `yaml:"app_version" default:"dev"`
	DefaultExerciseID  string `yaml:"default_exercise_id"`
}

// RuleConfig represents an exercise rule's configuration.
type RuleConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// TelemetryConfig represents telemetry configuration.
type TelemetryConfig struct {
	SentryDSN   string `yaml:"sentry_dsn"`
	Environment string `yaml:"environment" default:"development"`
	LogEvents   *bool  `yaml:"log_events" default:"true"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Success          string `yaml:"success" default:"Saved"`
	DefaultError     string `yaml:"default_error" default:"Something went wrong"`
	InvalidDuration  string `yaml:"invalid_duration" default:"Durations must be finite, non-negative numbers"`
	PhaseOutOfRange  string `yaml:"phase_out_of_range" default:"Inhale and exhale must be 1-15 seconds, holds 0-15 seconds"`
	TitleInvalid     string `yaml:"title_invalid" default:"Please enter a title"`
	ExerciseNotFound string `yaml:"exercise_not_found" default:"Exercise not found"`
	NoSession        string `yaml:"no_session" default:"No breathing session is open"`
}

// Load loads configuration from a YAML file.
// An empty path yields the defaults.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("BREATHBOX_CONTROL_TOKEN"); v != "" {
		c.Server.ControlToken = v
	}
	if v := os.Getenv("BREATHBOX_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("BREATHBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.Telemetry.SentryDSN = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Log.Output == "file" && c.Log.File == "" {
		return errors.Newf("log.file is required when log.output is %q", c.Log.Output)
	}

	return nil
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "invalid_duration":
		return c.Messages.InvalidDuration
	case "phase_out_of_range":
		return c.Messages.PhaseOutOfRange
	case "title_invalid":
		return c.Messages.TitleInvalid
	case "exercise_not_found":
		return c.Messages.ExerciseNotFound
	case "no_session":
		return c.Messages.NoSession
	default:
		return c.Messages.DefaultError
	}
}

// IsRuleEnabled checks if a rule is enabled.
func (c *Config) IsRuleEnabled(name string) bool {
	if r, ok := c.Rules[name]; ok {
		return r.Enabled
	}
	return false
}

// LogEventsEnabled reports whether telemetry events are written to the log.
func (c *Config) LogEventsEnabled() bool {
	return c.Telemetry.LogEvents == nil || *c.Telemetry.LogEvents
}

// PollInterval returns the phase timer poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Cycle.PollIntervalMs) * time.Millisecond
}

// DisplayInterval returns the countdown display interval.
func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.Cycle.DisplayIntervalMs) * time.Millisecond
}

// PulseInterval returns the continuous vibration interval.
func (c *Config) PulseInterval() time.Duration {
	return time.Duration(c.Haptics.PulseIntervalMs) * time.Millisecond
}

// AutoStartDelay returns the settle delay before auto-start.
func (c *Config) AutoStartDelay() time.Duration {
	return time.Duration(c.Session.AutoStartDelayMs) * time.Millisecond
}

// ControlsAutoHide returns how long revealed controls stay visible.
func (c *Config) ControlsAutoHide() time.Duration {
	return time.Duration(c.Session.ControlsAutoHideMs) * time.Millisecond
}

// ExitGrace returns the delay between force-stop and navigation on exit.
func (c *Config) ExitGrace() time.Duration {
	return time.Duration(c.Session.ExitGraceMs) * time.Millisecond
}
