// Package telemetry records breathing session lifecycle events.
package telemetry

import (
	"runtime"

	zlog "github.com/rs/zerolog/log"
)

// Event is a lifecycle event name.
type Event string

const (
	EventEntered Event = "breathing_entered" // Breathing screen opened
	EventStarted Event = "breathing_started" // First start of the cycle
	EventExited  Event = "breathing_exited"  // Screen left
)

// ExitReason explains how the screen was left.
type ExitReason string

const (
	ReasonUserExit   ExitReason = "user_exit"
	ReasonUnmount    ExitReason = "unmount"
	ReasonBackground ExitReason = "background"
)

// Attributes accompany every event.
type Attributes struct {
	SoundOn    bool
	HapticsOn  bool
	DeviceOS   string
	AppVersion string

	// Exit only
	ElapsedSeconds   float64
	Reason           ExitReason
	BreathingReadyMs *int64 // Time from entering to the first start, when started
}

// Common builds the attributes shared by all events.
func Common(soundOn, hapticsOn bool, appVersion string) Attributes {
	return Attributes{
		SoundOn:    soundOn,
		HapticsOn:  hapticsOn,
		DeviceOS:   runtime.GOOS,
		AppVersion: appVersion,
	}
}

// Map returns the attributes as flat key/value data.
func (a Attributes) Map() map[string]any {
	m := map[string]any{
		"sound_on":   a.SoundOn,
		"haptics_on": a.HapticsOn,
		"device_os":  a.DeviceOS,
	}
	if a.AppVersion != "" {
		m["app_version"] = a.AppVersion
	} else {
		m["app_version"] = nil
	}
	if a.Reason != "" {
		m["elapsed_seconds"] = a.ElapsedSeconds
		m["reason"] = string(a.Reason)
	}
	if a.BreathingReadyMs != nil {
		m["breathing_ready_ms"] = *a.BreathingReadyMs
	}
	return m
}

// Recorder records events. Implementations must not block or panic.
type Recorder interface {
	RecordEvent(event Event, attrs Attributes)
}

// Nop discards events.
type Nop struct{}

// RecordEvent implements Recorder.
func (Nop) RecordEvent(Event, Attributes) {}

// Multi fans an event out to several recorders.
type Multi []Recorder

// RecordEvent implements Recorder.
func (m Multi) RecordEvent(event Event, attrs Attributes) {
	for _, r := range m {
		safeRecord(r, event, attrs)
	}
}

// safeRecord shields the caller from a misbehaving recorder.
func safeRecord(r Recorder, event Event, attrs Attributes) {
	defer func() {
		if rec := recover(); rec != nil {
			zlog.Warn().Msgf("telemetry: recorder panicked: event=%s panic=%v", event, rec)
		}
	}()
	r.RecordEvent(event, attrs)
}

// Safe wraps r so that panics never reach the caller.
func Safe(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return Multi{r}
}
