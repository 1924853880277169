package telemetry

import (
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// LogRecorder writes events to the structured log.
type LogRecorder struct {
	level zerolog.Level
}

// NewLogRecorder creates a recorder logging at the given level.
func NewLogRecorder(level zerolog.Level) *LogRecorder {
	return &LogRecorder{level: level}
}

// RecordEvent implements Recorder.
func (r *LogRecorder) RecordEvent(event Event, attrs Attributes) {
	zlog.WithLevel(r.level).
		Str("event", string(event)).
		Fields(attrs.Map()).
		Msg("telemetry: event recorded")
}
