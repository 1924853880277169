package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	breadcrumbCategory = "breathing"
	sessionContextKey  = "breathing_session"
)

var eventMessages = map[Event]string{
	EventEntered: "Breathing page entered",
	EventStarted: "Breathing started",
	EventExited:  "Breathing exited",
}

// SentryRecorder adds breadcrumbs and the breathing session context to a Sentry hub.
type SentryRecorder struct {
	hub *sentry.Hub
	now func() time.Time
}

// NewSentryRecorder creates a recorder on hub. A nil hub uses the current hub.
func NewSentryRecorder(hub *sentry.Hub) *SentryRecorder {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryRecorder{hub: hub, now: time.Now}
}

// RecordEvent implements Recorder.
func (r *SentryRecorder) RecordEvent(event Event, attrs Attributes) {
	data := attrs.Map()
	if event == EventExited {
		// Exit breadcrumbs only carry the exit details.
		data = map[string]any{
			"elapsed_seconds": attrs.ElapsedSeconds,
			"reason":          string(attrs.Reason),
		}
	}

	r.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  breadcrumbCategory,
		Message:   eventMessages[event],
		Level:     sentry.LevelInfo,
		Data:      data,
		Timestamp: r.now(),
	}, nil)

	switch event {
	case EventEntered, EventStarted:
		ctx := sentry.Context{}
		for k, v := range attrs.Map() {
			ctx[k] = v
		}
		ctx["session_start"] = r.now().UTC().Format(time.RFC3339)
		if event == EventStarted {
			ctx["started"] = true
		}
		r.hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetContext(sessionContextKey, ctx)
		})
	case EventExited:
		r.hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.RemoveContext(sessionContextKey)
		})
	}
}
