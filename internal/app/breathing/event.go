package breathing

import "time"

// EventType represents a cycle event type.
type EventType int

const (
	EventCycleStarted EventType = iota // A fresh cycle begins (before its inhale)
	EventPhaseChanged                  // A new phase was entered
	EventPaused                        // Cycle clock frozen
	EventResumed                       // Cycle clock unfrozen
	EventStopped                       // Cycle reset to idle
	EventTick                          // Countdown display value changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventCycleStarted:
		return "cycle_started"
	case EventPhaseChanged:
		return "phase_changed"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventStopped:
		return "stopped"
	case EventTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event represents a cycle event.
type Event struct {
	Type     EventType
	Phase    Phase
	Duration time.Duration // Full length of Phase
	TimeLeft int           // Countdown value in whole seconds
	Cycle    int           // 1-based cycle counter
	At       time.Time
}
