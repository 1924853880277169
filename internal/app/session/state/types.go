// Package state provides breathing screen state management.
package state

// Intent represents what the user asked the screen to do.
type Intent int

const (
	IntentNotStarted Intent = iota // Screen open, cycle never started
	IntentRunning                  // Breathing
	IntentPaused                   // Frozen mid-phase
	IntentExited                   // Left the screen
)

// String returns the string representation of the intent.
func (i Intent) String() string {
	switch i {
	case IntentNotStarted:
		return "not_started"
	case IntentRunning:
		return "running"
	case IntentPaused:
		return "paused"
	case IntentExited:
		return "exited"
	default:
		return "unknown"
	}
}

// ControlsState represents the visibility of the transient controls.
type ControlsState int

const (
	ControlsHidden  ControlsState = iota // Controls not shown
	ControlsVisible                      // Controls shown until auto-hide
)

// String returns the string representation of the controls state.
func (c ControlsState) String() string {
	switch c {
	case ControlsHidden:
		return "hidden"
	case ControlsVisible:
		return "visible"
	default:
		return "unknown"
	}
}
