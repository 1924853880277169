// Package breathing provides the breathing cycle state machine and its pausable phase timer.
package breathing

// Phase represents a step of the breathing cycle.
type Phase int

const (
	PhaseIdle   Phase = iota // Not running (before first start and after stop)
	PhaseInhale              // Breathing in
	PhaseHold1               // Holding after inhale
	PhaseExhale              // Breathing out
	PhaseHold2               // Holding after exhale
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInhale:
		return "inhale"
	case PhaseHold1:
		return "hold1"
	case PhaseExhale:
		return "exhale"
	case PhaseHold2:
		return "hold2"
	default:
		return "unknown"
	}
}

// Label returns the text shown to the user for the phase.
func (p Phase) Label() string {
	switch p {
	case PhaseInhale:
		return "Inhale"
	case PhaseHold1, PhaseHold2:
		return "Hold"
	case PhaseExhale:
		return "Exhale"
	default:
		return ""
	}
}

// Next returns the phase that follows p. Idle and hold2 both lead to inhale.
func (p Phase) Next() Phase {
	switch p {
	case PhaseInhale:
		return PhaseHold1
	case PhaseHold1:
		return PhaseExhale
	case PhaseExhale:
		return PhaseHold2
	default:
		return PhaseInhale
	}
}

// IsBreath reports whether the phase moves air (inhale or exhale).
func (p Phase) IsBreath() bool {
	return p == PhaseInhale || p == PhaseExhale
}
