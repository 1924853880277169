package state

import (
	"sync"
	"time"
)

// Snapshot is a consistent copy of the screen state.
type Snapshot struct {
	SessionID    string
	ExerciseID   string
	Intent       Intent
	Controls     ControlsState
	EnteredAt    time.Time
	FirstStartAt *time.Time
	Background   bool
}

// Manager manages screen state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Identity
	sessionID  string
	exerciseID string

	// Lifecycle
	intent     Intent
	controls   ControlsState
	background bool

	// Timing
	enteredAt    time.Time
	firstStartAt *time.Time
}

// New creates a new state manager.
func New(sessionID, exerciseID string, enteredAt time.Time) *Manager {
	return &Manager{
		sessionID:  sessionID,
		exerciseID: exerciseID,
		intent:     IntentNotStarted,
		controls:   ControlsHidden,
		enteredAt:  enteredAt,
	}
}

// GetIntent returns the current intent.
func (m *Manager) GetIntent() Intent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intent
}

// SetIntent sets the intent.
func (m *Manager) SetIntent(i Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = i
}

// MarkStarted sets the intent to running and records the first start.
// It reports whether this was the first start of the screen.
func (m *Manager) MarkStarted(at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intent = IntentRunning
	if m.firstStartAt != nil {
		return false
	}
	m.firstStartAt = &at
	return true
}

// IsExited returns true once the screen has been left.
func (m *Manager) IsExited() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.intent == IntentExited
}

// SetControls sets the controls visibility.
func (m *Manager) SetControls(c ControlsState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls = c
}

// GetControls returns the controls visibility.
func (m *Manager) GetControls() ControlsState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controls
}

// SetBackground records whether the host app is in the background.
func (m *Manager) SetBackground(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.background = b
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetTimes returns when the screen was entered and first started.
func (m *Manager) GetTimes() (time.Time, *time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enteredAt, m.firstStartAt
}

// Snapshot returns a copy of the state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		SessionID:  m.sessionID,
		ExerciseID: m.exerciseID,
		Intent:     m.intent,
		Controls:   m.controls,
		EnteredAt:  m.enteredAt,
		Background: m.background,
	}
	if m.firstStartAt != nil {
		t := *m.firstStartAt
		s.FirstStartAt = &t
	}
	return s
}
