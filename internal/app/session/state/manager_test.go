package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_MarkStarted(t *testing.T) {
	entered := time.Now()
	m := New("s1", "2", entered)

	assert.Equal(t, IntentNotStarted, m.GetIntent())
	assert.Equal(t, ControlsHidden, m.GetControls())

	first := entered.Add(300 * time.Millisecond)
	assert.True(t, m.MarkStarted(first))
	assert.False(t, m.MarkStarted(first.Add(time.Second)), "only the first start counts")
	assert.Equal(t, IntentRunning, m.GetIntent())

	gotEntered, gotFirst := m.GetTimes()
	assert.Equal(t, entered, gotEntered)
	require.NotNil(t, gotFirst)
	assert.Equal(t, first, *gotFirst)
}

func TestManager_Snapshot(t *testing.T) {
	m := New("s1", "2", time.Now())
	m.MarkStarted(time.Now())
	m.SetIntent(IntentPaused)
	m.SetControls(ControlsVisible)
	m.SetBackground(true)

	s := m.Snapshot()
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, "2", s.ExerciseID)
	assert.Equal(t, IntentPaused, s.Intent)
	assert.Equal(t, ControlsVisible, s.Controls)
	assert.True(t, s.Background)
	require.NotNil(t, s.FirstStartAt)

	// The snapshot owns its copy
	*s.FirstStartAt = time.Time{}
	_, first := m.GetTimes()
	assert.False(t, first.IsZero())

	m.SetIntent(IntentExited)
	assert.True(t, m.IsExited())
}

func TestIntent_String(t *testing.T) {
	tests := []struct {
		intent Intent
		want   string
	}{
		{IntentNotStarted, "not_started"},
		{IntentRunning, "running"},
		{IntentPaused, "paused"},
		{IntentExited, "exited"},
		{Intent(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.intent.String())
		})
	}
	assert.Equal(t, "visible", ControlsVisible.String())
	assert.Equal(t, "hidden", ControlsHidden.String())
}
