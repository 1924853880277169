package breathing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTimer_Wait(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		min      time.Duration
		max      time.Duration
	}{
		{
			name:     "Positive duration",
			duration: 100 * time.Millisecond,
			min:      100 * time.Millisecond,
			max:      500 * time.Millisecond,
		},
		{
			name:     "Zero duration",
			duration: 0,
			min:      0,
			max:      200 * time.Millisecond,
		},
		{
			name:     "Negative duration is treated as zero",
			duration: -time.Second,
			min:      0,
			max:      200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := NewPhaseTimer(5 * time.Millisecond)

			start := time.Now()
			err := timer.Wait(context.Background(), tt.duration)
			elapsed := time.Since(start)

			require.NoError(t, err)
			assert.GreaterOrEqual(t, elapsed, tt.min)
			assert.Less(t, elapsed, tt.max)
			assert.Equal(t, time.Duration(0), timer.Remaining())
		})
	}
}

func TestPhaseTimer_PauseFreezesElapsed(t *testing.T) {
	timer := NewPhaseTimer(5 * time.Millisecond)
	timer.Arm(time.Second)

	time.Sleep(100 * time.Millisecond)
	timer.Pause()
	frozen := timer.Remaining()

	time.Sleep(200 * time.Millisecond)
	assert.True(t, timer.Paused())
	assert.Equal(t, frozen, timer.Remaining(), "remaining must not change while paused")

	timer.Resume()
	assert.False(t, timer.Paused())
	time.Sleep(50 * time.Millisecond)
	assert.Less(t, timer.Remaining(), frozen)
}

func TestPhaseTimer_AwaitExcludesPausedTime(t *testing.T) {
	timer := NewPhaseTimer(5 * time.Millisecond)
	timer.Arm(200 * time.Millisecond)

	done := make(chan time.Time, 1)
	start := time.Now()
	go func() {
		_ = timer.Await(context.Background())
		done <- time.Now()
	}()

	time.Sleep(100 * time.Millisecond)
	timer.Pause()
	time.Sleep(300 * time.Millisecond)

	select {
	case <-done:
		t.Fatal("wait completed while paused")
	default:
	}

	timer.Resume()

	select {
	case finished := <-done:
		// 200ms of unpaused time plus 300ms paused
		assert.GreaterOrEqual(t, finished.Sub(start), 500*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not complete after resume")
	}
}

func TestPhaseTimer_ContextCancel(t *testing.T) {
	timer := NewPhaseTimer(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := timer.Wait(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPhaseTimer_ArmKeepsPausedFlag(t *testing.T) {
	timer := NewPhaseTimer(5 * time.Millisecond)
	timer.Pause()
	timer.Arm(time.Second)

	time.Sleep(50 * time.Millisecond)
	assert.True(t, timer.Paused())
	assert.Equal(t, time.Second, timer.Remaining())
}

func TestPhaseTimer_AwaitResume(t *testing.T) {
	timer := NewPhaseTimer(5 * time.Millisecond)
	require.NoError(t, timer.AwaitResume(context.Background()), "unpaused timer returns immediately")

	timer.Pause()
	go func() {
		time.Sleep(50 * time.Millisecond)
		timer.Resume()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, timer.AwaitResume(ctx))
}
