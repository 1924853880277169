package breathing

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often a PhaseTimer re-checks its elapsed time.
const DefaultPollInterval = 10 * time.Millisecond

// PhaseTimer is a pausable sleep.
// A wait completes once its target has elapsed while the timer was not paused;
// time spent paused is not counted.
type PhaseTimer struct {
	mu           sync.Mutex
	pollInterval time.Duration
	now          func() time.Time

	paused       bool
	target       time.Duration
	accumulated  time.Duration // Elapsed before the current unpaused segment
	segmentStart time.Time     // Start of the current unpaused segment
}

// NewPhaseTimer creates a timer polling at the given interval.
func NewPhaseTimer(pollInterval time.Duration) *PhaseTimer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &PhaseTimer{
		pollInterval: pollInterval,
		now:          time.Now,
		segmentStart: time.Now(),
	}
}

// Wait arms the timer for d and blocks until it elapses or ctx is done.
// Non-positive durations complete on the next poll.
func (t *PhaseTimer) Wait(ctx context.Context, d time.Duration) error {
	t.Arm(d)
	return t.Await(ctx)
}

// Arm resets the elapsed accounting and sets a new target.
// The paused flag is kept, so arming while paused starts frozen.
func (t *PhaseTimer) Arm(d time.Duration) {
	if d < 0 {
		d = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.target = d
	t.accumulated = 0
	t.segmentStart = t.now()
}

// Await blocks until the armed target has elapsed unpaused, or ctx is done.
func (t *PhaseTimer) Await(ctx context.Context) error {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.completeIfElapsed() {
				return nil
			}
		}
	}
}

// AwaitResume blocks while the timer is paused.
func (t *PhaseTimer) AwaitResume(ctx context.Context) error {
	if !t.Paused() {
		return nil
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !t.Paused() {
				return nil
			}
		}
	}
}

// Pause freezes elapsed accounting. Pausing a paused timer does nothing.
func (t *PhaseTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.paused {
		return
	}
	t.accumulated = t.elapsedLocked()
	t.paused = true
}

// Resume restarts elapsed accounting from where it was frozen.
func (t *PhaseTimer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.paused {
		return
	}
	t.segmentStart = t.now()
	t.paused = false
}

// Paused reports whether the timer is frozen.
func (t *PhaseTimer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Remaining returns the time left until the current target. Never negative.
func (t *PhaseTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.target - t.elapsedLocked()
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *PhaseTimer) completeIfElapsed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.paused {
		return false
	}
	if t.elapsedLocked() < t.target {
		return false
	}

	// Pin elapsed at the target so Remaining reads zero until the next Arm.
	t.accumulated = t.target
	t.segmentStart = t.now()
	return true
}

func (t *PhaseTimer) elapsedLocked() time.Duration {
	elapsed := t.accumulated
	if !t.paused {
		elapsed += t.now().Sub(t.segmentStart)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
