package breathing

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

// Errors
var (
	ErrClosed = errors.New("cycle is closed")
)

// Config holds cycle configuration.
type Config struct {
	PollInterval    time.Duration // PhaseTimer poll granularity
	DisplayInterval time.Duration // How often the countdown display is re-evaluated
}

// Callbacks are invoked on the cycle goroutine.
// They must not call Stop or Close synchronously.
type Callbacks struct {
	OnPhaseChange func(phase Phase, duration time.Duration)
	OnCycleStart  func()
}

// State is a snapshot of the cycle.
type State struct {
	Running       bool          // Started and not stopped (stays true while paused)
	Paused        bool          // Clock frozen
	Phase         Phase         // Current phase
	TimeLeft      int           // Countdown display value in whole seconds
	Remaining     time.Duration // Precise time left in the current phase
	PhaseDuration time.Duration // Full length of the current phase
	Cycle         int           // 1-based cycle counter, 0 when idle
}

// Cycle sequences inhale, hold1, exhale and hold2 in a loop.
type Cycle struct {
	mu sync.RWMutex

	// emitMu serialises callback delivery against Stop so no callback
	// from a stopped run fires after Stop returns.
	emitMu sync.Mutex

	durations exercise.Durations
	config    Config

	// Run state
	running       bool
	paused        bool
	phase         Phase
	phaseDuration time.Duration
	cycles        int
	lastTimeLeft  int

	// Current run
	timer      *PhaseTimer
	generation uint64
	cancel     context.CancelFunc

	callbacks   Callbacks
	subscribers []chan Event
	closed      bool
}

// NewCycle creates a cycle for the given phase durations.
func NewCycle(durations exercise.Durations, config Config) *Cycle {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.DisplayInterval <= 0 {
		config.DisplayInterval = 100 * time.Millisecond
	}
	return &Cycle{
		durations: sanitize(durations),
		config:    config,
		phase:     PhaseIdle,
	}
}

// SetCallbacks replaces the callback slot. The running loop reads the slot
// at call time, so the latest callbacks are always used.
func (c *Cycle) SetCallbacks(cb Callbacks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = cb
}

// Subscribe registers a new observer channel.
// Events are dropped for observers whose buffer is full.
func (c *Cycle) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Durations returns the phase durations the cycle runs with.
func (c *Cycle) Durations() exercise.Durations {
	return c.durations
}

// Start starts the cycle. If paused, it resumes instead.
// Starting a running cycle does nothing.
func (c *Cycle) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if c.paused {
		c.resumeLocked()
		c.mu.Unlock()
		return nil
	}

	if c.running {
		c.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.generation++
	gen := c.generation
	timer := NewPhaseTimer(c.config.PollInterval)
	c.timer = timer
	c.cancel = cancel
	c.running = true
	c.paused = false
	c.cycles = 0
	c.mu.Unlock()

	zlog.Debug().Msgf("breathing: cycle started: generation=%d durations=%+v", gen, c.durations)

	go c.run(ctx, gen, timer)
	go c.display(ctx, gen)

	return nil
}

// Pause freezes the cycle in place. Does nothing unless running and not paused.
func (c *Cycle) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.paused {
		return
	}

	c.paused = true
	if c.timer != nil {
		c.timer.Pause()
	}

	c.emitLocked(Event{
		Type:     EventPaused,
		Phase:    c.phase,
		Duration: c.phaseDuration,
		TimeLeft: c.timeLeftLocked(),
		Cycle:    c.cycles,
		At:       time.Now(),
	})
}

// Resume unfreezes a paused cycle. The phase in progress continues
// without a new phase-change callback.
func (c *Cycle) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resumeLocked()
}

func (c *Cycle) resumeLocked() {
	if !c.paused {
		return
	}

	c.paused = false
	if c.timer != nil {
		c.timer.Resume()
	}

	c.emitLocked(Event{
		Type:     EventResumed,
		Phase:    c.phase,
		Duration: c.phaseDuration,
		TimeLeft: c.timeLeftLocked(),
		Cycle:    c.cycles,
		At:       time.Now(),
	})
}

// Stop resets the cycle to idle. In-flight waits are abandoned and
// no callback of the stopped run fires after Stop returns.
func (c *Cycle) Stop() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
}

func (c *Cycle) stopLocked() {
	wasActive := c.running || c.paused

	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.timer = nil
	c.running = false
	c.paused = false
	c.phase = PhaseIdle
	c.phaseDuration = 0
	c.lastTimeLeft = 0
	c.cycles = 0

	if wasActive {
		zlog.Debug().Msg("breathing: cycle stopped")
		c.emitLocked(Event{
			Type:  EventStopped,
			Phase: PhaseIdle,
			At:    time.Now(),
		})
	}
}

// Close stops the cycle and closes all observer channels.
func (c *Cycle) Close() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.stopLocked()
	c.closed = true
	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
}

// State returns a snapshot of the cycle.
func (c *Cycle) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return State{
		Running:       c.running,
		Paused:        c.paused,
		Phase:         c.phase,
		TimeLeft:      c.timeLeftLocked(),
		Remaining:     c.remainingLocked(),
		PhaseDuration: c.phaseDuration,
		Cycle:         c.cycles,
	}
}

// run drives the phase loop until the run's context is cancelled.
func (c *Cycle) run(ctx context.Context, gen uint64, timer *PhaseTimer) {
	for phase := PhaseInhale; ; phase = phase.Next() {
		if phase == PhaseInhale && !c.beginCycle(gen) {
			return
		}
		if !c.enterPhase(ctx, gen, timer, phase) {
			return
		}
		if err := timer.Await(ctx); err != nil {
			return
		}
	}
}

// beginCycle notifies the start of a fresh cycle.
func (c *Cycle) beginCycle(gen uint64) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.generation != gen || !c.running {
		c.mu.Unlock()
		return false
	}
	c.cycles++
	c.emitLocked(Event{
		Type:  EventCycleStarted,
		Phase: c.phase,
		Cycle: c.cycles,
		At:    time.Now(),
	})
	onCycleStart := c.callbacks.OnCycleStart
	c.mu.Unlock()

	if onCycleStart != nil {
		onCycleStart()
	}
	return true
}

// enterPhase moves the cycle into phase and arms the timer for it.
// A transition that falls due while paused is held until resume.
func (c *Cycle) enterPhase(ctx context.Context, gen uint64, timer *PhaseTimer, phase Phase) bool {
	for {
		c.emitMu.Lock()
		c.mu.Lock()
		if c.generation != gen || !c.running {
			c.mu.Unlock()
			c.emitMu.Unlock()
			return false
		}
		if c.paused {
			c.mu.Unlock()
			c.emitMu.Unlock()
			if err := timer.AwaitResume(ctx); err != nil {
				return false
			}
			continue
		}

		d := c.durationLocked(phase)
		c.phase = phase
		c.phaseDuration = d
		timer.Arm(d)
		c.lastTimeLeft = ceilSeconds(d)
		c.emitLocked(Event{
			Type:     EventPhaseChanged,
			Phase:    phase,
			Duration: d,
			TimeLeft: c.lastTimeLeft,
			Cycle:    c.cycles,
			At:       time.Now(),
		})
		onPhaseChange := c.callbacks.OnPhaseChange
		c.mu.Unlock()

		zlog.Debug().Msgf("breathing: phase changed: phase=%s duration=%v cycle=%d", phase, d, c.cycleCount())

		if onPhaseChange != nil {
			onPhaseChange(phase, d)
		}
		c.emitMu.Unlock()
		return true
	}
}

// display re-derives the countdown from the phase timer and emits a tick
// whenever the whole-second value changes.
func (c *Cycle) display(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.config.DisplayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.generation != gen {
				c.mu.Unlock()
				return
			}
			if c.paused || c.phase == PhaseIdle {
				c.mu.Unlock()
				continue
			}
			timeLeft := c.timeLeftLocked()
			if timeLeft != c.lastTimeLeft {
				c.lastTimeLeft = timeLeft
				c.emitLocked(Event{
					Type:     EventTick,
					Phase:    c.phase,
					Duration: c.phaseDuration,
					TimeLeft: timeLeft,
					Cycle:    c.cycles,
					At:       time.Now(),
				})
			}
			c.mu.Unlock()
		}
	}
}

func (c *Cycle) cycleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cycles
}

func (c *Cycle) durationLocked(phase Phase) time.Duration {
	switch phase {
	case PhaseInhale:
		return c.durations.Inhale
	case PhaseHold1:
		return c.durations.Hold1
	case PhaseExhale:
		return c.durations.Exhale
	case PhaseHold2:
		return c.durations.Hold2
	default:
		return 0
	}
}

func (c *Cycle) remainingLocked() time.Duration {
	if c.timer == nil || c.phase == PhaseIdle {
		return 0
	}
	return c.timer.Remaining()
}

func (c *Cycle) timeLeftLocked() int {
	return ceilSeconds(c.remainingLocked())
}

// emitLocked sends an event to all observers without blocking.
// Must be called with lock held.
func (c *Cycle) emitLocked(e Event) {
	for _, ch := range c.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// ceilSeconds rounds d up to whole seconds, so a fresh 4s phase reads 4
// and drops to 3 once a full second has elapsed.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func sanitize(d exercise.Durations) exercise.Durations {
	clamp := func(v time.Duration) time.Duration {
		if v < 0 {
			return 0
		}
		return v
	}
	return exercise.Durations{
		Inhale: clamp(d.Inhale),
		Hold1:  clamp(d.Hold1),
		Exhale: clamp(d.Exhale),
		Hold2:  clamp(d.Hold2),
	}
}
