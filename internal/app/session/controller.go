package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/app/animation"
	"github.com/osa030/breathbox/internal/app/audio"
	"github.com/osa030/breathbox/internal/app/breathing"
	"github.com/osa030/breathbox/internal/app/haptics"
	"github.com/osa030/breathbox/internal/app/session/state"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/app/telemetry"
	"github.com/osa030/breathbox/internal/domain/exercise"
)

var ErrExited = errors.New("breathing screen has been exited")

// Navigator moves between screens.
type Navigator interface {
	GoBack()
	NavigateTo(route string)
}

// Animator eases the breathing shape. *animation.Driver implements it.
type Animator interface {
	AnimateInhale(duration time.Duration)
	AnimateExhale(duration time.Duration)
	Pause()
	Resume(phase breathing.Phase, remaining time.Duration)
	Reset()
	Value() animation.Params
	Animating() bool
}

// ControllerConfig holds breathing screen timing configuration.
type ControllerConfig struct {
	AutoStartDelay      time.Duration // Settle delay before auto-start
	ControlsAutoHide    time.Duration // How long revealed controls stay visible; 0 keeps them
	ExitGrace           time.Duration // Delay between force-stop and navigation
	CycleStartIntensity haptics.Intensity
	PauseOnBackground   bool
	AppVersion          string
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	SessionID string
	Exercise  exercise.Exercise
	Cycle     *breathing.Cycle
	Animation Animator
	Audio     *audio.Driver
	Haptics   *haptics.Driver
	Settings  settings.Reader
	Recorder  telemetry.Recorder
	Navigator Navigator
}

// Status is a snapshot of the breathing screen.
type Status struct {
	state.Snapshot
	Exercise  exercise.Exercise
	Cycle     breathing.State
	Shape     animation.Params
	Animating bool
	Vibrating bool
}

// Controller orchestrates the cycle and its cue channels for one breathing screen.
type Controller struct {
	mu sync.Mutex

	config   ControllerConfig
	exercise exercise.Exercise
	state    *state.Manager

	// Channels
	cycle     *breathing.Cycle
	animation Animator
	audio     *audio.Driver
	haptics   *haptics.Driver

	settings  settings.Reader
	recorder  telemetry.Recorder
	navigator Navigator
	now       func() time.Time

	// UI timers
	hideTimer      *time.Timer
	autoStartTimer *time.Timer

	exitRecorded bool
	closed       bool
}

// NewController wires the channels together and records the screen entry.
func NewController(deps Deps, config ControllerConfig) *Controller {
	now := time.Now
	c := &Controller{
		config:    config,
		exercise:  deps.Exercise,
		state:     state.New(deps.SessionID, deps.Exercise.ID, now()),
		cycle:     deps.Cycle,
		animation: deps.Animation,
		audio:     deps.Audio,
		haptics:   deps.Haptics,
		settings:  deps.Settings,
		recorder:  telemetry.Safe(deps.Recorder),
		navigator: deps.Navigator,
		now:       now,
	}

	c.cycle.SetCallbacks(breathing.Callbacks{
		OnPhaseChange: c.onPhaseChange,
		OnCycleStart:  c.onCycleStart,
	})

	c.recorder.RecordEvent(telemetry.EventEntered, c.commonAttributes())
	zlog.Info().Msgf("session: breathing screen entered: session_id=%s exercise=%s pattern=%s",
		deps.SessionID, deps.Exercise.ID, deps.Exercise.Pattern())
	return c
}

// HandleStart starts the cycle, or resumes it when paused.
// The first start reveals the controls and records the start event.
func (c *Controller) HandleStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.startLocked()
}

func (c *Controller) startLocked() error {
	if c.closed || c.state.IsExited() {
		return ErrExited
	}

	switch c.state.GetIntent() {
	case state.IntentRunning:
		return nil
	case state.IntentPaused:
		c.resumeLocked()
		return nil
	}

	if err := c.cycle.Start(); err != nil {
		return errors.Wrap(err, "failed to start cycle")
	}

	if first := c.state.MarkStarted(c.now()); first {
		c.recorder.RecordEvent(telemetry.EventStarted, c.commonAttributes())
		c.showControlsLocked()
	}
	zlog.Info().Msgf("session: breathing started: session_id=%s", c.state.GetSessionID())
	return nil
}

// HandleToggle is the single play/pause affordance.
func (c *Controller) HandleToggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.GetIntent() == state.IntentRunning {
		c.pauseLocked()
		return nil
	}
	return c.startLocked()
}

// HandlePause freezes the cycle, the animation and both cue channels together.
func (c *Controller) HandlePause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pauseLocked()
}

func (c *Controller) pauseLocked() {
	if c.state.GetIntent() != state.IntentRunning {
		return
	}

	c.cycle.Pause()
	c.animation.Pause()
	c.haptics.StopVibration()
	c.audio.StopSound()
	c.state.SetIntent(state.IntentPaused)

	zlog.Info().Msgf("session: breathing paused: session_id=%s", c.state.GetSessionID())
}

// HandleResume unfreezes the cycle. The animation continues over the time
// left in the phase; cues resume with the next phase entry.
func (c *Controller) HandleResume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resumeLocked()
}

func (c *Controller) resumeLocked() {
	if c.state.GetIntent() != state.IntentPaused {
		return
	}

	// Remaining is frozen while paused. The animator is always told, so
	// it accepts eases again even when a hold keeps the shape static.
	st := c.cycle.State()
	c.cycle.Resume()
	c.animation.Resume(st.Phase, st.Remaining)
	c.state.SetIntent(state.IntentRunning)

	zlog.Info().Msgf("session: breathing resumed: session_id=%s phase=%s remaining=%v",
		c.state.GetSessionID(), st.Phase, st.Remaining)
}

// HandleStopAndExit force-stops every channel, hides the controls and
// navigates back after the exit grace delay. A cancelled ctx cuts the delay
// short but still navigates, so the screen is never left exited and open.
func (c *Controller) HandleStopAndExit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state.IsExited() {
		c.mu.Unlock()
		return nil
	}

	c.forceStopLocked()
	c.state.SetIntent(state.IntentExited)
	c.state.SetControls(state.ControlsHidden)
	c.recordExitLocked(telemetry.ReasonUserExit)
	grace := c.config.ExitGrace
	c.mu.Unlock()

	zlog.Info().Msgf("session: breathing stopped by user: session_id=%s", c.state.GetSessionID())

	var err error
	if grace > 0 {
		timer := time.NewTimer(grace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		}
	}

	if c.navigator != nil {
		c.navigator.GoBack()
	}
	return err
}

// ScheduleAutoStart starts the cycle after the settle delay.
func (c *Controller) ScheduleAutoStart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.autoStartTimer != nil {
		c.autoStartTimer.Stop()
	}
	c.autoStartTimer = time.AfterFunc(c.config.AutoStartDelay, func() {
		if err := c.HandleStart(); err != nil && !errors.Is(err, ErrExited) {
			zlog.Warn().Msgf("session: auto-start failed: %v", err)
		}
	})
	zlog.Debug().Msgf("session: auto-start scheduled: delay=%v", c.config.AutoStartDelay)
}

// HandleAppStateChange reacts to the host app moving between foreground and background.
// Backgrounding counts as an exit for tracking; playback is paused only when configured.
func (c *Controller) HandleAppStateChange(background bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.state.SetBackground(background)
	if !background {
		return
	}

	c.recordExitLocked(telemetry.ReasonBackground)
	if c.config.PauseOnBackground {
		c.pauseLocked()
	}
}

// Touch reveals the controls after the first start and restarts their auto-hide timer.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state.IsExited() {
		return
	}
	if _, first := c.state.GetTimes(); first == nil {
		return
	}
	c.showControlsLocked()
}

// Close is the unmount cleanup. It force-stops everything regardless of how the screen was left.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.forceStopLocked()
	c.cycle.Close()
	c.audio.Close()
	c.recordExitLocked(telemetry.ReasonUnmount)
	c.state.SetIntent(state.IntentExited)
	c.state.SetControls(state.ControlsHidden)
	c.closed = true

	zlog.Debug().Msgf("session: breathing screen closed: session_id=%s", c.state.GetSessionID())
}

// Status returns a snapshot of the screen.
func (c *Controller) Status() Status {
	return Status{
		Snapshot:  c.state.Snapshot(),
		Exercise:  c.exercise,
		Cycle:     c.cycle.State(),
		Shape:     c.animation.Value(),
		Animating: c.animation.Animating(),
		Vibrating: c.haptics.Vibrating(),
	}
}

// SessionID returns the ID of the screen session.
func (c *Controller) SessionID() string {
	return c.state.GetSessionID()
}

// Subscribe returns a channel of cycle events.
func (c *Controller) Subscribe(buffer int) <-chan breathing.Event {
	return c.cycle.Subscribe(buffer)
}

// onPhaseChange binds cues to phase entries. Runs on the cycle goroutine.
// A pause that lands after the phase was entered wins: resume re-issues the
// ease over the remaining time and cues pick up at the next phase.
func (c *Controller) onPhaseChange(phase breathing.Phase, d time.Duration) {
	if c.cycle.State().Paused {
		return
	}

	switch phase {
	case breathing.PhaseInhale:
		c.animation.AnimateInhale(d)
		c.haptics.StartContinuousVibration(c.inhaling)
		c.audio.PlayInhaleSound()
	case breathing.PhaseHold1:
		c.haptics.StopVibration()
	case breathing.PhaseExhale:
		c.haptics.StopVibration()
		c.animation.AnimateExhale(d)
		c.audio.PlayExhaleSound()
	case breathing.PhaseHold2:
		c.haptics.StopVibration()
	}
}

func (c *Controller) onCycleStart() {
	c.haptics.TriggerHaptic(c.config.CycleStartIntensity)
}

// inhaling is the liveness check of the continuous vibration loop.
func (c *Controller) inhaling() bool {
	st := c.cycle.State()
	return st.Running && !st.Paused && st.Phase == breathing.PhaseInhale
}

// forceStopLocked halts every channel immediately and cancels UI timers.
// Must be called with lock held.
func (c *Controller) forceStopLocked() {
	// Stop returns once no callback can fire, so nothing restarts a channel afterwards
	c.cycle.Stop()
	c.haptics.ForceStop()
	c.animation.Reset()
	c.audio.ForceStop()

	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
	if c.autoStartTimer != nil {
		c.autoStartTimer.Stop()
		c.autoStartTimer = nil
	}
}

// showControlsLocked reveals the controls and restarts the auto-hide timer.
// Must be called with lock held.
func (c *Controller) showControlsLocked() {
	c.state.SetControls(state.ControlsVisible)
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
	if c.config.ControlsAutoHide <= 0 {
		return
	}
	c.hideTimer = time.AfterFunc(c.config.ControlsAutoHide, func() {
		c.state.SetControls(state.ControlsHidden)
	})
}

// recordExitLocked records the exit event once per screen.
// Must be called with lock held.
func (c *Controller) recordExitLocked(reason telemetry.ExitReason) {
	if c.exitRecorded {
		return
	}
	c.exitRecorded = true

	entered, firstStart := c.state.GetTimes()
	attrs := c.commonAttributes()
	attrs.ElapsedSeconds = c.now().Sub(entered).Seconds()
	attrs.Reason = reason
	if firstStart != nil {
		ready := firstStart.Sub(entered).Milliseconds()
		attrs.BreathingReadyMs = &ready
	}
	c.recorder.RecordEvent(telemetry.EventExited, attrs)
}

func (c *Controller) commonAttributes() telemetry.Attributes {
	s := c.settings.Current()
	return telemetry.Common(s.SoundEnabled, s.HapticsEnabled, c.config.AppVersion)
}
