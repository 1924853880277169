package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/breathbox/internal/app/animation"
	"github.com/osa030/breathbox/internal/app/audio"
	"github.com/osa030/breathbox/internal/app/breathing"
	"github.com/osa030/breathbox/internal/app/haptics"
	"github.com/osa030/breathbox/internal/app/session/state"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/app/telemetry"
	"github.com/osa030/breathbox/internal/domain/exercise"
)

type fakeClip struct {
	mu      sync.Mutex
	playing bool
	plays   int
}

func (c *fakeClip) SeekToStart() error { return nil }

func (c *fakeClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
	c.playing = true
	return nil
}

func (c *fakeClip) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	return nil
}

func (c *fakeClip) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *fakeClip) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

type fakeSource struct {
	inhale *fakeClip
	exhale *fakeClip
}

func (s *fakeSource) Resolve(settings.SoundPack) (audio.Clip, audio.Clip, error) {
	return s.inhale, s.exhale, nil
}

type pulse struct {
	intensity haptics.Intensity
	phase     breathing.Phase
}

// phasePulser records the cycle phase at every pulse.
type phasePulser struct {
	mu     sync.Mutex
	cycle  *breathing.Cycle
	pulses []pulse
}

func (p *phasePulser) TriggerPulse(_ context.Context, intensity haptics.Intensity) error {
	phase := p.cycle.State().Phase
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pulses = append(p.pulses, pulse{intensity: intensity, phase: phase})
	return nil
}

func (p *phasePulser) snapshot() []pulse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pulse(nil), p.pulses...)
}

type fakeNavigator struct {
	mu     sync.Mutex
	backs  int
	routes []string
}

func (n *fakeNavigator) GoBack() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.backs++
}

func (n *fakeNavigator) NavigateTo(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *fakeNavigator) backCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.backs
}

type recordedEvent struct {
	event telemetry.Event
	attrs telemetry.Attributes
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) RecordEvent(e telemetry.Event, attrs telemetry.Attributes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: e, attrs: attrs})
}

func (r *eventRecorder) named(e telemetry.Event) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, ev := range r.events {
		if ev.event == e {
			out = append(out, ev)
		}
	}
	return out
}

// resumeAnimator records the remaining time passed to Resume.
type resumeAnimator struct {
	*animation.Driver
	mu      sync.Mutex
	resumes []time.Duration
}

func (a *resumeAnimator) Resume(phase breathing.Phase, remaining time.Duration) {
	a.mu.Lock()
	a.resumes = append(a.resumes, remaining)
	a.mu.Unlock()
	a.Driver.Resume(phase, remaining)
}

func (a *resumeAnimator) resumeCalls() []time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]time.Duration(nil), a.resumes...)
}

type harness struct {
	controller *Controller
	cycle      *breathing.Cycle
	animator   *resumeAnimator
	source     *fakeSource
	pulser     *phasePulser
	haptics    *haptics.Driver
	navigator  *fakeNavigator
	recorder   *eventRecorder
	settings   *settings.Store
}

func newHarness(t *testing.T, ex exercise.Exercise, cfg ControllerConfig) *harness {
	t.Helper()

	h := &harness{
		cycle: breathing.NewCycle(ex.Durations(), breathing.Config{
			PollInterval:    5 * time.Millisecond,
			DisplayInterval: 20 * time.Millisecond,
		}),
		source:    &fakeSource{inhale: &fakeClip{}, exhale: &fakeClip{}},
		navigator: &fakeNavigator{},
		recorder:  &eventRecorder{},
		settings:  settings.NewStore(settings.Default(), nil),
	}
	h.pulser = &phasePulser{cycle: h.cycle}
	h.animator = &resumeAnimator{Driver: animation.NewDriver(animation.DefaultConfig(), h.settings.AnimationsEnabled)}
	h.haptics = haptics.NewDriver(h.pulser, haptics.Config{
		PulseInterval:       10 * time.Millisecond,
		ContinuousIntensity: haptics.IntensitySoft,
	}, h.settings.HapticsEnabled)

	h.controller = NewController(Deps{
		SessionID: "test-session",
		Exercise:  ex,
		Cycle:     h.cycle,
		Animation: h.animator,
		Audio:     audio.NewDriver(h.source, h.settings, audio.DefaultVolume),
		Haptics:   h.haptics,
		Settings:  h.settings,
		Recorder:  h.recorder,
		Navigator: h.navigator,
	}, cfg)
	t.Cleanup(h.controller.Close)
	return h
}

func testConfig() ControllerConfig {
	return ControllerConfig{
		AutoStartDelay:      20 * time.Millisecond,
		ControlsAutoHide:    50 * time.Millisecond,
		ExitGrace:           10 * time.Millisecond,
		CycleStartIntensity: haptics.IntensityMedium,
		AppVersion:          "test",
	}
}

func TestController_EnteredRecorded(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())

	entered := h.recorder.named(telemetry.EventEntered)
	require.Len(t, entered, 1)
	assert.True(t, entered[0].attrs.SoundOn)
	assert.Equal(t, "test", entered[0].attrs.AppVersion)

	status := h.controller.Status()
	assert.Equal(t, state.IntentNotStarted, status.Intent)
	assert.Equal(t, breathing.PhaseIdle, status.Cycle.Phase)
	assert.Equal(t, animation.DefaultConfig().Contracted(), status.Shape)
}

func TestController_StartRevealsControls(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())

	require.NoError(t, h.controller.HandleStart())
	status := h.controller.Status()
	assert.Equal(t, state.IntentRunning, status.Intent)
	assert.Equal(t, state.ControlsVisible, status.Controls)
	require.NotNil(t, status.FirstStartAt)
	assert.Len(t, h.recorder.named(telemetry.EventStarted), 1)

	assert.Eventually(t, func() bool {
		return h.controller.Status().Controls == state.ControlsHidden
	}, time.Second, 5*time.Millisecond, "controls auto-hide")

	// Touch reveals them again
	h.controller.Touch()
	assert.Equal(t, state.ControlsVisible, h.controller.Status().Controls)

	// A second start is a no-op and records nothing
	require.NoError(t, h.controller.HandleStart())
	assert.Len(t, h.recorder.named(telemetry.EventStarted), 1)
}

func TestController_TouchBeforeStartKeepsControlsHidden(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())
	h.controller.Touch()
	assert.Equal(t, state.ControlsHidden, h.controller.Status().Controls)
}

func TestController_CuesFollowPhases(t *testing.T) {
	ex := exercise.Exercise{ID: "t", Inhale: 0.1, Hold1: 0.05, Exhale: 0.1, Hold2: 0.05}
	h := newHarness(t, ex, testConfig())

	require.NoError(t, h.controller.HandleStart())

	require.Eventually(t, func() bool {
		return h.source.exhale.playCount() >= 1 && h.source.inhale.playCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	var medium int
	for _, p := range h.pulser.snapshot() {
		if p.intensity == haptics.IntensityMedium {
			medium++
		}
	}
	assert.GreaterOrEqual(t, medium, 1, "one-shot pulse at cycle start")
}

func TestController_ContinuousHapticsBoundedToInhale(t *testing.T) {
	ex := exercise.Exercise{ID: "t", Inhale: 0.3, Hold1: 0.15, Exhale: 0.3, Hold2: 0.15}
	h := newHarness(t, ex, testConfig())

	events := h.controller.Subscribe(256)
	require.NoError(t, h.controller.HandleStart())

	deadline := time.After(3 * time.Second)
	exhales := 0
	for exhales < 2 {
		select {
		case e := <-events:
			if e.Type != breathing.EventPhaseChanged {
				continue
			}
			if e.Phase == breathing.PhaseExhale || e.Phase == breathing.PhaseHold2 {
				assert.False(t, h.haptics.Vibrating(), "vibrating at %s entry", e.Phase)
			}
			if e.Phase == breathing.PhaseExhale {
				exhales++
			}
		case <-deadline:
			t.Fatal("timed out waiting for two cycles")
		}
	}

	var soft int
	for _, p := range h.pulser.snapshot() {
		if p.intensity != haptics.IntensitySoft {
			continue
		}
		soft++
		assert.NotEqual(t, breathing.PhaseExhale, p.phase)
		assert.NotEqual(t, breathing.PhaseHold2, p.phase)
	}
	assert.Greater(t, soft, 0, "continuous pulses fire during inhale")
}

func TestController_PauseResumeUsesRemaining(t *testing.T) {
	ex := exercise.Exercise{ID: "t", Inhale: 1, Hold1: 1, Exhale: 1, Hold2: 1}
	h := newHarness(t, ex, testConfig())

	require.NoError(t, h.controller.HandleStart())
	time.Sleep(700 * time.Millisecond)

	h.controller.HandlePause()
	paused := h.controller.Status()
	require.Equal(t, state.IntentPaused, paused.Intent)
	require.Equal(t, breathing.PhaseInhale, paused.Cycle.Phase)
	assert.False(t, h.haptics.Vibrating(), "pause stops the vibration")
	assert.False(t, h.source.inhale.IsPlaying(), "pause stops the sound")

	shape := h.animator.Value()
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, shape, h.animator.Value(), "shape frozen while paused")
	assert.Equal(t, breathing.PhaseInhale, h.controller.Status().Cycle.Phase)

	h.controller.HandleResume()
	assert.Equal(t, state.IntentRunning, h.controller.Status().Intent)

	resumes := h.animator.resumeCalls()
	require.Len(t, resumes, 1)
	assert.InDelta(t, float64(300*time.Millisecond), float64(resumes[0]), float64(100*time.Millisecond))
	assert.InDelta(t, float64(paused.Cycle.Remaining), float64(resumes[0]), float64(20*time.Millisecond))
}

func TestController_ResumeInHoldKeepsShapeStatic(t *testing.T) {
	ex := exercise.Exercise{ID: "t", Inhale: 0.05, Hold1: 0.3, Exhale: 1, Hold2: 1}
	h := newHarness(t, ex, testConfig())

	require.NoError(t, h.controller.HandleStart())
	require.Eventually(t, func() bool {
		return h.controller.Status().Cycle.Phase == breathing.PhaseHold1
	}, time.Second, 5*time.Millisecond)

	h.controller.HandlePause()
	shape := h.animator.Value()
	h.controller.HandleResume()

	assert.Len(t, h.animator.resumeCalls(), 1)
	assert.False(t, h.animator.Animating(), "holds keep the shape static")
	assert.Equal(t, shape, h.animator.Value())

	// The exhale after the hold eases again
	assert.Eventually(t, func() bool {
		st := h.controller.Status()
		return st.Cycle.Phase == breathing.PhaseExhale && st.Animating
	}, 2*time.Second, 5*time.Millisecond)
}

func TestController_PhaseEntryAfterPauseIsHeld(t *testing.T) {
	tests := []struct {
		name  string
		phase breathing.Phase
		clip  func(h *harness) *fakeClip
	}{
		{name: "Inhale", phase: breathing.PhaseInhale, clip: func(h *harness) *fakeClip { return h.source.inhale }},
		{name: "Exhale", phase: breathing.PhaseExhale, clip: func(h *harness) *fakeClip { return h.source.exhale }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := exercise.Exercise{ID: "t", Inhale: 5, Hold1: 5, Exhale: 5, Hold2: 5}
			h := newHarness(t, ex, testConfig())
			require.NoError(t, h.controller.HandleStart())

			h.controller.HandlePause()
			shape := h.animator.Value()
			plays := tt.clip(h).playCount()

			// The cycle goroutine delivers a phase entry that raced the pause
			h.controller.onPhaseChange(tt.phase, 5*time.Second)
			time.Sleep(50 * time.Millisecond)

			assert.Equal(t, shape, h.animator.Value(), "shape frozen while paused")
			assert.False(t, h.animator.Animating())
			assert.Equal(t, plays, tt.clip(h).playCount())
			assert.False(t, h.haptics.Vibrating())
		})
	}
}

func TestController_Toggle(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())

	tests := []struct {
		name string
		want state.Intent
	}{
		{"Start", state.IntentRunning},
		{"Pause", state.IntentPaused},
		{"Resume", state.IntentRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, h.controller.HandleToggle())
			assert.Equal(t, tt.want, h.controller.Status().Intent)
			assert.Equal(t, tt.want == state.IntentPaused, h.cycle.State().Paused)
		})
	}
}

func TestController_StopAndExit(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())

	require.NoError(t, h.controller.HandleStart())
	require.Eventually(t, h.haptics.Vibrating, time.Second, 5*time.Millisecond)

	require.NoError(t, h.controller.HandleStopAndExit(context.Background()))

	status := h.controller.Status()
	assert.Equal(t, state.IntentExited, status.Intent)
	assert.Equal(t, state.ControlsHidden, status.Controls)
	assert.Equal(t, breathing.State{Phase: breathing.PhaseIdle}, status.Cycle)
	assert.Equal(t, animation.DefaultConfig().Contracted(), status.Shape)
	assert.False(t, status.Vibrating)
	assert.False(t, h.source.inhale.IsPlaying())
	assert.Equal(t, 1, h.navigator.backCount())

	exited := h.recorder.named(telemetry.EventExited)
	require.Len(t, exited, 1)
	assert.Equal(t, telemetry.ReasonUserExit, exited[0].attrs.Reason)
	require.NotNil(t, exited[0].attrs.BreathingReadyMs)
	assert.GreaterOrEqual(t, exited[0].attrs.ElapsedSeconds, 0.0)

	// Exit is terminal
	assert.ErrorIs(t, h.controller.HandleStart(), ErrExited)
	require.NoError(t, h.controller.HandleStopAndExit(context.Background()))
	h.controller.Close()
	assert.Len(t, h.recorder.named(telemetry.EventExited), 1, "exit recorded once")
	assert.Equal(t, 1, h.navigator.backCount())
}

func TestController_StopAndExitHonoursContext(t *testing.T) {
	cfg := testConfig()
	cfg.ExitGrace = time.Second
	h := newHarness(t, exercise.Fallback, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.controller.HandleStopAndExit(ctx), context.Canceled)
	assert.Equal(t, 1, h.navigator.backCount(), "cancel cuts the grace short but still navigates")
	assert.Equal(t, breathing.PhaseIdle, h.controller.Status().Cycle.Phase)

	require.NoError(t, h.controller.HandleStopAndExit(context.Background()))
	assert.Equal(t, 1, h.navigator.backCount())
}

func TestController_AutoStart(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())

	h.controller.ScheduleAutoStart()
	assert.Equal(t, state.IntentNotStarted, h.controller.Status().Intent)

	assert.Eventually(t, func() bool {
		return h.controller.Status().Intent == state.IntentRunning
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, breathing.PhaseInhale, h.controller.Status().Cycle.Phase)
}

func TestController_AutoStartCancelledByExit(t *testing.T) {
	cfg := testConfig()
	cfg.AutoStartDelay = 50 * time.Millisecond
	cfg.ExitGrace = 0
	h := newHarness(t, exercise.Fallback, cfg)

	h.controller.ScheduleAutoStart()
	require.NoError(t, h.controller.HandleStopAndExit(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, breathing.PhaseIdle, h.cycle.State().Phase)
	assert.Empty(t, h.recorder.named(telemetry.EventStarted))
}

func TestController_AppStateChange(t *testing.T) {
	tests := []struct {
		name              string
		pauseOnBackground bool
		wantIntent        state.Intent
	}{
		{name: "Keeps running", pauseOnBackground: false, wantIntent: state.IntentRunning},
		{name: "Pauses", pauseOnBackground: true, wantIntent: state.IntentPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.PauseOnBackground = tt.pauseOnBackground
			h := newHarness(t, exercise.Fallback, cfg)

			require.NoError(t, h.controller.HandleStart())
			h.controller.HandleAppStateChange(true)

			status := h.controller.Status()
			assert.Equal(t, tt.wantIntent, status.Intent)
			assert.True(t, status.Background)

			exited := h.recorder.named(telemetry.EventExited)
			require.Len(t, exited, 1)
			assert.Equal(t, telemetry.ReasonBackground, exited[0].attrs.Reason)

			h.controller.HandleAppStateChange(false)
			assert.False(t, h.controller.Status().Background)

			h.controller.Close()
			assert.Len(t, h.recorder.named(telemetry.EventExited), 1)
		})
	}
}

func TestController_CloseForceStops(t *testing.T) {
	h := newHarness(t, exercise.Fallback, testConfig())

	require.NoError(t, h.controller.HandleStart())
	require.Eventually(t, h.haptics.Vibrating, time.Second, 5*time.Millisecond)

	h.controller.Close()
	assert.False(t, h.haptics.Vibrating())
	assert.Equal(t, breathing.PhaseIdle, h.cycle.State().Phase)

	exited := h.recorder.named(telemetry.EventExited)
	require.Len(t, exited, 1)
	assert.Equal(t, telemetry.ReasonUnmount, exited[0].attrs.Reason)

	// Idempotent
	h.controller.Close()
	assert.Equal(t, 0, h.navigator.backCount())
}

func TestController_DisabledSettingsSilenceCues(t *testing.T) {
	ex := exercise.Exercise{ID: "t", Inhale: 0.1, Hold1: 0, Exhale: 0.1, Hold2: 0}
	h := newHarness(t, ex, testConfig())
	_, err := h.settings.Update(context.Background(), func(s *settings.Settings) {
		s.SoundEnabled = false
		s.HapticsEnabled = false
	})
	require.NoError(t, err)

	require.NoError(t, h.controller.HandleStart())
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 0, h.source.inhale.playCount())
	assert.Equal(t, 0, h.source.exhale.playCount())
	assert.Empty(t, h.pulser.snapshot())
}
