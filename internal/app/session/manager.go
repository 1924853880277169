// Package session provides the breathing screen controller and the manager that owns it.
package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/app/animation"
	"github.com/osa030/breathbox/internal/app/audio"
	"github.com/osa030/breathbox/internal/app/breathing"
	"github.com/osa030/breathbox/internal/app/haptics"
	"github.com/osa030/breathbox/internal/app/notification"
	"github.com/osa030/breathbox/internal/app/rule"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/app/telemetry"
	"github.com/osa030/breathbox/internal/domain/exercise"
	"github.com/osa030/breathbox/internal/infra/config"
)

var (
	ErrNoSession = errors.New("no breathing session is open")
)

// Routes
const (
	RouteHome      = "home"
	RouteBreathing = "breathing"
)

// RejectedError reports an exercise rejected by the rule chain.
type RejectedError struct {
	Code string
}

func (e *RejectedError) Error() string {
	return "exercise rejected: " + e.Code
}

// Store is the exercise persistence the manager needs.
type Store interface {
	ListExercises(ctx context.Context) ([]exercise.Exercise, error)
	GetExercise(ctx context.Context, id string) (exercise.Exercise, error)
	SaveExercise(ctx context.Context, ex exercise.Exercise) error
	GetCurrentExercise(ctx context.Context) (exercise.Exercise, bool, error)
	SetCurrentExercise(ctx context.Context, ex exercise.Exercise) error
}

// Manager owns at most one open breathing screen and acts as its navigator.
type Manager struct {
	mu sync.RWMutex

	// Configuration
	config *config.Config

	// Components
	store        Store
	settings     *settings.Store
	ruleChain    *rule.Chain
	notification *notification.Manager
	audioSource  audio.Source
	pulser       haptics.Pulser
	recorder     telemetry.Recorder

	// Open screen
	controller  *Controller
	forwardDone chan struct{}
	route       string
}

// NewManager creates a session manager.
func NewManager(
	cfg *config.Config,
	store Store,
	settingsStore *settings.Store,
	audioSource audio.Source,
	pulser haptics.Pulser,
	recorder telemetry.Recorder,
	notifier *notification.Manager,
) *Manager {
	if notifier == nil {
		notifier = notification.NewManager()
	}

	m := &Manager{
		config:       cfg,
		store:        store,
		settings:     settingsStore,
		ruleChain:    rule.BuildChain(ruleConfigs(cfg)),
		notification: notifier,
		audioSource:  audioSource,
		pulser:       pulser,
		recorder:     telemetry.Safe(recorder),
		route:        RouteHome,
	}

	settingsStore.OnChange(func(s settings.Settings) {
		m.notification.Publish(notification.TypeSettings, map[string]any{
			"sound_enabled":      s.SoundEnabled,
			"haptics_enabled":    s.HapticsEnabled,
			"animations_enabled": s.AnimationsEnabled,
			"sound_pack":         string(s.SoundPack),
		})
	})

	return m
}

func ruleConfigs(cfg *config.Config) map[string]rule.Config {
	out := make(map[string]rule.Config, len(cfg.Rules))
	for name, rc := range cfg.Rules {
		out[name] = rule.Config{Enabled: rc.Enabled, Settings: rc.Settings}
	}
	return out
}

// Notifications returns the event broadcaster.
func (m *Manager) Notifications() *notification.Manager {
	return m.notification
}

// Open opens the breathing screen for the current exercise.
// Opening while a screen is open returns the open one.
func (m *Manager) Open(ctx context.Context, autoStart bool) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.controller != nil {
		return m.controller.Status(), nil
	}

	ex, err := m.resolveExercise(ctx)
	if err != nil {
		return Status{}, err
	}

	cfg := m.config
	cycle := breathing.NewCycle(ex.Durations(), breathing.Config{
		PollInterval:    cfg.PollInterval(),
		DisplayInterval: cfg.DisplayInterval(),
	})
	anim := animation.NewDriver(animation.Config{
		ContractedRadius: cfg.Animation.ContractedRadius,
		ExpandedRadius:   cfg.Animation.ExpandedRadius,
		ThinStroke:       cfg.Animation.ThinStroke,
		ThickStroke:      cfg.Animation.ThickStroke,
		Easing:           animation.ParseEasing(cfg.Animation.Easing),
	}, m.settings.AnimationsEnabled)

	continuous, err := haptics.ParseIntensity(cfg.Haptics.ContinuousIntensity)
	if err != nil {
		return Status{}, errors.Wrap(err, "invalid continuous intensity")
	}
	cycleStart, err := haptics.ParseIntensity(cfg.Haptics.CycleStartIntensity)
	if err != nil {
		return Status{}, errors.Wrap(err, "invalid cycle start intensity")
	}

	controller := NewController(Deps{
		SessionID: uuid.New().String(),
		Exercise:  ex,
		Cycle:     cycle,
		Animation: anim,
		Audio:     audio.NewDriver(m.audioSource, m.settings, cfg.Audio.Volume),
		Haptics: haptics.NewDriver(m.pulser, haptics.Config{
			PulseInterval:       cfg.PulseInterval(),
			ContinuousIntensity: continuous,
		}, m.settings.HapticsEnabled),
		Settings:  m.settings,
		Recorder:  m.recorder,
		Navigator: m,
	}, ControllerConfig{
		AutoStartDelay:      cfg.AutoStartDelay(),
		ControlsAutoHide:    cfg.ControlsAutoHide(),
		ExitGrace:           cfg.ExitGrace(),
		CycleStartIntensity: cycleStart,
		PauseOnBackground:   cfg.Session.PauseOnBackground,
		AppVersion:          cfg.Session.AppVersion,
	})

	m.controller = controller
	m.route = RouteBreathing
	m.forwardDone = make(chan struct{})
	go m.forward(controller.SessionID(), controller.Subscribe(64), m.forwardDone)

	if autoStart {
		controller.ScheduleAutoStart()
	}

	m.notification.Publish(notification.TypeSessionOpened, map[string]any{
		"session_id":  controller.SessionID(),
		"exercise_id": ex.ID,
		"pattern":     ex.Pattern(),
		"auto_start":  autoStart,
	})
	zlog.Info().Msgf("session: opened: session_id=%s exercise=%s auto_start=%v", controller.SessionID(), ex.ID, autoStart)

	return controller.Status(), nil
}

// resolveExercise picks the stored selection, then the configured default, then the fallback.
func (m *Manager) resolveExercise(ctx context.Context) (exercise.Exercise, error) {
	if m.store == nil {
		return exercise.Fallback, nil
	}

	current, ok, err := m.store.GetCurrentExercise(ctx)
	if err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "failed to load current exercise")
	}
	if ok {
		return current, nil
	}

	if id := m.config.Session.DefaultExerciseID; id != "" {
		ex, err := m.store.GetExercise(ctx, id)
		if err == nil {
			return ex, nil
		}
		zlog.Warn().Msgf("session: default exercise unavailable: id=%s err=%v", id, err)
	}

	return exercise.Fallback, nil
}

// forward publishes cycle events until the cycle is closed.
func (m *Manager) forward(sessionID string, events <-chan breathing.Event, done chan struct{}) {
	defer close(done)

	for e := range events {
		m.notification.Publish(e.Type.String(), map[string]any{
			"session_id":       sessionID,
			"phase":            e.Phase.String(),
			"label":            e.Phase.Label(),
			"duration_seconds": e.Duration.Seconds(),
			"time_left":        e.TimeLeft,
			"cycle":            e.Cycle,
		})
	}
}

func (m *Manager) current() (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.controller == nil {
		return nil, ErrNoSession
	}
	return m.controller, nil
}

// Start starts or resumes the open screen.
func (m *Manager) Start() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	return c.HandleStart()
}

// Pause pauses the open screen.
func (m *Manager) Pause() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	c.HandlePause()
	return nil
}

// Resume resumes the open screen.
func (m *Manager) Resume() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	c.HandleResume()
	return nil
}

// Toggle flips the open screen between running and paused.
func (m *Manager) Toggle() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	return c.HandleToggle()
}

// Touch reveals the controls of the open screen.
func (m *Manager) Touch() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	c.Touch()
	return nil
}

// StopAndExit stops the open screen and navigates back once the grace delay has passed.
func (m *Manager) StopAndExit(ctx context.Context) error {
	c, err := m.current()
	if err != nil {
		return err
	}
	return c.HandleStopAndExit(ctx)
}

// Background tells the open screen the host app went to the background.
func (m *Manager) Background() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	c.HandleAppStateChange(true)
	return nil
}

// Foreground tells the open screen the host app is active again.
func (m *Manager) Foreground() error {
	c, err := m.current()
	if err != nil {
		return err
	}
	c.HandleAppStateChange(false)
	return nil
}

// Status returns the status of the open screen.
func (m *Manager) Status() (Status, error) {
	c, err := m.current()
	if err != nil {
		return Status{}, err
	}
	return c.Status(), nil
}

// Route returns the current route.
func (m *Manager) Route() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.route
}

// GoBack closes the open screen and returns home.
func (m *Manager) GoBack() {
	m.closeScreen()

	m.mu.Lock()
	m.route = RouteHome
	m.mu.Unlock()
	zlog.Debug().Msg("session: navigated back: route=home")
}

// NavigateTo records the route. Leaving the breathing screen closes it.
func (m *Manager) NavigateTo(route string) {
	if route != RouteBreathing {
		m.closeScreen()
	}

	m.mu.Lock()
	m.route = route
	m.mu.Unlock()
	zlog.Debug().Msgf("session: navigated: route=%s", route)
}

// Close closes the open screen, if any.
func (m *Manager) Close() {
	m.closeScreen()
}

func (m *Manager) closeScreen() {
	m.mu.Lock()
	c := m.controller
	done := m.forwardDone
	m.controller = nil
	m.forwardDone = nil
	m.mu.Unlock()

	if c == nil {
		return
	}

	c.Close()
	// Close closes the event channel, which ends the forwarder
	<-done

	m.notification.Publish(notification.TypeSessionClosed, map[string]any{
		"session_id": c.SessionID(),
	})
	zlog.Info().Msgf("session: closed: session_id=%s", c.SessionID())
}

// ListExercises returns the exercise catalogue.
func (m *Manager) ListExercises(ctx context.Context) ([]exercise.Exercise, error) {
	if m.store == nil {
		return exercise.Defaults(), nil
	}
	list, err := m.store.ListExercises(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list exercises")
	}
	return list, nil
}

// CurrentExercise returns the exercise the next screen will run.
func (m *Manager) CurrentExercise(ctx context.Context) (exercise.Exercise, error) {
	return m.resolveExercise(ctx)
}

// SelectExercise makes id the current exercise. An open screen keeps its exercise.
func (m *Manager) SelectExercise(ctx context.Context, id string) (exercise.Exercise, error) {
	if m.store == nil {
		return exercise.Exercise{}, errors.New("no exercise store configured")
	}

	ex, err := m.store.GetExercise(ctx, id)
	if err != nil {
		return exercise.Exercise{}, err
	}
	if err := m.store.SetCurrentExercise(ctx, ex); err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "failed to select exercise")
	}

	zlog.Info().Msgf("session: exercise selected: id=%s pattern=%s", ex.ID, ex.Pattern())
	return ex, nil
}

// SaveCustomExercise validates ex with the rule chain and stores it.
// A missing ID is generated.
func (m *Manager) SaveCustomExercise(ctx context.Context, ex exercise.Exercise) (exercise.Exercise, error) {
	if m.store == nil {
		return exercise.Exercise{}, errors.New("no exercise store configured")
	}

	ex.Custom = true
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}

	if result := m.ruleChain.Execute(ctx, ex); !result.Accepted {
		zlog.Info().Msgf("session: custom exercise rejected: id=%s code=%s", ex.ID, result.Code)
		return exercise.Exercise{}, &RejectedError{Code: result.Code}
	}

	if err := m.store.SaveExercise(ctx, ex); err != nil {
		return exercise.Exercise{}, errors.Wrap(err, "failed to save exercise")
	}

	zlog.Info().Msgf("session: custom exercise saved: id=%s pattern=%s", ex.ID, ex.Pattern())
	return ex, nil
}

// Settings returns the current settings.
func (m *Manager) Settings() settings.Settings {
	return m.settings.Current()
}

// UpdateSettings applies fn to the settings. Running drivers pick the change up on their next cue.
func (m *Manager) UpdateSettings(ctx context.Context, fn func(*settings.Settings)) (settings.Settings, error) {
	return m.settings.Update(ctx, fn)
}
