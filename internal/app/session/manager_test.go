package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/breathbox/internal/app/breathing"
	"github.com/osa030/breathbox/internal/app/notification"
	"github.com/osa030/breathbox/internal/app/session/state"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/domain/exercise"
	"github.com/osa030/breathbox/internal/infra/config"
)

type memoryStore struct {
	mu        sync.Mutex
	exercises []exercise.Exercise
	current   *exercise.Exercise
}

func newMemoryStore() *memoryStore {
	return &memoryStore{exercises: exercise.Defaults()}
}

func (s *memoryStore) ListExercises(context.Context) ([]exercise.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]exercise.Exercise(nil), s.exercises...), nil
}

func (s *memoryStore) GetExercise(_ context.Context, id string) (exercise.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ex, ok := exercise.FindByID(s.exercises, id); ok {
		return ex, nil
	}
	return exercise.Exercise{}, errors.Wrapf(exercise.ErrNotFound, "id=%s", id)
}

func (s *memoryStore) SaveExercise(_ context.Context, ex exercise.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.exercises {
		if s.exercises[i].ID == ex.ID {
			s.exercises[i] = ex
			return nil
		}
	}
	s.exercises = append(s.exercises, ex)
	return nil
}

func (s *memoryStore) GetCurrentExercise(context.Context) (exercise.Exercise, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return exercise.Exercise{}, false, nil
	}
	return *s.current, true, nil
}

func (s *memoryStore) SetCurrentExercise(_ context.Context, ex exercise.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &ex
	return nil
}

type collectingStream struct {
	mu  sync.Mutex
	got []*notification.Notification
}

func (s *collectingStream) Send(n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *collectingStream) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.got))
	for _, n := range s.got {
		out = append(out, n.Type)
	}
	return out
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Cycle.PollIntervalMs = 5
	cfg.Cycle.DisplayIntervalMs = 20
	cfg.Session.AutoStartDelayMs = 10
	cfg.Session.ExitGraceMs = 5
	cfg.Rules = map[string]config.RuleConfig{
		"phase_range_rule": {Enabled: true},
		"title_rule":       {Enabled: true},
	}
	return cfg
}

func newTestManager(t *testing.T, store Store) (*Manager, *collectingStream) {
	t.Helper()
	cfg := loadTestConfig(t)
	notifier := notification.NewManager()
	stream := &collectingStream{}
	notifier.Subscribe(stream)

	m := NewManager(cfg, store, settings.NewStore(settings.Default(), nil),
		&fakeSource{inhale: &fakeClip{}, exhale: &fakeClip{}}, &phasePulser{cycle: breathing.NewCycle(exercise.Fallback.Durations(), breathing.Config{})},
		nil, notifier)
	t.Cleanup(m.Close)
	return m, stream
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestManager_NoSession(t *testing.T) {
	m, _ := newTestManager(t, newMemoryStore())

	tests := []struct {
		name string
		call func() error
	}{
		{"Start", m.Start},
		{"Pause", m.Pause},
		{"Resume", m.Resume},
		{"Toggle", m.Toggle},
		{"Touch", m.Touch},
		{"Background", m.Background},
		{"Foreground", m.Foreground},
		{"StopAndExit", func() error { return m.StopAndExit(context.Background()) }},
		{"Status", func() error { _, err := m.Status(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrNoSession)
		})
	}
}

func TestManager_OpenResolvesExercise(t *testing.T) {
	box, _ := exercise.FindByID(exercise.Defaults(), exercise.DefaultID)
	deep := exercise.Defaults()[0]

	tests := []struct {
		name      string
		current   *exercise.Exercise
		defaultID string
		want      exercise.Exercise
	}{
		{name: "Fallback", want: exercise.Fallback},
		{name: "Configured default", defaultID: exercise.DefaultID, want: box},
		{name: "Missing configured default", defaultID: "nope", want: exercise.Fallback},
		{name: "Current selection", current: &deep, defaultID: exercise.DefaultID, want: deep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.current = tt.current
			m, _ := newTestManager(t, store)
			m.config.Session.DefaultExerciseID = tt.defaultID

			status, err := m.Open(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Exercise)
			assert.Equal(t, state.IntentNotStarted, status.Intent)
			assert.Equal(t, RouteBreathing, m.Route())
		})
	}
}

func TestManager_OpenTwiceReturnsOpenScreen(t *testing.T) {
	m, _ := newTestManager(t, newMemoryStore())

	first, err := m.Open(context.Background(), false)
	require.NoError(t, err)
	second, err := m.Open(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestManager_Lifecycle(t *testing.T) {
	m, stream := newTestManager(t, newMemoryStore())

	_, err := m.Open(context.Background(), true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := m.Status()
		return err == nil && st.Cycle.Phase == breathing.PhaseInhale
	}, time.Second, 5*time.Millisecond, "auto-start")

	require.NoError(t, m.Pause())
	st, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, state.IntentPaused, st.Intent)

	require.NoError(t, m.Resume())
	require.NoError(t, m.StopAndExit(context.Background()))

	_, err = m.Status()
	assert.ErrorIs(t, err, ErrNoSession, "exit navigates back and closes the screen")
	assert.Equal(t, RouteHome, m.Route())

	types := stream.types()
	for _, want := range []string{
		notification.TypeSessionOpened,
		notification.TypeCycleStarted,
		notification.TypePhaseChanged,
		notification.TypePaused,
		notification.TypeResumed,
		notification.TypeStopped,
		notification.TypeSessionClosed,
	} {
		assert.True(t, contains(types, want), "missing %s in %v", want, types)
	}
}

func TestManager_StopAndExitCancelledDuringGrace(t *testing.T) {
	m, _ := newTestManager(t, newMemoryStore())
	m.config.Session.ExitGraceMs = 200

	first, err := m.Open(context.Background(), false)
	require.NoError(t, err)
	require.NoError(t, m.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.StopAndExit(ctx), context.DeadlineExceeded)

	assert.Equal(t, RouteHome, m.Route())
	_, err = m.Status()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, m.StopAndExit(context.Background()), ErrNoSession)

	second, err := m.Open(context.Background(), false)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, state.IntentNotStarted, second.Intent)
	require.NoError(t, m.Start())
}

func TestManager_NavigateAwayClosesScreen(t *testing.T) {
	m, _ := newTestManager(t, newMemoryStore())

	_, err := m.Open(context.Background(), false)
	require.NoError(t, err)

	m.NavigateTo(RouteBreathing)
	_, err = m.Status()
	require.NoError(t, err)

	m.NavigateTo("settings")
	_, err = m.Status()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, "settings", m.Route())
}

func TestManager_SelectExercise(t *testing.T) {
	store := newMemoryStore()
	m, _ := newTestManager(t, store)
	ctx := context.Background()

	ex, err := m.SelectExercise(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", ex.ID)

	current, err := m.CurrentExercise(ctx)
	require.NoError(t, err)
	assert.Equal(t, ex, current)

	_, err = m.SelectExercise(ctx, "missing")
	assert.ErrorIs(t, err, exercise.ErrNotFound)
}

func TestManager_SaveCustomExercise(t *testing.T) {
	tests := []struct {
		name     string
		exercise exercise.Exercise
		wantCode string
	}{
		{
			name:     "Accepted",
			exercise: exercise.Exercise{Title: "Mine", Inhale: 5, Hold1: 2, Exhale: 6, Hold2: 0},
		},
		{
			name:     "Out of range",
			exercise: exercise.Exercise{Title: "Long", Inhale: 30, Exhale: 4},
			wantCode: "phase_out_of_range",
		},
		{
			name:     "Negative",
			exercise: exercise.Exercise{Title: "Bad", Inhale: -1, Exhale: 4},
			wantCode: "invalid_duration",
		},
		{
			name:     "Missing title",
			exercise: exercise.Exercise{Inhale: 4, Exhale: 4},
			wantCode: "title_invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			m, _ := newTestManager(t, store)

			saved, err := m.SaveCustomExercise(context.Background(), tt.exercise)
			if tt.wantCode != "" {
				var rejected *RejectedError
				require.True(t, errors.As(err, &rejected), "err=%v", err)
				assert.Equal(t, tt.wantCode, rejected.Code)
				list, _ := store.ListExercises(context.Background())
				assert.Len(t, list, len(exercise.Defaults()))
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, saved.ID)
			assert.True(t, saved.Custom)

			list, err := m.ListExercises(context.Background())
			require.NoError(t, err)
			assert.Equal(t, saved, list[len(list)-1])
		})
	}
}

func TestManager_UpdateSettings(t *testing.T) {
	m, stream := newTestManager(t, newMemoryStore())

	got, err := m.UpdateSettings(context.Background(), func(s *settings.Settings) {
		s.SoundPack = settings.PackSine
	})
	require.NoError(t, err)
	assert.Equal(t, settings.PackSine, got.SoundPack)
	assert.Equal(t, settings.PackSine, m.Settings().SoundPack)
	assert.True(t, contains(stream.types(), notification.TypeSettings))

	_, err = m.UpdateSettings(context.Background(), func(s *settings.Settings) {
		s.SoundPack = "kazoo"
	})
	assert.ErrorIs(t, err, settings.ErrUnknownSoundPack)
}

func TestManager_WithoutStore(t *testing.T) {
	m, _ := newTestManager(t, nil)

	list, err := m.ListExercises(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exercise.Defaults(), list)

	status, err := m.Open(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, exercise.Fallback, status.Exercise)
}
