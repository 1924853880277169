package settings

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Reader is a read-only view of the current settings.
// Drivers call it on every trigger so changes apply to the next cue.
type Reader interface {
	Current() Settings
}

// Persister loads and saves settings.
type Persister interface {
	LoadSettings(ctx context.Context) (Settings, bool, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Store holds the current settings with thread-safe access.
type Store struct {
	mu        sync.RWMutex
	current   Settings
	persister Persister
	listeners []func(Settings)
}

// NewStore creates a store with initial settings.
// persister may be nil for an in-memory store.
func NewStore(initial Settings, persister Persister) *Store {
	return &Store{
		current:   initial,
		persister: persister,
	}
}

// Load replaces the current settings with persisted ones, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	loaded, ok, err := s.persister.LoadSettings(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load settings")
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	zlog.Debug().Msgf("settings: loaded: %+v", loaded)
	return nil
}

// Current returns a copy of the current settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SoundEnabled returns the sound toggle.
func (s *Store) SoundEnabled() bool {
	return s.Current().SoundEnabled
}

// HapticsEnabled returns the haptics toggle.
func (s *Store) HapticsEnabled() bool {
	return s.Current().HapticsEnabled
}

// AnimationsEnabled returns the animations toggle.
func (s *Store) AnimationsEnabled() bool {
	return s.Current().AnimationsEnabled
}

// OnChange registers a listener called after every successful update.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update applies fn to a copy of the settings, persists the result and
// publishes it. The in-memory value is left unchanged if persisting fails.
func (s *Store) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	next := s.current
	fn(&next)

	if next.SoundPack != "" {
		if _, err := ParseSoundPack(string(next.SoundPack)); err != nil {
			s.mu.Unlock()
			return s.Current(), err
		}
	}

	if s.persister != nil {
		if err := s.persister.SaveSettings(ctx, next); err != nil {
			s.mu.Unlock()
			return s.Current(), errors.Wrap(err, "failed to save settings")
		}
	}

	s.current = next
	listeners := make([]func(Settings), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	zlog.Info().Msgf("settings: updated: sound=%v haptics=%v animations=%v pack=%s",
		next.SoundEnabled, next.HapticsEnabled, next.AnimationsEnabled, next.SoundPack)

	for _, l := range listeners {
		l(next)
	}
	return next, nil
}
