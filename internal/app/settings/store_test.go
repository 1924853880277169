package settings

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	saved   *Settings
	saveErr error
}

func (p *memPersister) LoadSettings(_ context.Context) (Settings, bool, error) {
	if p.saved == nil {
		return Settings{}, false, nil
	}
	return *p.saved, true, nil
}

func (p *memPersister) SaveSettings(_ context.Context, s Settings) error {
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved = &s
	return nil
}

func TestStore_LoadWithoutPersistedKeepsInitial(t *testing.T) {
	s := NewStore(Default(), &memPersister{})
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, Default(), s.Current())
}

func TestStore_LoadPersisted(t *testing.T) {
	persisted := Settings{SoundEnabled: false, HapticsEnabled: true, SoundPack: PackSine}
	s := NewStore(Default(), &memPersister{saved: &persisted})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, persisted, s.Current())
	assert.False(t, s.SoundEnabled())
	assert.True(t, s.HapticsEnabled())
	assert.False(t, s.AnimationsEnabled())
}

func TestStore_UpdatePersistsAndNotifies(t *testing.T) {
	p := &memPersister{}
	s := NewStore(Default(), p)

	var notified []Settings
	s.OnChange(func(v Settings) { notified = append(notified, v) })

	got, err := s.Update(context.Background(), func(v *Settings) {
		v.SoundPack = PackSynth
		v.HapticsEnabled = false
	})
	require.NoError(t, err)

	assert.Equal(t, PackSynth, got.SoundPack)
	assert.False(t, s.HapticsEnabled())
	require.NotNil(t, p.saved)
	assert.Equal(t, got, *p.saved)
	require.Len(t, notified, 1)
	assert.Equal(t, got, notified[0])
}

func TestStore_UpdateFailureKeepsCurrent(t *testing.T) {
	tests := []struct {
		name      string
		persister *memPersister
		mutate    func(*Settings)
		wantErr   error
	}{
		{
			name:      "Persist error",
			persister: &memPersister{saveErr: errors.New("disk full")},
			mutate:    func(v *Settings) { v.SoundEnabled = false },
		},
		{
			name:      "Unknown sound pack",
			persister: &memPersister{},
			mutate:    func(v *Settings) { v.SoundPack = "kazoo" },
			wantErr:   ErrUnknownSoundPack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Default(), tt.persister)
			_, err := s.Update(context.Background(), tt.mutate)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
			assert.Equal(t, Default(), s.Current())
		})
	}
}

func TestStore_InMemory(t *testing.T) {
	s := NewStore(Default(), nil)
	require.NoError(t, s.Load(context.Background()))

	_, err := s.Update(context.Background(), func(v *Settings) { v.SoundPack = PackOff })
	require.NoError(t, err)
	assert.False(t, s.Current().SoundAudible())
}

func TestParseSoundPack(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SoundPack
		wantErr bool
	}{
		{name: "Guzheng", input: "guzheng", want: PackGuzheng},
		{name: "Case and space", input: " Sine ", want: PackSine},
		{name: "Off", input: "off", want: PackOff},
		{name: "Unknown", input: "bells", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSoundPack(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSoundPack)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_SoundAudible(t *testing.T) {
	assert.True(t, Default().SoundAudible())
	assert.False(t, Settings{SoundEnabled: false, SoundPack: PackSine}.SoundAudible())
	assert.False(t, Settings{SoundEnabled: true, SoundPack: PackOff}.SoundAudible())
}
