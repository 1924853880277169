package audio

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	cue "github.com/osa030/breathbox/internal/app/audio"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/infra/config"
)

// ErrPackNotConfigured is returned when a sound pack has no clip files.
var ErrPackNotConfigured = errors.New("sound pack not configured")

// silentClipLength approximates the length of a cue clip.
const silentClipLength = 1500 * time.Millisecond

// Source resolves sound packs into clips of the configured backend.
type Source struct {
	backend string
	exec    ExecConfig
	packs   map[string]config.ClipPairConfig
}

// NewSourceFromConfig creates a clip source from configuration.
func NewSourceFromConfig(cfg *config.Config) (*Source, error) {
	s := &Source{
		backend: cfg.Audio.Backend.Type,
		packs:   cfg.Audio.Packs,
	}

	switch cfg.Audio.Backend.Type {
	case "silent":
	case "exec":
		execCfg, err := ParseExecConfig(cfg.Audio.Backend.Settings)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create exec audio backend")
		}
		s.exec = execCfg
	default:
		return nil, errors.Newf("unsupported audio backend: %s", cfg.Audio.Backend.Type)
	}

	zlog.Info().Msgf("audio: backend ready: type=%s packs=%d", s.backend, len(s.packs))
	return s, nil
}

// Resolve returns the inhale and exhale clips of pack.
// The silent backend resolves any pack, including ones without files.
func (s *Source) Resolve(pack settings.SoundPack) (cue.Clip, cue.Clip, error) {
	if s.backend == "silent" {
		return NewSilentClip(silentClipLength), NewSilentClip(silentClipLength), nil
	}

	files, ok := s.packs[string(pack)]
	if !ok {
		return nil, nil, errors.Wrapf(ErrPackNotConfigured, "pack=%s", pack)
	}

	inhale, err := NewExecClip(s.exec, files.Inhale)
	if err != nil {
		return nil, nil, err
	}
	exhale, err := NewExecClip(s.exec, files.Exhale)
	if err != nil {
		return nil, nil, err
	}
	return inhale, exhale, nil
}
