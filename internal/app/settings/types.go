// Package settings provides the user settings read by the cue drivers.
package settings

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrUnknownSoundPack = errors.New("unknown sound pack")

// SoundPack names a pair of inhale/exhale clips.
type SoundPack string

const (
	PackGuzheng SoundPack = "guzheng"
	PackSine    SoundPack = "sine"
	PackSynth   SoundPack = "synth"
	PackOff     SoundPack = "off" // No cue audio
)

// Packs returns the built-in sound packs in display order.
func Packs() []SoundPack {
	return []SoundPack{PackGuzheng, PackSine, PackSynth, PackOff}
}

// ParseSoundPack parses a pack name.
func ParseSoundPack(name string) (SoundPack, error) {
	p := SoundPack(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Packs() {
		if p == known {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownSoundPack, "pack=%q", name)
}

// Settings are the user toggles shared by the breathing screen.
type Settings struct {
	SoundEnabled      bool      `json:"sound_enabled" yaml:"sound_enabled"`
	HapticsEnabled    bool      `json:"haptics_enabled" yaml:"haptics_enabled"`
	AnimationsEnabled bool      `json:"animations_enabled" yaml:"animations_enabled"`
	SoundPack         SoundPack `json:"sound_pack" yaml:"sound_pack"`
}

// Default returns the settings used before anything is persisted.
func Default() Settings {
	return Settings{
		SoundEnabled:      true,
		HapticsEnabled:    true,
		AnimationsEnabled: true,
		SoundPack:         PackGuzheng,
	}
}

// SoundAudible reports whether cue audio should play at all.
func (s Settings) SoundAudible() bool {
	return s.SoundEnabled && s.SoundPack != PackOff && s.SoundPack != ""
}
