// Package audio plays the inhale and exhale cue clips of the active sound pack.
package audio

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/breathbox/internal/app/settings"
)

// DefaultVolume is the cue clip volume.
const DefaultVolume = 0.3

// Clip is a single short audio clip. Play must not block until the clip ends.
// Calls on a clip whose resource is not ready return an error.
type Clip interface {
	SeekToStart() error
	Play() error
	Pause() error
	IsPlaying() bool
}

// VolumeSetter is implemented by clips that support volume control.
type VolumeSetter interface {
	SetVolume(volume float64) error
}

// Source resolves the clip pair of a sound pack.
type Source interface {
	Resolve(pack settings.SoundPack) (inhale Clip, exhale Clip, err error)
}

// Channel identifies a cue channel.
type Channel int

const (
	ChannelInhale Channel = iota
	ChannelExhale
)

// String returns the string representation of the channel.
func (c Channel) String() string {
	switch c {
	case ChannelInhale:
		return "inhale"
	case ChannelExhale:
		return "exhale"
	default:
		return "unknown"
	}
}

// Driver plays phase cues. Failures are logged and never returned, so a
// missing or broken clip only silences the cue.
type Driver struct {
	mu       sync.Mutex
	source   Source
	settings settings.Reader
	volume   float64

	// Resolved pack
	pack   settings.SoundPack
	inhale Clip
	exhale Clip
}

// NewDriver creates a cue driver. Settings are read on every call.
func NewDriver(source Source, reader settings.Reader, volume float64) *Driver {
	if volume < 0 || volume > 1 {
		volume = DefaultVolume
	}
	return &Driver{
		source:   source,
		settings: reader,
		volume:   volume,
	}
}

// PlayInhaleSound rewinds and plays the inhale cue.
func (d *Driver) PlayInhaleSound() {
	d.play(ChannelInhale)
}

// PlayExhaleSound rewinds and plays the exhale cue.
func (d *Driver) PlayExhaleSound() {
	d.play(ChannelExhale)
}

// StopSound pauses any playing cue. Idempotent.
func (d *Driver) StopSound() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range []Clip{d.inhale, d.exhale} {
		if c == nil || !c.IsPlaying() {
			continue
		}
		if err := c.Pause(); err != nil {
			zlog.Debug().Msgf("audio: pause failed: %v", err)
		}
	}
}

// ForceStop pauses and rewinds both cues.
func (d *Driver) ForceStop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.haltLocked()
}

// Close halts the cues and releases resolved clips.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseLocked()
}

func (d *Driver) play(ch Channel) {
	s := d.settings.Current()
	if !s.SoundAudible() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.resolveLocked(s.SoundPack); err != nil {
		zlog.Warn().Msgf("audio: cue skipped: channel=%s pack=%s err=%v", ch, s.SoundPack, err)
		return
	}

	clip := d.inhale
	if ch == ChannelExhale {
		clip = d.exhale
	}
	if clip == nil {
		zlog.Warn().Msgf("audio: cue skipped: channel=%s pack=%s err=clip not ready", ch, s.SoundPack)
		return
	}

	if err := clip.SeekToStart(); err != nil {
		zlog.Warn().Msgf("audio: seek failed: channel=%s err=%v", ch, err)
	}
	if err := clip.Play(); err != nil {
		zlog.Warn().Msgf("audio: play failed: channel=%s pack=%s err=%v", ch, s.SoundPack, err)
		return
	}
	zlog.Debug().Msgf("audio: cue played: channel=%s pack=%s", ch, s.SoundPack)
}

// resolveLocked makes sure the clips of pack are loaded.
// Must be called with lock held.
func (d *Driver) resolveLocked(pack settings.SoundPack) error {
	if d.pack == pack && (d.inhale != nil || d.exhale != nil) {
		return nil
	}

	d.releaseLocked()

	inhale, exhale, err := d.source.Resolve(pack)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve sound pack %s", pack)
	}

	for _, c := range []Clip{inhale, exhale} {
		if v, ok := c.(VolumeSetter); ok {
			if err := v.SetVolume(d.volume); err != nil {
				zlog.Debug().Msgf("audio: set volume failed: %v", err)
			}
		}
	}

	d.pack = pack
	d.inhale = inhale
	d.exhale = exhale
	zlog.Debug().Msgf("audio: sound pack resolved: pack=%s volume=%.2f", pack, d.volume)
	return nil
}

func (d *Driver) haltLocked() {
	for _, c := range []Clip{d.inhale, d.exhale} {
		if c == nil {
			continue
		}
		if c.IsPlaying() {
			if err := c.Pause(); err != nil {
				zlog.Debug().Msgf("audio: pause failed: %v", err)
			}
		}
		if err := c.SeekToStart(); err != nil {
			zlog.Debug().Msgf("audio: rewind failed: %v", err)
		}
	}
}

func (d *Driver) releaseLocked() {
	d.haltLocked()
	for _, c := range []Clip{d.inhale, d.exhale} {
		if closer, ok := c.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	d.pack = ""
	d.inhale = nil
	d.exhale = nil
}
