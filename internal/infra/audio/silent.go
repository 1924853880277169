package audio

import (
	"sync"
	"time"
)

// SilentClip tracks playback state without producing sound.
// A playing clip stops on its own after its length has passed.
type SilentClip struct {
	mu      sync.Mutex
	length  time.Duration
	started time.Time
	playing bool
	volume  float64
}

// NewSilentClip creates a silent clip of the given length.
func NewSilentClip(length time.Duration) *SilentClip {
	return &SilentClip{length: length, volume: 1}
}

// SeekToStart rewinds the clip.
func (c *SilentClip) SeekToStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = time.Now()
	return nil
}

// Play starts the clip.
func (c *SilentClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = time.Now()
	c.playing = true
	return nil
}

// Pause stops the clip.
func (c *SilentClip) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.playing = false
	return nil
}

// IsPlaying reports whether the clip is within its length since Play.
func (c *SilentClip) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing && c.length > 0 && time.Since(c.started) >= c.length {
		c.playing = false
	}
	return c.playing
}

// SetVolume records the volume.
func (c *SilentClip) SetVolume(volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = volume
	return nil
}

// Volume returns the last volume set.
func (c *SilentClip) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.volume
}
