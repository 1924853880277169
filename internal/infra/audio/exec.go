// Package audio provides cue clip backends.
package audio

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// ErrClipNotReady is returned when the clip file is missing or unreadable.
var ErrClipNotReady = errors.New("clip not ready")

// ExecConfig configures the external player command.
// Args may contain the placeholders {file} and {volume}.
type ExecConfig struct {
	Command string   `yaml:"command" mapstructure:"command" default:"ffplay" validate:"required"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

var defaultExecArgs = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", "{volume}", "{file}"}

// ParseExecConfig decodes backend settings into an ExecConfig.
func ParseExecConfig(settings map[string]any) (ExecConfig, error) {
	var cfg ExecConfig
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to set defaults")
	}
	if len(cfg.Args) == 0 {
		cfg.Args = defaultExecArgs
	}
	zlog.Debug().Msgf("audio: exec backend config: %+v", cfg)
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, errors.Wrap(err, "validation failed")
	}
	return cfg, nil
}

// ExecClip plays a file by running an external player process.
// Pausing terminates the process, so playback always restarts from the beginning.
type ExecClip struct {
	mu     sync.Mutex
	config ExecConfig
	file   string
	volume float64

	cmd  *exec.Cmd
	done chan struct{}
}

// NewExecClip creates a clip for file. The file must exist.
func NewExecClip(config ExecConfig, file string) (*ExecClip, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, errors.Wrapf(ErrClipNotReady, "file=%s: %v", file, err)
	}
	if info.IsDir() {
		return nil, errors.Wrapf(ErrClipNotReady, "file=%s: is a directory", file)
	}
	return &ExecClip{
		config: config,
		file:   file,
		volume: 1,
	}, nil
}

// SetVolume sets the volume used by the next Play, in the range 0..1.
func (c *ExecClip) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return errors.Newf("volume out of range: %v", volume)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = volume
	return nil
}

// SeekToStart stops playback so the next Play starts from the beginning.
func (c *ExecClip) SeekToStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	return nil
}

// Play starts the player process and returns without waiting for it.
func (c *ExecClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	cmd := exec.Command(c.config.Command, c.argsLocked()...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start player: command=%s", c.config.Command)
	}

	done := make(chan struct{})
	c.cmd = cmd
	c.done = done
	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil {
			zlog.Debug().Msgf("audio: player exited: file=%s err=%v", c.file, err)
		}
	}()
	return nil
}

// Pause terminates the player process.
func (c *ExecClip) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	return nil
}

// IsPlaying reports whether the player process is still running.
func (c *ExecClip) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playingLocked()
}

// Close terminates playback.
func (c *ExecClip) Close() error {
	return c.Pause()
}

func (c *ExecClip) playingLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// stopLocked kills a running player and waits for it to exit.
// Must be called with lock held.
func (c *ExecClip) stopLocked() {
	if c.cmd == nil {
		return
	}
	if c.playingLocked() && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	<-c.done
	c.cmd = nil
	c.done = nil
}

func (c *ExecClip) argsLocked() []string {
	volume := strconv.Itoa(int(c.volume * 100))
	args := make([]string, len(c.config.Args))
	for i, a := range c.config.Args {
		a = strings.ReplaceAll(a, "{file}", c.file)
		a = strings.ReplaceAll(a, "{volume}", volume)
		args[i] = a
	}
	return args
}
