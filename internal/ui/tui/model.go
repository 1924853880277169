// Package tui renders the breathing screen in the terminal.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/osa030/breathbox/internal/app/breathing"
	"github.com/osa030/breathbox/internal/app/session"
	"github.com/osa030/breathbox/internal/app/session/state"
)

const (
	refreshInterval = 50 * time.Millisecond
	ringRows        = 15
)

// Screen is the breathing screen the model drives.
type Screen interface {
	Open(ctx context.Context, autoStart bool) (session.Status, error)
	Status() (session.Status, error)
	Toggle() error
	Touch() error
	StopAndExit(ctx context.Context) error
}

// Messages
type openedMsg struct {
	status session.Status
	err    error
}

type tickMsg time.Time

type exitedMsg struct {
	err error
}

// Model is the breathing screen Bubble Tea model
type Model struct {
	screen    Screen
	maxRadius float64

	// Terminal dimensions
	width  int
	height int

	status  session.Status
	ready   bool
	exiting bool
	err     error

	progress progress.Model
	help     help.Model
	keys     KeyMap
}

// NewModel creates the model. maxRadius is the expanded radius the ring is scaled against.
func NewModel(screen Screen, maxRadius float64) Model {
	return Model{
		screen:    screen,
		maxRadius: maxRadius,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(40)),
		help:      help.New(),
		keys:      DefaultKeyMap(),
	}
}

// Init opens the breathing screen with auto-start
func (m Model) Init() tea.Cmd {
	screen := m.screen
	return func() tea.Msg {
		status, err := screen.Open(context.Background(), true)
		return openedMsg{status: status, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) stopAndExit() tea.Cmd {
	screen := m.screen
	return func() tea.Msg {
		return exitedMsg{err: screen.StopAndExit(context.Background())}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(40, max(10, msg.Width-8))
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.status = msg.status
		m.ready = true
		return m, tick()

	case tickMsg:
		status, err := m.screen.Status()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				// Closed from elsewhere
				return m, tea.Quit
			}
			m.err = err
			return m, tick()
		}
		m.status = status
		return m, tick()

	case exitedMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoSession) {
			m.err = msg.err
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if !m.ready || m.exiting {
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Exit):
			m.exiting = true
			return m, m.stopAndExit()
		case key.Matches(msg, m.keys.Toggle):
			if err := m.screen.Toggle(); err != nil {
				m.err = err
			}
			_ = m.screen.Touch()
			return m, nil
		default:
			// Any other key reveals the controls
			_ = m.screen.Touch()
			return m, nil
		}
	}

	return m, nil
}

// View renders the breathing screen
func (m Model) View() string {
	if m.err != nil && !m.ready {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	if !m.ready {
		return "Preparing...\n"
	}

	st := m.status
	var sections []string

	sections = append(sections,
		TitleStyle.Render(st.Exercise.Title)+"  "+PatternStyle.Render(st.Exercise.Pattern()))

	sections = append(sections, renderRing(st.Shape.Radius, m.maxRadius, st.Shape.StrokeWidth, ringRows))

	label := phaseLabel(st)
	sections = append(sections, LabelStyle.Foreground(phaseColor(st.Cycle.Phase)).Render(label))

	if st.Cycle.Running && st.Cycle.Phase != breathing.PhaseIdle {
		sections = append(sections, CountdownStyle.Render(fmt.Sprintf("%d", st.Cycle.TimeLeft)))
	}

	sections = append(sections, m.progress.ViewAs(phaseProgress(st.Cycle)))

	if st.Controls == state.ControlsVisible || st.Intent == state.IntentPaused {
		sections = append(sections, HelpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	}

	if m.err != nil {
		sections = append(sections, ErrorStyle.Render(m.err.Error()))
	}

	body := lipgloss.JoinVertical(lipgloss.Center, sections...)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body + "\n"
}

func phaseLabel(st session.Status) string {
	switch {
	case st.Intent == state.IntentPaused:
		return "Paused"
	case st.Intent == state.IntentExited:
		return "Goodbye"
	case !st.Cycle.Running:
		return "Get ready"
	default:
		return st.Cycle.Phase.Label()
	}
}

func phaseColor(phase breathing.Phase) lipgloss.Color {
	switch phase {
	case breathing.PhaseInhale:
		return ColorInhale
	case breathing.PhaseExhale:
		return ColorExhale
	case breathing.PhaseHold1, breathing.PhaseHold2:
		return ColorHold
	default:
		return ColorMuted
	}
}

// phaseProgress is the elapsed fraction of the current phase.
func phaseProgress(cycle breathing.State) float64 {
	if !cycle.Running || cycle.PhaseDuration <= 0 {
		return 0
	}
	p := 1 - float64(cycle.Remaining)/float64(cycle.PhaseDuration)
	return min(1, max(0, p))
}

// Err returns the last error the screen reported.
func (m Model) Err() error {
	return m.err
}
