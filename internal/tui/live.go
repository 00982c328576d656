// Package tui is the interactive terminal viewer: it steps a model on a
// timer and draws the particle cloud after every committed step.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/simmap"
	"github.com/tidewatch/driftsim/internal/viz"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

// Live is the bubbletea model for a running simulation.
type Live struct {
	model *sim.Model
	frame *viz.Frame
	name  string

	interval time.Duration
	paused   bool
	done     bool
	err      error

	lastReport sim.Report
	width      int
	height     int
}

// NewLive wraps a built model for interactive viewing over the given
// extent.
func NewLive(name string, m *sim.Model, extent simmap.Rect) *Live {
	frame := viz.NewFrame(extent, 60, 16)
	if mask, ok := m.Map().(*simmap.MaskMap); ok {
		frame.SetLand(mask.Land)
	}
	return &Live{
		model:    m,
		frame:    frame,
		name:     name,
		interval: 100 * time.Millisecond,
	}
}

// Run starts the viewer and blocks until it quits.
func (l *Live) Run() error {
	_, err := tea.NewProgram(l, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	return l.err
}

func (l *Live) tick() tea.Cmd {
	return tea.Tick(l.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (l *Live) Init() tea.Cmd { return l.tick() }

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			l.paused = !l.paused
		case "r":
			l.model.Rewind()
			l.done = false
			l.err = nil
			l.lastReport = nil
		case "+":
			if l.interval > 25*time.Millisecond {
				l.interval /= 2
			}
		case "-":
			l.interval *= 2
		}
		return l, nil

	case tea.WindowSizeMsg:
		l.width = msg.Width
		l.height = msg.Height
		return l, nil

	case tickMsg:
		if !l.paused && !l.done && l.err == nil {
			report, err := l.model.Step()
			switch {
			case errors.Is(err, sim.ErrRunComplete):
				l.done = true
			case err != nil:
				l.err = err
				return l, tea.Quit
			default:
				l.lastReport = report
			}
		}
		return l, l.tick()
	}
	return l, nil
}

func (l *Live) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(l.name))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  step %d/%d  %s",
		l.model.CurrentTimeStep()+1, l.model.NumTimeSteps(),
		l.model.ModelTime().Format("2006-01-02 15:04"))))
	b.WriteByte('\n')

	b.WriteString(l.frame.Render("", l.model.Spills().Items()...))
	b.WriteByte('\n')

	switch {
	case l.err != nil:
		b.WriteString(errStyle.Render("error: " + l.err.Error()))
	case l.done:
		b.WriteString(statusStyle.Render("run complete"))
	case l.paused:
		b.WriteString(statusStyle.Render("paused"))
	default:
		b.WriteString(statusStyle.Render("running"))
	}
	b.WriteByte('\n')
	b.WriteString(dimStyle.Render("space pause · r rewind · +/- speed · q quit"))
	return b.String()
}
