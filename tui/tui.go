// Package tui shows a live preview of the grid next to the session
// statistics and lets the user pause playback.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/internal/errors"
	"github.com/srlehn/ledstream/pacer"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/preview"
)

const refresh = 50 * time.Millisecond

// Session is the part of *player.Player the interface controls.
type Session interface {
	Toggle(ctx context.Context) error
	State() pacer.State
	Stats() player.Stats
	Done() <-chan struct{}
}

type keyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "pause/resume"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Latest holds the most recent frame for the preview. Its Observe method is
// meant for player.AddObserver.
type Latest struct{ frame atomic.Pointer[frame.Frame] }

// Observe stores a copy of f.
func (l *Latest) Observe(f *frame.Frame) { l.frame.Store(f.Clone()) }

func (l *Latest) Load() *frame.Frame { return l.frame.Load() }

type tickMsg time.Time

type doneMsg struct{}

var _ tea.Model = (*Model)(nil)

type Model struct {
	ctx      context.Context
	session  Session
	latest   *Latest
	renderer *preview.Renderer
	title    string
	keys     keyMap
	err      error
	style    lipgloss.Style
	help     lipgloss.Style
}

func New(ctx context.Context, s Session, latest *Latest, renderer *preview.Renderer, title string) *Model {
	return &Model{
		ctx:      ctx,
		session:  s,
		latest:   latest,
		renderer: renderer,
		title:    title,
		keys:     keys,
		style:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(0, 1),
		help:     lipgloss.NewStyle().Faint(true),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitDone() tea.Cmd {
	done := m.session.Done()
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m *Model) Init() tea.Cmd { return tea.Batch(tick(), m.waitDone()) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.err = m.session.Toggle(m.ctx)
			return m, nil
		}
	case tickMsg:
		return m, tick()
	case doneMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) View() string {
	var grid string
	if f := m.latest.Load(); f != nil {
		grid = m.renderer.Render(f)
	}
	st := m.session.Stats()
	stats := fmt.Sprintf(
		"%s\n\nstate   %s\nframe   %d\nlag     %s\nbuffer  %d/%d\nresumes %d\noverrun %d\nbytes   %d",
		m.title,
		m.session.State(),
		st.Pacer.PlayHead,
		st.Pacer.Lag.Round(time.Millisecond),
		st.Buffer.Len, st.Buffer.TargetSize,
		st.Flow.Resumes,
		st.Flow.Overrun,
		st.Bytes,
	)
	if m.err != nil {
		stats += "\n\n" + m.err.Error()
	}
	help := m.help.Render(fmt.Sprintf(`%s %s  %s %s`,
		m.keys.Toggle.Help().Key, m.keys.Toggle.Help().Desc,
		m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc,
	))
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.style.Render(grid), m.style.Render(stats)),
		help,
	)
}

// Run shows the interface until the session ends or the user quits.
func Run(ctx context.Context, s Session, latest *Latest, g frame.Grid, title string, in io.Reader, out io.Writer) error {
	if s == nil || latest == nil {
		return errors.NilParam(nil)
	}
	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out == nil {
		out = os.Stdout
	}
	opts = append(opts, tea.WithOutput(out))
	prog := tea.NewProgram(New(ctx, s, latest, preview.New(g, out), title), opts...)
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.New(err)
	}
	return nil
}
