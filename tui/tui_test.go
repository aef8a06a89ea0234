package tui_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlehn/ledstream/frame"
	"github.com/srlehn/ledstream/pacer"
	"github.com/srlehn/ledstream/player"
	"github.com/srlehn/ledstream/preview"
	"github.com/srlehn/ledstream/tui"
)

var grid = frame.Grid{Size: 2, BitDepth: 1}

type fakeSession struct {
	state   pacer.State
	toggles int
	done    chan struct{}
}

func (s *fakeSession) Toggle(context.Context) error {
	s.toggles++
	if s.state == pacer.Playing {
		s.state = pacer.Stopped
	} else {
		s.state = pacer.Playing
	}
	return nil
}

func (s *fakeSession) State() pacer.State { return s.state }

func (s *fakeSession) Stats() player.Stats {
	var st player.Stats
	st.Pacer.PlayHead = 42
	st.Buffer.Len, st.Buffer.TargetSize = 3, 50
	return st
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func newModel(s *fakeSession) (*tui.Model, *tui.Latest) {
	latest := &tui.Latest{}
	return tui.New(context.Background(), s, latest, preview.WithProfile(grid, termenv.Ascii), `clip.mp4`), latest
}

func TestToggleKey(t *testing.T) {
	s := &fakeSession{state: pacer.Playing, done: make(chan struct{})}
	m, _ := newModel(s)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, s.toggles)
	assert.Equal(t, pacer.Stopped, s.state)
	assert.Contains(t, m.View(), `state   stopped`)
}

func TestQuitKey(t *testing.T) {
	m, _ := newModel(&fakeSession{done: make(chan struct{})})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewShowsLatestFrame(t *testing.T) {
	m, latest := newModel(&fakeSession{done: make(chan struct{})})
	f := frame.New(grid)
	f.Samples = []uint8{1, 0, 0, 1}
	latest.Observe(f)
	// later changes are not visible
	f.Samples[1] = 1
	view := m.View()
	assert.Contains(t, view, `██  `)
	assert.Contains(t, view, `frame   42`)
	assert.Contains(t, view, `buffer  3/50`)
	assert.Contains(t, view, `clip.mp4`)
}
