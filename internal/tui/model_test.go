package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponder struct {
	lines map[string]string
}

func (s stubResponder) Respond(_ context.Context, _ string, language string) (string, bool) {
	line, ok := s.lines[language]
	return line, ok
}

func (s stubResponder) Languages() []string { return []string{"english", "pakistani"} }

func newModel() Model {
	m := New(stubResponder{lines: map[string]string{"english": "Are you a magnet?"}})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func send(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	reply := cmd()
	next, _ = m.Update(reply)
	return next.(Model)
}

func TestTabCyclesLanguages(t *testing.T) {
	m := newModel()
	assert.Equal(t, "english", m.Language())
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, "pakistani", m.Language())
	assert.Contains(t, m.status, "pakistani")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, "english", m.Language())
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "pakistani", next.(Model).Language())
}

func TestEnterAsksAndRecordsReply(t *testing.T) {
	m := send(t, typeText(newModel(), "Hi there"))
	require.Len(t, m.transcript, 2)
	assert.Equal(t, turn{who: you, language: "english", text: "Hi there"}, m.transcript[0])
	assert.Equal(t, turn{who: bot, language: "english", text: "Are you a magnet?"}, m.transcript[1])
	assert.False(t, m.waiting)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "Are you a magnet?")
}

func TestMissingReplyIsShownAsNoResponse(t *testing.T) {
	next, _ := newModel().Update(tea.KeyMsg{Type: tea.KeyTab})
	m := send(t, typeText(next.(Model), "Hi"))
	require.Len(t, m.transcript, 2)
	assert.True(t, m.transcript[1].missed)
	assert.Contains(t, m.renderTranscript(), "no response")
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	m := typeText(newModel(), "   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, next.(Model).transcript)
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := newModel().Update(tea.KeyMsg{Type: k})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestViewBeforeResize(t *testing.T) {
	assert.Equal(t, "Loading...", New(stubResponder{}).View())
}

func TestHighlightShared(t *testing.T) {
	assert.Equal(t, "plain", highlightShared("plain", ""))
	out := highlightShared("Are you a magnet?", "YOU")
	assert.Contains(t, out, "magnet?")
	assert.Contains(t, out, "you")
}
