package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"flirtbot/internal/domain"
)

const askTimeout = 30 * time.Second

type speaker int

const (
	you speaker = iota
	bot
)

type turn struct {
	who      speaker
	language string
	text     string
	missed   bool
}

// replyMsg carries the answer to one question back into Update.
type replyMsg struct {
	question string
	language string
	line     string
	ok       bool
}

// Model is the Bubble Tea model for the terminal chat.
type Model struct {
	responder  domain.Responder
	languages  []string
	langIdx    int
	input      textinput.Model
	viewport   viewport.Model
	transcript []turn
	status     string
	waiting    bool
	ready      bool
}

// New creates a chat model. The first language is selected initially.
func New(responder domain.Responder) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Say something and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{responder: responder, languages: responder.Languages(), input: ti, viewport: vp}
	m.status = m.idleStatus()
	return m
}

// Language returns the currently selected language, or "" when none are served.
func (m Model) Language() string {
	if len(m.languages) == 0 {
		return ""
	}
	return m.languages[m.langIdx]
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header + status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case replyMsg:
		m.waiting = false
		m.transcript = append(m.transcript, turn{who: bot, language: msg.language, text: msg.line, missed: !msg.ok})
		m.status = m.idleStatus()
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if len(m.languages) > 0 {
				m.langIdx = (m.langIdx + 1) % len(m.languages)
				m.status = m.idleStatus()
			}
			return m, nil
		case "shift+tab":
			if len(m.languages) > 0 {
				m.langIdx = (m.langIdx - 1 + len(m.languages)) % len(m.languages)
				m.status = m.idleStatus()
			}
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			lang := m.Language()
			m.transcript = append(m.transcript, turn{who: you, language: lang, text: q})
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q, lang)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question, language string) tea.Cmd {
	responder := m.responder
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		line, ok := responder.Respond(ctx, question, language)
		return replyMsg{question: question, language: language, line: line, ok: ok}
	}
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Flirtbot")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) idleStatus() string {
	if len(m.languages) == 0 {
		return "No languages loaded."
	}
	return fmt.Sprintf("Language: %s (Tab to switch, Esc to quit)", m.Language())
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "Say hi."
	}
	var b strings.Builder
	var lastQuestion string
	for i, t := range m.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		switch t.who {
		case you:
			lastQuestion = t.text
			b.WriteString(youStyle.Render("You") + " [" + t.language + "]: " + t.text)
		case bot:
			text := highlightShared(t.text, lastQuestion)
			if t.missed {
				text = missStyle.Render("no response")
			}
			b.WriteString(botStyle.Render("Bot") + ": " + text)
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	youStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	missStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// highlightShared emphasises the words of text that also occur in question.
func highlightShared(text, question string) string {
	q := toTokenSet(question)
	if len(q) == 0 {
		return text
	}
	return unicodeWordRe.ReplaceAllStringFunc(text, func(w string) string {
		if _, ok := q[strings.ToLower(w)]; ok {
			return highlightStyle.Render(w)
		}
		return w
	})
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}
