package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aurorachat/internal/models"
	"aurorachat/internal/widget"
)

const (
	defaultWindowWidth  = 80
	defaultWindowHeight = 30
	inputCharLimit      = 2000
	chromeHeight        = 6
	minContentHeight    = 5
	maxSuggestions      = 9
)

// DefaultSuggestions are the quick replies shown under the log.
var DefaultSuggestions = []string{
	"What can you do?",
	"What tech stack powers this chatbot?",
	"Tell me a joke",
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// ChatProgram runs the terminal front-end of a widget.
type ChatProgram struct {
	model chatModel
}

func NewChatProgram(ctx context.Context, w *widget.Widget, suggestions []string) *ChatProgram {
	return &ChatProgram{model: initialModel(ctx, w, suggestions)}
}

func (p *ChatProgram) Run() error {
	program := tea.NewProgram(p.model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type chatModel struct {
	ctx         context.Context
	widget      *widget.Widget
	suggestions []string

	input       textinput.Model
	contentView viewport.Model

	state  widget.State
	status string

	width  int
	height int
}

func initialModel(ctx context.Context, w *widget.Widget, suggestions []string) chatModel {
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = inputCharLimit
	input.Width = defaultWindowWidth - 3
	input.Prompt = "› "

	m := chatModel{
		ctx:         ctx,
		widget:      w,
		suggestions: suggestions,
		input:       input,
		contentView: viewport.New(defaultWindowWidth, defaultWindowHeight-chromeHeight),
		state:       w.State(),
		width:       defaultWindowWidth,
		height:      defaultWindowHeight,
	}
	m.refreshContent()
	return m
}

type (
	changedMsg  struct{}
	sendDoneMsg struct{ err error }
	themeErrMsg struct{ err error }
)

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.widget.Changes()))
}

// waitForChange turns the widget's change signal into a tea message.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, handled := m.handleKeyPress(msg)
		cmds = append(cmds, cmd)
		if handled {
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.handleWindowResize(msg)

	case changedMsg:
		m.syncState()
		cmds = append(cmds, waitForChange(m.widget.Changes()))

	case sendDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, widget.ErrEmptyMessage) {
			m.status = msg.err.Error()
		}

	case themeErrMsg:
		m.status = fmt.Sprintf("theme not saved: %v", msg.err)
	}

	if m.state.Open {
		var cmd tea.Cmd
		if key, ok := msg.(tea.KeyMsg); ok && isScrollKey(key.String()) {
			m.contentView, cmd = m.contentView.Update(msg)
		} else {
			m.input, cmd = m.input.Update(msg)
		}
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleKeyPress reports whether the key was consumed by a widget action.
func (m *chatModel) handleKeyPress(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return tea.Quit, true
	case "ctrl+o":
		m.widget.Toggle(m.ctx)
		m.syncState()
		return nil, true
	case "esc":
		m.widget.Close()
		m.syncState()
		return nil, true
	case "ctrl+t":
		return m.toggleTheme(), true
	case "ctrl+l":
		m.widget.Clear()
		m.syncState()
		return nil, true
	case "enter":
		if !m.state.Open {
			return nil, true
		}
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return nil, true
		}
		m.input.Reset()
		return m.send(text, m.widget.Send), true
	}

	if strings.HasPrefix(key, "alt+") && len(key) == len("alt+1") {
		idx := int(key[len(key)-1] - '1')
		if idx >= 0 && idx < len(m.suggestions) {
			cmd := m.send(m.suggestions[idx], m.widget.Suggest)
			m.syncState()
			return cmd, true
		}
	}
	return nil, false
}

func isScrollKey(key string) bool {
	switch key {
	case "up", "down", "pgup", "pgdown":
		return true
	}
	return false
}

func (m *chatModel) send(text string, fn func(context.Context, string) (models.Message, error)) tea.Cmd {
	m.status = ""
	ctx := m.ctx
	return func() tea.Msg {
		_, err := fn(ctx, text)
		return sendDoneMsg{err: err}
	}
}

func (m *chatModel) toggleTheme() tea.Cmd {
	_, err := m.widget.ToggleTheme()
	m.syncState()
	if err != nil {
		return func() tea.Msg { return themeErrMsg{err: err} }
	}
	return nil
}

func (m *chatModel) syncState() {
	m.state = m.widget.State()
	if m.state.Open {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.refreshContent()
}

func (m *chatModel) handleWindowResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	contentHeight := msg.Height - chromeHeight
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}
	m.contentView.Width = msg.Width
	m.contentView.Height = contentHeight
	m.input.Width = msg.Width - 3
	m.refreshContent()
}

func (m *chatModel) refreshContent() {
	rows := widget.Renderer{Width: m.width}.Rows(m.state)
	m.contentView.SetContent(strings.Join(rows, "\n\n"))
	m.contentView.GotoBottom()
}

func (m chatModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Aurora Bot"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  theme: %s", m.state.Theme)))
	b.WriteString("\n")

	if !m.state.Open {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Chat is closed. Press ctrl+o to open it, ctrl+c to quit."))
		b.WriteString("\n")
		return widget.Screen(m.state.Theme).Width(m.width).Render(b.String())
	}

	b.WriteString(m.contentView.View())
	b.WriteString("\n")
	if len(m.suggestions) > 0 {
		chips := make([]string, 0, len(m.suggestions))
		for i, s := range m.suggestions {
			chips = append(chips, fmt.Sprintf("[alt+%d] %s", i+1, s))
		}
		b.WriteString(dimStyle.Render(strings.Join(chips, "  ")))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter send · ctrl+t theme · ctrl+l clear · esc close · ctrl+c quit"))
	return widget.Screen(m.state.Theme).Width(m.width).Render(b.String())
}
