// Package tui is the interactive chat screen.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iksnae/hospital-console/internal/chat"
)

const chromeHeight = 5

type (
	sentMsg struct {
		draft *chat.Draft
		err   error
	}
	fetchedMsg struct {
		id  string
		err error
	}
	clearedMsg struct {
		id  string
		err error
	}
)

// Model is a bubbletea model over a chat state. Network calls run as
// commands; the text field is handed to them as a detached draft so that
// only Update touches the textinput.
//
// The draft carries the send transaction: chat.State.Send clears it and
// rolls it back on failure. The textinput only mirrors the draft, cleared
// on enter and refilled from the rolled back draft if still empty.
//
// A failure shown in the status line is dropped from the chat state.
type Model struct {
	ctx   context.Context
	state *chat.State
	md    *markdown

	input   textinput.Model
	vp      viewport.Model
	spin    spinner.Model
	ready   bool
	width   int
	busy    string
	status  string
	failure bool
}

// New returns a model bound to state. Calls made from the screen use ctx.
func New(ctx context.Context, state *chat.State) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about beds, wards, staff..."
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	return Model{ctx: ctx, state: state, md: newMarkdown(), input: ti, spin: sp}
}

func (m Model) Init() tea.Cmd {
	if id := m.state.Active(); id != "" {
		return tea.Batch(textinput.Blink, m.fetch(id))
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.vp = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sentMsg:
		m.busy = ""
		if msg.err != nil {
			if m.input.Value() == "" {
				m.input.SetValue(msg.draft.Value())
				m.input.CursorEnd()
			}
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus("", false)
		}
		m.refresh()
		return m, nil

	case fetchedMsg:
		m.busy = ""
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		}
		m.refresh()
		return m, nil

	case clearedMsg:
		m.busy = ""
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus("Cleared "+msg.id, false)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		if m.busy != "" {
			return m, nil
		}
		draft := chat.NewDraft(m.input.Value())
		m.input.SetValue("")
		m.busy = "Sending"
		return m, tea.Batch(m.spin.Tick, m.send(draft))

	case "ctrl+n":
		if m.busy != "" {
			return m, nil
		}
		m.state.Select("")
		m.setStatus("New conversation", false)
		m.refresh()
		return m, nil

	case "ctrl+r":
		id := m.state.Active()
		if m.busy != "" || id == "" {
			return m, nil
		}
		m.busy = "Loading"
		return m, tea.Batch(m.spin.Tick, m.fetch(id))

	case "ctrl+l":
		id := m.state.Active()
		if m.busy != "" || id == "" {
			return m, nil
		}
		m.busy = "Clearing"
		return m, tea.Batch(m.spin.Tick, m.clear(id))

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send(draft *chat.Draft) tea.Cmd {
	return func() tea.Msg {
		_, err := m.state.Send(m.ctx, draft)
		return sentMsg{draft: draft, err: err}
	}
}

func (m Model) fetch(id string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.state.FetchConversation(m.ctx, id)
		return fetchedMsg{id: id, err: err}
	}
}

func (m Model) clear(id string) tea.Cmd {
	return func() tea.Msg {
		return clearedMsg{id: id, err: m.state.Clear(m.ctx, id)}
	}
}

func (m *Model) setStatus(s string, failure bool) {
	m.status = s
	m.failure = failure
	if failure {
		m.state.ClearError()
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.transcript(m.vp.Width))
	m.vp.GotoBottom()
}

func (m Model) transcript(width int) string {
	msgs := m.state.ActiveMessages()
	if len(msgs) == 0 {
		return dimStyle.Render("No messages yet. Type a question and press enter.")
	}
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case chat.RoleAssistant:
			blocks = append(blocks, assistantStyle.Render("Assistant")+"\n"+m.md.Render(msg.Content, width-2))
		case chat.RoleUser:
			blocks = append(blocks, userStyle.Render("You")+"\n"+msg.Content)
		default:
			blocks = append(blocks, dimStyle.Render(msg.Role)+"\n"+msg.Content)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	session := m.state.Active()
	if session == "" {
		session = "new"
	}
	header := titleStyle.Render("Hospital assistant") + dimStyle.Render(fmt.Sprintf("  session %s", session))

	var status string
	switch {
	case m.busy != "":
		status = m.spin.View() + " " + m.busy + "..."
	case m.failure:
		status = errorStyle.Render(m.status)
	default:
		status = dimStyle.Render(m.status)
	}

	help := dimStyle.Render("enter send • ctrl+n new • ctrl+r reload • ctrl+l clear • esc quit")
	return strings.Join([]string{header, m.vp.View(), status, m.input.View(), help}, "\n")
}

// Run starts the chat screen and blocks until the user quits.
func Run(ctx context.Context, state *chat.State) error {
	_, err := tea.NewProgram(New(ctx, state), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
