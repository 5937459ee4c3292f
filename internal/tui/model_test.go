package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/testutil"
)

func newModel(t *testing.T, token string) (Model, *app.App) {
	t.Helper()
	sb := testutil.NewSandbox(t)
	a := app.New(sb.Client, token)
	t.Cleanup(func() { _ = a.Close() })

	m := New(context.Background(), a.Chat)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model), a
}

// run executes cmd and feeds every message it produces back into m.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
	case nil:
	default:
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func TestModel_SendShowsConversation(t *testing.T) {
	m, a := newModel(t, testutil.SandboxToken)
	m.input.SetValue("How many beds are free?")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.input.Value(), "field is cleared while sending")
	assert.Equal(t, "Sending", m.busy)

	m = run(t, m, cmd)
	assert.Empty(t, m.busy)
	assert.False(t, m.failure)
	require.NotEmpty(t, a.Chat.Active())
	assert.Len(t, a.Chat.ActiveMessages(), 2)

	view := m.View()
	assert.Contains(t, view, "How many beds are free?")
	assert.Contains(t, view, a.Chat.Active())
}

func TestModel_FailedSendRestoresInput(t *testing.T) {
	m, a := newModel(t, "wrong-token")
	m.input.SetValue("hello")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	assert.Equal(t, "hello", m.input.Value())
	assert.True(t, m.failure)
	assert.Contains(t, m.status, "invalid token")
	assert.Empty(t, a.Chat.Active())
	assert.NoError(t, a.Chat.Err(), "shown error is dropped from the state")
}

func TestModel_EmptySendIsRejected(t *testing.T) {
	m, _ := newModel(t, testutil.SandboxToken)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)

	assert.True(t, m.failure)
	assert.Contains(t, m.status, "message is required")
}

func TestModel_NewAndClear(t *testing.T) {
	m, a := newModel(t, testutil.SandboxToken)
	m.input.SetValue("hi there")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, m, cmd)
	id := a.Chat.Active()
	require.NotEmpty(t, id)

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, "Clearing", m.busy)
	m = run(t, m, cmd)
	assert.Empty(t, a.Chat.Active())
	assert.Equal(t, "Cleared "+id, m.status)

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Nil(t, cmd, "nothing to clear without a session")
	assert.Empty(t, m.busy)

	a.Chat.Select("some-session")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Empty(t, a.Chat.Active())
	assert.Equal(t, "New conversation", m.status)
}

func TestModel_BusyIgnoresEnter(t *testing.T) {
	m, _ := newModel(t, testutil.SandboxToken)
	m.busy = "Sending"
	m.input.SetValue("queued")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "queued", m.input.Value())
}

func TestModel_Quit(t *testing.T) {
	m, _ := newModel(t, testutil.SandboxToken)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ViewBeforeResize(t *testing.T) {
	sb := testutil.NewSandbox(t)
	a := app.New(sb.Client, sb.Token)
	m := New(context.Background(), a.Chat)
	assert.Equal(t, "Loading...", m.View())
}

func TestMarkdown_Render(t *testing.T) {
	md := newMarkdown()
	assert.Equal(t, "  ", md.Render("  ", 40))
	out := md.Render("There are **3** beds", 40)
	assert.Contains(t, out, "There are")
	assert.Len(t, md.renderers, 1)

	md.Render("again", 40)
	md.Render("narrow", 5)
	assert.Len(t, md.renderers, 2)
}
