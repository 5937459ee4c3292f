package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// markdown renders assistant replies, keeping one renderer per wrap width.
type markdown struct {
	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

func newMarkdown() *markdown {
	return &markdown{renderers: make(map[int]*glamour.TermRenderer)}
}

// Render returns md styled for the terminal, or md unchanged when it
// cannot be rendered.
func (m *markdown) Render(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := m.renderer(width)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func (m *markdown) renderer(width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	m.renderers[width] = r
	return r, nil
}
