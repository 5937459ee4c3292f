package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/hospital-console/internal/chat"
)

// MarkdownExporter writes a readable transcript. Assistant replies are
// already markdown and pass through untouched; user text is escaped so
// it cannot open headings or emphasis.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	title := t.Title
	if title == "" {
		title = t.SessionID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation: %s\n\n", title)
	fmt.Fprintf(&b, "**Session:** %s  \n", t.SessionID)
	fmt.Fprintf(&b, "**Messages:** %d\n", len(t.Messages))

	for _, m := range t.Messages {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "### %s", speaker(m.Role))
		if m.Timestamp != "" {
			fmt.Fprintf(&b, " _(%s)_", m.Timestamp)
		}
		b.WriteString("\n\n")
		content := m.Content
		if m.Role != chat.RoleAssistant {
			content = escapeMarkdown(content)
		}
		b.WriteString(strings.TrimRight(content, "\n"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (e *MarkdownExporter) Extension() string { return "md" }

func speaker(role string) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		return "Assistant"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(role[:1]) + role[1:]
	}
}

// escapeMarkdown neutralises emphasis and leading heading markers
// outside fenced code blocks.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	fenced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fenced = !fenced
			continue
		}
		if fenced {
			continue
		}
		line = strings.ReplaceAll(line, "**", `\*\*`)
		line = strings.ReplaceAll(line, "__", `\_\_`)
		if strings.HasPrefix(line, "#") {
			line = `\` + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
