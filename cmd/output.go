package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	columnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Output formats accepted by -o.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// render writes v as JSON or YAML, or calls table for the default format.
func render(w io.Writer, format string, v any, table func(w io.Writer)) error {
	switch strings.ToLower(format) {
	case "", outputTable:
		table(w)
		return nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %q (supported: table, json, yaml)", format)
	}
}

// writeTable prints a titled, aligned table.
func writeTable(w io.Writer, title string, columns []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No "+title+" found"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d %s", len(rows), title)))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	head := make([]string, len(columns))
	for i, c := range columns {
		head[i] = columnStyle.Render(c)
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// writeDetail prints label/value pairs for a single record.
func writeDetail(w io.Writer, title string, fields [][2]string) {
	if title != "" {
		fmt.Fprintln(w, headerStyle.Render(title))
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", labelStyle.Render(f[0]+":"), f[1])
	}
	_ = tw.Flush()
}

// renderMarkdown styles md for the terminal. Plain output is returned
// when plain is set or rendering fails.
func renderMarkdown(md string, plain bool) string {
	if plain || strings.TrimSpace(md) == "" {
		return md
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
