// Package export writes chat transcripts to files in several formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/hospital-console/internal/chat"
)

// Transcript is one conversation as handed to an Exporter.
type Transcript struct {
	SessionID string         `json:"session_id" yaml:"session_id"`
	Title     string         `json:"title,omitempty" yaml:"title,omitempty"`
	Messages  []chat.Message `json:"messages" yaml:"messages"`
}

// NewTranscript builds a transcript, taking the title from summary when
// one is known for the session.
func NewTranscript(id string, msgs []chat.Message, summaries ...chat.Summary) *Transcript {
	t := &Transcript{SessionID: id, Messages: msgs}
	if t.Messages == nil {
		t.Messages = []chat.Message{}
	}
	for _, s := range summaries {
		if s.SessionID == id {
			t.Title = s.Title
			break
		}
	}
	return t
}

// Exporter writes a transcript in one format.
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names.
var Formats = []string{"jsonl", "md", "yaml", "json"}

// NewExporter returns the exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// FileName is the default output name for a transcript.
func FileName(t *Transcript, e Exporter) string {
	return "conversation-" + chat.SafeName(t.SessionID) + "." + e.Extension()
}
