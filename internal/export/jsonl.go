package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONLExporter writes one message per line. Each line carries the
// session id so files can be concatenated.
type JSONLExporter struct{}

type jsonlLine struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (e *JSONLExporter) Export(t *Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, m := range t.Messages {
		line := jsonlLine{SessionID: t.SessionID, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string { return "jsonl" }
