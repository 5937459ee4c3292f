// Package chat holds the chatbot side of the console: the session
// normalizer, the chat state container, the two-phase input edit and the
// conversation PDF cache.
package chat

// Message roles as the backend reports them. Other values pass through.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a canonical message list.
type Message struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Role      string `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Summary describes one session or conversation in a list view.
type Summary struct {
	SessionID    string `json:"session_id" yaml:"session_id"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	LastMessage  string `json:"last_message,omitempty" yaml:"last_message,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
}

// Label returns the best human-readable name for the summary.
func (s Summary) Label() string {
	if s.Title != "" {
		return s.Title
	}
	if s.LastMessage != "" {
		return truncate(s.LastMessage, 60)
	}
	return s.SessionID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
