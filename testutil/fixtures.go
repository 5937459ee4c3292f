package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ConversationPayloads holds the same two-message exchange in every shape
// the backend has been seen to send.
var ConversationPayloads = map[string]string{
	"bare":                 `[{"role":"user","content":"Hello"},{"role":"assistant","content":"Hi"}]`,
	"messages":             `{"messages":[{"role":"user","content":"Hello"},{"role":"assistant","content":"Hi"}]}`,
	"conversation_history": `{"session_id":"s1","conversation_history":[{"role":"user","content":"Hello"},{"role":"assistant","content":"Hi"}]}`,
	"history":              `{"history":[{"sender":"user","message":"Hello"},{"sender":"bot","message":"Hi"}]}`,
	"other_key":            `{"total":2,"turns":[{"role":"user","content":"Hello"},{"role":"assistant","content":"Hi"}]}`,
}

// SeedYAML is a small sandbox seed file.
const SeedYAML = `users:
  - username: ops
    role: admin
wards:
  - name: ICU
    capacity: 2
    beds:
      - number: I-1
        status: occupied
        patient: R. Roe
      - number: I-2
logs:
  - level: error
    source: test
    message: seeded failure
`

// WriteSeedFile writes SeedYAML into dir and returns its path.
func WriteSeedFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(SeedYAML), 0644); err != nil {
		t.Fatalf("Failed to write seed file: %v", err)
	}
	return path
}
