package testutil

import (
	"encoding/json"
	"testing"
)

// JSONUnmarshal unmarshals command or response output for testing
func JSONUnmarshal(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v\n%s", err, data)
	}
}
