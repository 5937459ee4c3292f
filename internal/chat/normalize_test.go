package chat

import (
	"encoding/json"
	"testing"

	"github.com/iksnae/hospital-console/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Shape
	}{
		{"bare", `[{"role":"user","content":"hi"}]`, ShapeBare},
		{"messages", `{"messages":[{"role":"user","content":"hi"}]}`, ShapeMessages},
		{"conversation history", `{"session_id":"s1","conversation_history":[]}`, ShapeConversationHistory},
		{"history", `{"history":[]}`, ShapeHistory},
		{"first array", `{"id":"s1","turns":[{"role":"user","content":"hi"}]}`, ShapeFirstArray},
		{"empty object", `{}`, ShapeUnknown},
		{"null", `null`, ShapeUnknown},
		{"string", `"hello"`, ShapeUnknown},
		{"empty", ``, ShapeUnknown},
		{"malformed", `{"messages":[`, ShapeUnknown},
		{"priority", `{"history":[],"conversation_history":[],"messages":[]}`, ShapeMessages},
		{"non-array known key falls through", `{"messages":"none","history":[]}`, ShapeHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify([]byte(tt.raw))
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_AllShapes(t *testing.T) {
	msgs := `[{"role":"user","content":"Hello"},{"role":"assistant","content":"Hi there"}]`
	tests := []struct {
		name    string
		raw     string
		wantLen int
	}{
		{"bare", msgs, 2},
		{"messages", `{"messages":` + msgs + `}`, 2},
		{"conversation_history", `{"conversation_history":` + msgs + `}`, 2},
		{"history", `{"history":` + msgs + `}`, 2},
		{"other key", `{"other_key":` + msgs + `}`, 2},
		{"empty object", `{}`, 0},
		{"garbage", `<html>`, 0},
		{"scalars skipped", `[1,"two",null,{"role":"user","content":"x"}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]byte(tt.raw))
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestNormalize_KnownPayloadsAgree(t *testing.T) {
	want := []Message{
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi"},
	}
	for shape, raw := range testutil.ConversationPayloads {
		t.Run(shape, func(t *testing.T) {
			assert.Equal(t, want, Normalize([]byte(raw)))
		})
	}
}

func TestNormalizeHistory(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantOK  bool
	}{
		{"conversation_history", `{"session_id":"s1","conversation_history":[{"role":"user","content":"a"}]}`, 1, true},
		{"messages", `{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`, 2, true},
		{"empty history", `{"history":[]}`, 0, true},
		{"other array", `{"response":"Hi","suggestions":[{"text":"Show free beds"}]}`, 0, false},
		{"bare array", `[{"role":"user","content":"a"}]`, 0, false},
		{"no arrays", `{"response":"Hi"}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeHistory([]byte(tt.raw))
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalize_FirstArrayInDocumentOrder(t *testing.T) {
	raw := `{"zeta":[{"role":"user","content":"first"}],"alpha":[{"role":"user","content":"second"}]}`
	got := Normalize([]byte(raw))
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Content)
}

func TestNormalize_LenientFields(t *testing.T) {
	raw := `[
		{"message_id": 7, "sender": "Bot", "message": "Two beds free", "created_at": 1700000000},
		{"id": "m2", "author": "human", "text": "thanks", "timestamp": "2024-01-02T03:04:05Z"}
	]`
	got := Normalize([]byte(raw))
	require.Len(t, got, 2)

	assert.Equal(t, Message{ID: "7", Role: RoleAssistant, Content: "Two beds free", Timestamp: "2023-11-14T22:13:20Z"}, got[0])
	assert.Equal(t, Message{ID: "m2", Role: RoleUser, Content: "thanks", Timestamp: "2024-01-02T03:04:05Z"}, got[1])
}

func TestNormalize_MillisecondTimestamps(t *testing.T) {
	got := Normalize([]byte(`[{"role":"user","content":"x","timestamp":1700000000000}]`))
	require.Len(t, got, 1)
	assert.Equal(t, "2023-11-14T22:13:20Z", got[0].Timestamp)
}

func TestNormalize_Idempotent(t *testing.T) {
	canonical := []Message{
		{ID: "1", Role: RoleUser, Content: "How many beds are free?", Timestamp: "2024-05-01T10:00:00Z"},
		{Role: RoleAssistant, Content: "There are **4** free beds."},
		{ID: "3", Role: "tool", Content: "{}"},
	}
	raw, err := json.Marshal(canonical)
	require.NoError(t, err)

	once := Normalize(raw)
	assert.Equal(t, canonical, once)

	raw2, err := json.Marshal(once)
	require.NoError(t, err)
	assert.Equal(t, once, Normalize(raw2))
}

func TestNormalizeSummaries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Summary
	}{
		{
			name: "sessions key",
			raw:  `{"sessions":[{"session_id":"s1","title":"Beds","message_count":4}]}`,
			want: []Summary{{SessionID: "s1", Title: "Beds", MessageCount: 4}},
		},
		{
			name: "bare ids",
			raw:  `["s1","","s2"]`,
			want: []Summary{{SessionID: "s1"}, {SessionID: "s2"}},
		},
		{
			name: "conversations with counted messages",
			raw:  `{"conversations":[{"id":42,"name":"Ward A","messages":[{},{}],"updatedAt":"2024-01-01T00:00:00Z"}]}`,
			want: []Summary{{SessionID: "42", Title: "Ward A", MessageCount: 2, UpdatedAt: "2024-01-01T00:00:00Z"}},
		},
		{
			name: "entries without id skipped",
			raw:  `{"data":[{"title":"orphan"}]}`,
			want: []Summary{},
		},
		{
			name: "unknown",
			raw:  `{"total":0}`,
			want: []Summary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSummaries([]byte(tt.raw)))
		})
	}
}

func TestSummaryLabel(t *testing.T) {
	assert.Equal(t, "Title", Summary{SessionID: "s", Title: "Title"}.Label())
	assert.Equal(t, "s", Summary{SessionID: "s"}.Label())
	long := "a very long last message that keeps going well past the sixty rune limit"
	label := Summary{SessionID: "s", LastMessage: long}.Label()
	assert.Len(t, []rune(label), 60)
	assert.Contains(t, label, "...")
}
