package chat

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Shape is the variant a raw conversation payload matched.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeBare
	ShapeMessages
	ShapeConversationHistory
	ShapeHistory
	ShapeListKey
	ShapeFirstArray
)

func (s Shape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeMessages:
		return "messages"
	case ShapeConversationHistory:
		return "conversation_history"
	case ShapeHistory:
		return "history"
	case ShapeListKey:
		return "list_key"
	case ShapeFirstArray:
		return "first_array"
	default:
		return "unknown"
	}
}

// variant is one keyed object shape, checked in slice order.
type variant struct {
	shape Shape
	key   string
}

var messageVariants = []variant{
	{ShapeMessages, "messages"},
	{ShapeConversationHistory, "conversation_history"},
	{ShapeHistory, "history"},
}

var summaryVariants = []variant{
	{ShapeListKey, "conversations"},
	{ShapeListKey, "sessions"},
	{ShapeListKey, "items"},
	{ShapeListKey, "data"},
}

// field is one object member, kept in document order.
type field struct {
	key   string
	value json.RawMessage
}

// match resolves raw against the closed set of shapes: a bare array, one
// of variants, or the first array-valued member. Anything else is
// ShapeUnknown with no elements.
func match(raw []byte, variants []variant) (Shape, []json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ShapeUnknown, nil
	}
	switch raw[0] {
	case '[':
		if elems, ok := asArray(raw); ok {
			return ShapeBare, elems
		}
		return ShapeUnknown, nil
	case '{':
		fields, ok := objectFields(raw)
		if !ok {
			return ShapeUnknown, nil
		}
		for _, v := range variants {
			for _, f := range fields {
				if f.key != v.key {
					continue
				}
				if elems, ok := asArray(f.value); ok {
					return v.shape, elems
				}
			}
		}
		for _, f := range fields {
			if elems, ok := asArray(f.value); ok {
				return ShapeFirstArray, elems
			}
		}
	}
	return ShapeUnknown, nil
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

// objectFields walks a JSON object's members in document order.
func objectFields(raw []byte) ([]field, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		fields = append(fields, field{key: key, value: value})
	}
	return fields, true
}

// Classify reports which shape a raw conversation payload has.
func Classify(raw []byte) Shape {
	shape, _ := match(raw, messageVariants)
	return shape
}

// Normalize turns a conversation payload of any supported shape into a
// canonical message list. It never fails and never returns nil: payloads
// that match no shape yield an empty list, and elements that are not
// message objects are skipped.
func Normalize(raw []byte) []Message {
	_, elems := match(raw, messageVariants)
	out := make([]Message, 0, len(elems))
	for _, e := range elems {
		if m, ok := decodeMessage(e); ok {
			out = append(out, m)
		}
	}
	return out
}

// NormalizeHistory extracts the history a send response carries under one
// of the history keys. Other arrays in the response (suggestions, sources)
// are not history; ok is false when no history key is present.
func NormalizeHistory(raw []byte) (msgs []Message, ok bool) {
	shape, elems := match(raw, messageVariants)
	switch shape {
	case ShapeMessages, ShapeConversationHistory, ShapeHistory:
	default:
		return []Message{}, false
	}
	out := make([]Message, 0, len(elems))
	for _, e := range elems {
		if m, ok := decodeMessage(e); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// NormalizeSummaries does for session and conversation lists what
// Normalize does for message lists.
func NormalizeSummaries(raw []byte) []Summary {
	_, elems := match(raw, summaryVariants)
	out := make([]Summary, 0, len(elems))
	for _, e := range elems {
		if s, ok := decodeSummary(e); ok {
			out = append(out, s)
		}
	}
	return out
}

func decodeMessage(raw json.RawMessage) (Message, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Message{}, false
	}
	m := Message{
		ID:        scalar(obj, "id", "message_id", "messageId"),
		Role:      normalizeRole(scalar(obj, "role", "sender", "author")),
		Content:   scalar(obj, "content", "message", "text"),
		Timestamp: timestamp(obj, "timestamp", "created_at", "createdAt"),
	}
	if m.Role == "" && m.Content == "" {
		return Message{}, false
	}
	return m, true
}

func decodeSummary(raw json.RawMessage) (Summary, bool) {
	// Some backends list bare session ids.
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == "" {
			return Summary{}, false
		}
		return Summary{SessionID: id}, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Summary{}, false
	}
	s := Summary{
		SessionID:   scalar(obj, "session_id", "sessionId", "conversation_id", "id"),
		Title:       scalar(obj, "title", "name", "subject"),
		LastMessage: scalar(obj, "last_message", "lastMessage", "preview"),
		UpdatedAt:   timestamp(obj, "updated_at", "updatedAt", "last_activity", "created_at"),
	}
	if s.SessionID == "" {
		return Summary{}, false
	}
	if n, err := strconv.Atoi(scalar(obj, "message_count", "messageCount", "count")); err == nil {
		s.MessageCount = n
	} else if msgs, ok := asArray(obj["messages"]); ok {
		s.MessageCount = len(msgs)
	}
	return s, true
}

// scalar returns the first of keys holding a string or number.
func scalar(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// timestamp is scalar with epoch numbers rendered as RFC 3339.
func timestamp(obj map[string]json.RawMessage, keys ...string) string {
	v := scalar(obj, keys...)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return v
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC().Format(time.RFC3339)
	}
	return time.Unix(n, 0).UTC().Format(time.RFC3339)
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case "human":
		return RoleUser
	case "bot", "ai", "model", "chatbot":
		return RoleAssistant
	default:
		return role
	}
}
