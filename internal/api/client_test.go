package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestClient_AuthMissing(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.ListUsers(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthMissing))
	assert.Equal(t, KindAuthMissing, KindOf(err))
	assert.False(t, called, "no request should be made without a token")
}

func TestClient_ValidationBeforeRequest(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"get user", func() error { _, err := c.GetUser(ctx, testToken, ""); return err }},
		{"update ward", func() error { _, err := c.UpdateWard(ctx, testToken, " ", WardInput{}); return err }},
		{"delete bed", func() error { return c.DeleteBed(ctx, testToken, "") }},
		{"create user", func() error { _, err := c.CreateUser(ctx, testToken, UserInput{}); return err }},
		{"create bed without ward", func() error {
			_, err := c.CreateBed(ctx, testToken, BedInput{Number: "A1"})
			return err
		}},
		{"conversation", func() error { _, err := c.GetConversation(ctx, testToken, ""); return err }},
		{"pdf", func() error { _, err := c.ConversationPDF(ctx, testToken, ""); return err }},
		{"clear session", func() error { return c.ClearSession(ctx, testToken, "") }},
		{"send empty", func() error { _, err := c.SendMessage(ctx, testToken, SendMessageRequest{}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
	assert.False(t, called)
}

func TestClient_AuthMissingWinsOverValidation(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")
	_, err := c.GetUser(context.Background(), "", "")
	assert.Equal(t, KindAuthMissing, KindOf(err))
}

func TestClient_ServerErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusBadRequest, `{"message":"ward is full"}`, "ward is full"},
		{"error field", http.StatusConflict, `{"error":"duplicate username"}`, "duplicate username"},
		{"nested error", http.StatusUnprocessableEntity, `{"error":{"message":"bad bed"}}`, "bad bed"},
		{"detail field", http.StatusForbidden, `{"detail":"not allowed"}`, "not allowed"},
		{"plain text", http.StatusInternalServerError, "database down", "database down"},
		{"empty body", http.StatusNotFound, "", "Not Found"},
		{"unknown json", http.StatusBadGateway, `{"code":7}`, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.ListWards(context.Background(), testToken)
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, KindServer, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, "wards.list", apiErr.Op)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url)
	_, err := c.ListBeds(context.Background(), testToken, BedFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
}

func TestClient_DecodeFailureIsRequestError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id": {"nested": true}}]`)
	})

	_, err := c.ListUsers(context.Background(), testToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequest), "got %v", err)
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.ListUsers(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testToken, got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.Equal(t, defaultUserAgent, got.Get("User-Agent"))
}

func TestClient_ListEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":1,"name":"A"},{"id":"2","name":"B"}]`, 2},
		{"named envelope", `{"wards":[{"id":1,"name":"A"}]}`, 1},
		{"data envelope", `{"data":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"null", `null`, 0},
		{"no collection", `{"total":0}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			wards, err := c.ListWards(context.Background(), testToken)
			require.NoError(t, err)
			require.NotNil(t, wards)
			assert.Len(t, wards, tt.want)
		})
	}
}

func TestClient_CRUDRoundTrip(t *testing.T) {
	var method, path string
	var body map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body = nil
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = io.WriteString(w, `{"user":{"id":42,"username":"nurse.joy","role":"nurse"}}`)
		}
	})
	ctx := context.Background()

	u, err := c.CreateUser(ctx, testToken, UserInput{Username: "nurse.joy", Role: "nurse"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/users", path)
	assert.Equal(t, "nurse.joy", body["username"])
	assert.Equal(t, ID("42"), u.ID)

	_, err = c.UpdateUser(ctx, testToken, "42", UserInput{Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/users/42", path)

	require.NoError(t, c.DeleteUser(ctx, testToken, "42"))
	assert.Equal(t, http.MethodDelete, method)
}

func TestClient_ListFilters(t *testing.T) {
	var query string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `[]`)
	})
	ctx := context.Background()

	_, err := c.ListBeds(ctx, testToken, BedFilter{WardID: "7", Status: BedAvailable})
	require.NoError(t, err)
	assert.Equal(t, "status=available&ward_id=7", query)

	_, err = c.ListLogs(ctx, testToken, LogFilter{Level: "error", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, "level=error&limit=20", query)
}

func TestClient_SendMessageKeepsRawBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chatbot/message", r.URL.Path)
		_, _ = io.WriteString(w, `{"session_id":"s-1","response":"hi","conversation_history":[{"role":"user","content":"Hello"}]}`)
	})

	res, err := c.SendMessage(context.Background(), testToken, SendMessageRequest{Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, ID("s-1"), res.SessionID)
	assert.Equal(t, "hi", res.Response)
	assert.Contains(t, string(res.Raw), "conversation_history")
}

func TestClient_ConversationPDF(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		assert.Equal(t, "/api/chatbot/conversations/abc/pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4 fake")
	})

	data, err := c.ConversationPDF(context.Background(), testToken, "abc")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestClient_RawRejectsInvalidJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})

	_, err := c.ListSessions(context.Background(), testToken)
	assert.True(t, errors.Is(err, ErrRequest), "got %v", err)
}

func TestID_UnmarshalJSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x-1","b":17,"c":null}`), &v))
	assert.Equal(t, ID("x-1"), v.A)
	assert.Equal(t, ID("17"), v.B)
	assert.Equal(t, ID(""), v.C)

	n, ok := v.B.Int()
	assert.True(t, ok)
	assert.EqualValues(t, 17, n)
}

func TestError_Format(t *testing.T) {
	err := &Error{Kind: KindServer, Op: "users.list", Status: 500, Message: "boom"}
	assert.Equal(t, "server error [users.list] 500: boom", err.Error())

	inner := errors.New("dial tcp: refused")
	err = networkErr("beds.get", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "network error [beds.get]")
}
