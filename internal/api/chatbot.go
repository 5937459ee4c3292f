package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const chatbotPath = "/api/chatbot"

// SendMessage calls POST /api/chatbot/message. An empty SessionID asks the
// backend to open a new session.
func (c *Client) SendMessage(ctx context.Context, token string, req SendMessageRequest) (*SendMessageResult, error) {
	const op = "chatbot.send"
	if err := checkToken(op, token); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, validation(op, "message is required")
	}
	data, err := c.do(ctx, token, call{op: op, method: http.MethodPost, path: chatbotPath + "/message", body: req})
	if err != nil {
		return nil, err
	}
	res, err := decodeItem[SendMessageResult](op, data)
	if err != nil {
		return nil, err
	}
	res.Raw = json.RawMessage(data)
	return &res, nil
}

// ClearSession calls DELETE /api/chatbot/sessions/{id}.
func (c *Client) ClearSession(ctx context.Context, token string, sessionID string) error {
	const op = "chatbot.clear"
	if err := precheck(op, token, "session id", ID(sessionID)); err != nil {
		return err
	}
	_, err := c.do(ctx, token, call{op: op, method: http.MethodDelete, path: idPath(chatbotPath+"/sessions", ID(sessionID))})
	return err
}

// ListSessions calls GET /api/chatbot/sessions. The payload shape varies
// between backend versions, so it is returned raw.
func (c *Client) ListSessions(ctx context.Context, token string) (json.RawMessage, error) {
	return c.raw(ctx, token, "chatbot.sessions", chatbotPath+"/sessions")
}

// ListConversations calls GET /api/chatbot/conversations.
func (c *Client) ListConversations(ctx context.Context, token string) (json.RawMessage, error) {
	return c.raw(ctx, token, "chatbot.conversations", chatbotPath+"/conversations")
}

// GetConversation calls GET /api/chatbot/conversations/{id}.
func (c *Client) GetConversation(ctx context.Context, token string, id string) (json.RawMessage, error) {
	const op = "chatbot.conversation"
	if err := precheck(op, token, "conversation id", ID(id)); err != nil {
		return nil, err
	}
	return c.raw(ctx, token, op, idPath(chatbotPath+"/conversations", ID(id)))
}

// ConversationPDF calls GET /api/chatbot/conversations/{id}/pdf and returns
// the binary body.
func (c *Client) ConversationPDF(ctx context.Context, token string, id string) ([]byte, error) {
	const op = "chatbot.pdf"
	if err := precheck(op, token, "conversation id", ID(id)); err != nil {
		return nil, err
	}
	return c.do(ctx, token, call{
		op:     op,
		method: http.MethodGet,
		path:   idPath(chatbotPath+"/conversations", ID(id)) + "/pdf",
		accept: "application/pdf",
	})
}

func (c *Client) raw(ctx context.Context, token, op, path string) (json.RawMessage, error) {
	data, err := c.do(ctx, token, call{op: op, method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, requestErr(op, errInvalidJSON)
	}
	return json.RawMessage(data), nil
}
