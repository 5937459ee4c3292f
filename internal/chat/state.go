package chat

import (
	"context"
	"encoding/json"

	"github.com/iksnae/hospital-console/internal"
	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/store"
)

// Service is the part of the REST boundary the chat container calls.
type Service interface {
	SendMessage(ctx context.Context, token string, req api.SendMessageRequest) (*api.SendMessageResult, error)
	ClearSession(ctx context.Context, token string, sessionID string) error
	ListSessions(ctx context.Context, token string) (json.RawMessage, error)
	ListConversations(ctx context.Context, token string) (json.RawMessage, error)
	GetConversation(ctx context.Context, token string, id string) (json.RawMessage, error)
	ConversationPDF(ctx context.Context, token string, id string) ([]byte, error)
}

// Action names recorded in the container status.
const (
	ActionSend               = "chat/sendMessage"
	ActionClear              = "chat/clearSession"
	ActionFetchSessions      = "chat/fetchSessions"
	ActionFetchConversations = "chat/fetchConversations"
	ActionFetchConversation  = "chat/fetchConversation"
	ActionFetchPDF           = "chat/fetchPdf"
)

// State is the chat container: the active session, the per-session
// message lists, the session and conversation summaries and the PDF cache.
//
// Detail fetches carry a per-session generation. Starting a newer fetch,
// receiving a send result or clearing the session bumps it, and a result
// whose generation is no longer current is dropped. No detail fetch ever
// changes the active session.
type State struct {
	store.Status

	svc     Service
	token   func() string
	handles HandleFactory
	pdfs    *PDFCache

	active        string
	messages      map[string][]Message
	gen           map[string]uint64
	pdfGen        map[string]uint64
	sessions      []Summary
	conversations []Summary
}

// Option configures a State.
type Option func(*State)

// WithHandles sets how downloaded PDFs are materialized. The default keeps
// them in memory.
func WithHandles(f HandleFactory) Option {
	return func(s *State) { s.handles = f }
}

// NewState creates an empty chat container with no active session.
func NewState(svc Service, token func() string, opts ...Option) *State {
	s := &State{
		svc:           svc,
		token:         token,
		handles:       MemoryHandles(),
		pdfs:          NewPDFCache(),
		messages:      make(map[string][]Message),
		gen:           make(map[string]uint64),
		pdfGen:        make(map[string]uint64),
		sessions:      []Summary{},
		conversations: []Summary{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts the text of in to the active session, or opens a new session
// when none is active. The field is cleared before the call and restored
// if the call fails. On success the returned session becomes active and
// its message list is replaced by the server's history; when the response
// carries no history the conversation is fetched.
func (s *State) Send(ctx context.Context, in Input) (*api.SendMessageResult, error) {
	edit := BeginEdit(in)
	current := s.Active()

	res, err := store.Dispatch(ctx, &s.Status, ActionSend,
		func(ctx context.Context) (*api.SendMessageResult, error) {
			token := s.token()
			if err := api.Validate("chat.send", token, "message", edit.Text()); err != nil {
				return nil, err
			}
			return s.svc.SendMessage(ctx, token, api.SendMessageRequest{
				Message:   edit.Text(),
				SessionID: current,
			})
		},
		func(res *api.SendMessageResult) {
			id := res.SessionID.String()
			if id == "" {
				id = current
			}
			if id == "" {
				return
			}
			s.active = id
			s.gen[id]++
			s.messages[id], _ = NormalizeHistory(res.Raw)
		})
	if err != nil {
		if edit.Rollback() {
			internal.LogDebug("restored draft after failed send")
		}
		return nil, err
	}
	edit.Commit()

	id := s.Active()
	if msgs, ok := s.Messages(id); ok && len(msgs) == 0 {
		// The failure, if any, is recorded in the container.
		if _, err := s.FetchConversation(ctx, id); err != nil {
			internal.LogWarn("failed to load conversation %s: %v", id, err)
		}
	}
	return res, nil
}

// Select makes id the active session without any network call. An empty
// id means no session.
func (s *State) Select(id string) {
	s.Update(func() { s.active = id })
	internal.LogDebug("chat/setActiveSession %q", id)
}

// FetchConversation loads the message list of session id. A result that
// has been superseded by the time it arrives is discarded.
func (s *State) FetchConversation(ctx context.Context, id string) ([]Message, error) {
	var gen uint64
	s.Update(func() {
		s.gen[id]++
		gen = s.gen[id]
	})
	return store.Dispatch(ctx, &s.Status, ActionFetchConversation,
		func(ctx context.Context) ([]Message, error) {
			raw, err := s.svc.GetConversation(ctx, s.token(), id)
			if err != nil {
				return nil, err
			}
			return Normalize(raw), nil
		},
		func(msgs []Message) {
			if s.gen[id] != gen {
				internal.LogDebug("discarding stale conversation %s", id)
				return
			}
			s.messages[id] = msgs
		})
}

// Clear deletes session id on the server and drops everything cached for
// it. The active session is reset only if it was id.
func (s *State) Clear(ctx context.Context, id string) error {
	_, err := store.Dispatch(ctx, &s.Status, ActionClear,
		func(ctx context.Context) (string, error) {
			return id, s.svc.ClearSession(ctx, s.token(), id)
		},
		func(id string) {
			delete(s.messages, id)
			s.gen[id]++
			s.pdfGen[id]++
			s.sessions = withoutSession(s.sessions, id)
			s.conversations = withoutSession(s.conversations, id)
			if s.active == id {
				s.active = ""
			}
		})
	if err != nil {
		return err
	}
	if err := s.pdfs.Clear(id); err != nil {
		internal.LogWarn("failed to revoke pdf for %s: %v", id, err)
	}
	return nil
}

// FetchSessions replaces the session list.
func (s *State) FetchSessions(ctx context.Context) ([]Summary, error) {
	return store.Dispatch(ctx, &s.Status, ActionFetchSessions,
		func(ctx context.Context) ([]Summary, error) {
			raw, err := s.svc.ListSessions(ctx, s.token())
			if err != nil {
				return nil, err
			}
			return NormalizeSummaries(raw), nil
		},
		func(list []Summary) { s.sessions = list })
}

// FetchConversations replaces the conversation list.
func (s *State) FetchConversations(ctx context.Context) ([]Summary, error) {
	return store.Dispatch(ctx, &s.Status, ActionFetchConversations,
		func(ctx context.Context) ([]Summary, error) {
			raw, err := s.svc.ListConversations(ctx, s.token())
			if err != nil {
				return nil, err
			}
			return NormalizeSummaries(raw), nil
		},
		func(list []Summary) { s.conversations = list })
}

// FetchPDF downloads the PDF of conversation id and caches a handle for
// it. A previous handle for the same id is revoked. A download that
// finishes after the session was cleared is revoked instead of cached.
func (s *State) FetchPDF(ctx context.Context, id string) (*Handle, error) {
	var gen uint64
	s.View(func() { gen = s.pdfGen[id] })
	return store.Dispatch(ctx, &s.Status, ActionFetchPDF,
		func(ctx context.Context) (*Handle, error) {
			data, err := s.svc.ConversationPDF(ctx, s.token(), id)
			if err != nil {
				return nil, err
			}
			h, err := s.handles(id, data)
			if err != nil {
				return nil, api.LocalError("chat.pdf", err)
			}
			return h, nil
		},
		func(h *Handle) {
			if s.pdfGen[id] != gen {
				internal.LogDebug("discarding pdf of cleared session %s", id)
				if err := h.Revoke(); err != nil {
					internal.LogWarn("failed to revoke pdf for %s: %v", id, err)
				}
				return
			}
			if err := s.pdfs.Put(id, h); err != nil {
				internal.LogWarn("failed to revoke previous pdf for %s: %v", id, err)
			}
		})
}

// ClearPDF drops and revokes the cached PDF of conversation id.
func (s *State) ClearPDF(id string) error {
	return s.pdfs.Clear(id)
}

// PDF returns the cached PDF handle of conversation id.
func (s *State) PDF(id string) (*Handle, bool) {
	return s.pdfs.Get(id)
}

// Close revokes every cached PDF handle.
func (s *State) Close() error {
	return s.pdfs.Close()
}

// Active returns the active session id, or "" for none.
func (s *State) Active() string {
	var id string
	s.View(func() { id = s.active })
	return id
}

// Messages returns the cached message list of session id.
func (s *State) Messages(id string) ([]Message, bool) {
	var (
		out []Message
		ok  bool
	)
	s.View(func() {
		var msgs []Message
		if msgs, ok = s.messages[id]; ok {
			out = append(make([]Message, 0, len(msgs)), msgs...)
		}
	})
	return out, ok
}

// ActiveMessages returns the message list of the active session. It is
// empty, never nil, when nothing is cached.
func (s *State) ActiveMessages() []Message {
	msgs, ok := s.Messages(s.Active())
	if !ok {
		return []Message{}
	}
	return msgs
}

// Sessions returns the last fetched session list.
func (s *State) Sessions() []Summary {
	var out []Summary
	s.View(func() { out = append([]Summary{}, s.sessions...) })
	return out
}

// Conversations returns the last fetched conversation list.
func (s *State) Conversations() []Summary {
	var out []Summary
	s.View(func() { out = append([]Summary{}, s.conversations...) })
	return out
}

func withoutSession(list []Summary, id string) []Summary {
	out := list[:0:0]
	for _, s := range list {
		if s.SessionID != id {
			out = append(out, s)
		}
	}
	if out == nil {
		out = []Summary{}
	}
	return out
}
