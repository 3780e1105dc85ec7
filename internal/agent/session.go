package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asad-creats/taskagent/internal/llm"
)

var (
	// ErrEmptyMessage is returned by Session.Send for a blank message.
	ErrEmptyMessage = errors.New("message is required")
	// ErrSessionClosed is the cancellation cause of a deleted or pruned session.
	ErrSessionClosed = errors.New("session closed")
)

// Turn is one entry of a conversation.
type Turn struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Action      string       `json:"action,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Session is one conversation: its turns and the dispatcher that serves it.
type Session struct {
	ID string

	dispatcher *Dispatcher
	limit      int
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelCauseFunc

	mu       sync.Mutex
	turns    []Turn
	lastUsed time.Time
}

// NewSession starts an empty conversation with a fresh id.
func NewSession(d *Dispatcher) *Session {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Session{
		ID:         uuid.NewString(),
		dispatcher: d,
		limit:      d.opts.HistoryLimit,
		now:        d.opts.Now,
		ctx:        ctx,
		cancel:     cancel,
		lastUsed:   d.opts.Now(),
	}
}

// Send runs message through the dispatcher with the session's recent turns as
// history and records both sides. It returns ErrBusy while another Send on
// this session is in flight. Closing the session cancels the query, which
// then answers with an "error" action.
func (s *Session) Send(ctx context.Context, message string) (Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Response{}, ErrEmptyMessage
	}
	ctx, stop := s.bind(ctx)
	defer stop()

	history := s.history()
	s.touch()
	resp, err := s.dispatcher.TryProcessQuery(ctx, message, history)
	if err != nil {
		return Response{}, err
	}
	if s.ctx.Err() != nil {
		return resp, nil
	}

	s.mu.Lock()
	now := s.now()
	s.turns = append(s.turns,
		Turn{Role: llm.RoleUser, Content: message, Timestamp: now},
		Turn{Role: llm.RoleAssistant, Content: resp.Response, Action: resp.Action, ToolResults: resp.ToolResults, Timestamp: now},
	)
	s.lastUsed = now
	s.mu.Unlock()
	return resp, nil
}

// bind derives a context that ends with either ctx or the session.
func (s *Session) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	unhook := context.AfterFunc(s.ctx, func() { cancel(context.Cause(s.ctx)) })
	return ctx, func() {
		unhook()
		cancel(nil)
	}
}

// Close cancels any in-flight Send. It is idempotent.
func (s *Session) Close() { s.cancel(ErrSessionClosed) }

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()
}

func (s *Session) history() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns
	if len(turns) > s.limit {
		turns = turns[len(turns)-s.limit:]
	}
	out := make([]llm.Message, len(turns))
	for i, t := range turns {
		out[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return out
}

// Turns returns a copy of the conversation so far.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// LastUsed is when the session was created or last sent a message.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Sessions is a concurrency-safe registry of sessions.
type Sessions struct {
	newDispatcher func() *Dispatcher

	mu   sync.Mutex
	byID map[string]*Session
}

// NewSessions returns a registry whose sessions each get a dispatcher from newDispatcher.
func NewSessions(newDispatcher func() *Dispatcher) *Sessions {
	return &Sessions{newDispatcher: newDispatcher, byID: map[string]*Session{}}
}

// Get returns the session with id, if any.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

// GetOrCreate returns the session with id, or a new session when id is empty
// or unknown. Unknown ids are not adopted; the new session has its own id.
func (r *Sessions) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok && id != "" {
		return s
	}
	s := NewSession(r.newDispatcher())
	r.byID[s.ID] = s
	return s
}

// Delete forgets a session and cancels its in-flight query. It reports
// whether it existed.
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if ok {
		s.Close()
		delete(r.byID, id)
	}
	return ok
}

// Prune drops sessions idle for longer than maxIdle as of now and returns how many.
func (r *Sessions) Prune(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.byID {
		if now.Sub(s.LastUsed()) > maxIdle {
			s.Close()
			delete(r.byID, id)
			n++
		}
	}
	return n
}

// Len is the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
