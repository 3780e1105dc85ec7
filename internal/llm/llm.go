// Package llm defines the model client contract used by the dispatcher and
// its implementations for a local Ollama daemon, the Gemini API and
// OpenAI-compatible endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelInfo describes a model the backend can serve.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// Client sends a conversation to a model and returns the raw completion text.
type Client interface {
	// Chat returns the completion for messages. An empty model selects the
	// client's default. Errors match ErrModelUnavailable or ErrModelProtocol.
	Chat(ctx context.Context, messages []Message, model string) (string, error)
	// ListModels never fails; it returns an empty list when the backend is unreachable.
	ListModels(ctx context.Context) []ModelInfo
}

// Describer is implemented by clients that can name themselves and say what
// to check when they are unreachable.
type Describer interface {
	Provider() string
	DefaultModel() string
	UnavailableHint() string
}

var (
	// ErrModelUnavailable covers transport failures, non-2xx responses and cancellation.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelProtocol means the backend answered but without the expected content.
	ErrModelProtocol = errors.New("model protocol error")
	// ErrNoMessages is returned when Chat is called with nothing to send.
	ErrNoMessages = errors.New("no messages to send")
)

// Error carries the provider, operation and HTTP status of a failed call.
type Error struct {
	Provider string
	Op       string
	Status   int
	Kind     error // ErrModelUnavailable or ErrModelProtocol
	Err      error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unavailable(provider, op string, status int, err error) error {
	return &Error{Provider: provider, Op: op, Status: status, Kind: ErrModelUnavailable, Err: err}
}

func protocol(provider, op string, err error) error {
	return &Error{Provider: provider, Op: op, Kind: ErrModelProtocol, Err: err}
}
