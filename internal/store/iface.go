package store

import "context"

// Store is the persistence interface for tasks.
// Implementations: SQLite (this package), Memory, Fallback, postgres.Store, rest.Store and googletasks.Store.
type Store interface {
	// ListTasks returns every task ordered by date ascending.
	ListTasks(ctx context.Context) ([]Task, error)
	// GetTask returns nil, nil when id is unknown.
	GetTask(ctx context.Context, id string) (*Task, error)
	CreateTask(ctx context.Context, t NewTask) (Task, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
	UpdateTask(ctx context.Context, id string, f TaskFields) error
	DeleteTask(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
