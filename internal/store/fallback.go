package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// Fallback wraps a remote Store with a local in-memory mirror. When the remote
// cannot be reached, reads are served from the mirror and mutations are applied
// to it instead of being lost; a warning is logged each time. The mirror then
// diverges from the backend until the next successful ListTasks replaces it.
type Fallback struct {
	remote   Store
	local    *Memory
	log      *slog.Logger
	degraded atomic.Bool
}

var _ Store = (*Fallback)(nil)

// NewFallback wraps remote. logger may be nil (slog.Default()).
func NewFallback(remote Store, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		remote: remote,
		local:  NewMemoryWithIDs(func() string { return "local-" + uuid.NewString() }),
		log:    logger,
	}
}

// Degraded reports whether the last remote call failed with a transport error.
func (f *Fallback) Degraded() bool { return f.degraded.Load() }

// fellBack reports whether err is a transport failure that the mirror should absorb.
func (f *Fallback) fellBack(op string, err error) bool {
	if err == nil {
		f.degraded.Store(false)
		return false
	}
	if !errors.Is(err, ErrUnavailable) {
		return false
	}
	f.degraded.Store(true)
	f.log.Warn("task store unreachable, using local state", "op", op, "err", err)
	return true
}

func (f *Fallback) ListTasks(ctx context.Context) ([]Task, error) {
	ts, err := f.remote.ListTasks(ctx)
	if f.fellBack("list", err) {
		return f.local.ListTasks(ctx)
	}
	if err != nil {
		return nil, err
	}
	f.local.Replace(ts)
	return ts, nil
}

func (f *Fallback) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := f.remote.GetTask(ctx, id)
	if f.fellBack("get", err) {
		return f.local.GetTask(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if t == nil {
		// Tasks created while degraded only exist locally.
		return f.local.GetTask(ctx, id)
	}
	return t, nil
}

func (f *Fallback) CreateTask(ctx context.Context, in NewTask) (Task, error) {
	t, err := f.remote.CreateTask(ctx, in)
	if f.fellBack("create", err) {
		return f.local.CreateTask(ctx, in)
	}
	if err != nil {
		return Task{}, err
	}
	f.local.put(t)
	return t, nil
}

func (f *Fallback) SetCompleted(ctx context.Context, id string, completed bool) error {
	return f.UpdateTask(ctx, id, TaskFields{Completed: &completed})
}

func (f *Fallback) UpdateTask(ctx context.Context, id string, fields TaskFields) error {
	var err error
	if fields.Completed != nil && fields.Text == nil && fields.Date == nil && fields.Category == nil && fields.Notes == nil {
		err = f.remote.SetCompleted(ctx, id, *fields.Completed)
	} else {
		err = f.remote.UpdateTask(ctx, id, fields)
	}
	if f.fellBack("update", err) {
		return f.local.UpdateTask(ctx, id, fields)
	}
	if errors.Is(err, ErrNotFound) {
		// Locally created tasks never reached the backend.
		if lerr := f.local.UpdateTask(ctx, id, fields); lerr == nil {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	_ = f.local.UpdateTask(ctx, id, fields)
	return nil
}

func (f *Fallback) DeleteTask(ctx context.Context, id string) error {
	err := f.remote.DeleteTask(ctx, id)
	if f.fellBack("delete", err) {
		return f.local.DeleteTask(ctx, id)
	}
	if errors.Is(err, ErrNotFound) {
		if lerr := f.local.DeleteTask(ctx, id); lerr == nil {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	_ = f.local.DeleteTask(ctx, id)
	return nil
}

func (f *Fallback) Close() error {
	return f.remote.Close()
}
