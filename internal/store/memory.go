package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is a non-durable Store kept in process memory. It backs the "memory"
// driver and serves as the local mirror inside Fallback.
type Memory struct {
	mu     sync.RWMutex
	tasks  []Task
	nextID int64
	newID  func() string
	now    func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store issuing ids "1", "2", ...
func NewMemory() *Memory {
	m := &Memory{now: time.Now}
	m.newID = func() string {
		m.nextID++
		return strconv.FormatInt(m.nextID, 10)
	}
	return m
}

// NewMemoryWithIDs uses gen to issue ids (the fallback mirror uses random ids so
// they cannot collide with backend ids).
func NewMemoryWithIDs(gen func() string) *Memory {
	return &Memory{now: time.Now, newID: gen}
}

// Replace swaps the whole collection; used to resync a mirror from its backend.
func (m *Memory) Replace(ts []Task) {
	cp := make([]Task, len(ts))
	copy(cp, ts)
	m.mu.Lock()
	m.tasks = cp
	m.mu.Unlock()
}

func (m *Memory) ListTasks(_ context.Context) ([]Task, error) {
	m.mu.RLock()
	out := make([]Task, len(m.tasks))
	copy(out, m.tasks)
	m.mu.RUnlock()
	SortTasks(out)
	return out, nil
}

func (m *Memory) GetTask(_ context.Context, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(id); i >= 0 {
		t := m.tasks[i]
		return &t, nil
	}
	return nil, nil
}

func (m *Memory) CreateTask(_ context.Context, in NewTask) (Task, error) {
	now := m.now()
	in, err := in.Normalize(now)
	if err != nil {
		return Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := Task{
		ID:        m.newID(),
		Text:      in.Text,
		Date:      in.Date,
		Category:  in.Category,
		Notes:     in.Notes,
		CreatedAt: now.UTC(),
	}
	m.tasks = append(m.tasks, t)
	return t, nil
}

// put inserts or overwrites t by id.
func (m *Memory) put(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(t.ID); i >= 0 {
		m.tasks[i] = t
		return
	}
	m.tasks = append(m.tasks, t)
}

func (m *Memory) SetCompleted(ctx context.Context, id string, completed bool) error {
	return m.UpdateTask(ctx, id, TaskFields{Completed: &completed})
}

func (m *Memory) UpdateTask(_ context.Context, id string, f TaskFields) error {
	if err := f.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return ErrNotFound
	}
	f.Apply(&m.tasks[i])
	return nil
}

func (m *Memory) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return ErrNotFound
	}
	m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
	return nil
}

func (m *Memory) Close() error { return nil }

// index must be called with mu held.
func (m *Memory) index(id string) int {
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
