package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(r rowScanner) (Task, error) {
	var (
		t         Task
		id        int64
		completed int
		createdAt int64
	)
	if err := r.Scan(&id, &t.Text, &t.Date, &t.Category, &completed, &t.Notes, &createdAt); err != nil {
		return Task{}, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.Completed = completed != 0
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}

// parseID maps an opaque id to the integer primary key; ok is false for ids
// this backend could never have issued.
func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	return n, err == nil
}

func (s *sqliteStore) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.stmtListTasks.QueryContext(ctx)
	if err != nil {
		return nil, Unavailable("sqlite", "list", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Task{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	t, err := scanTodo(s.stmtGetTask.QueryRowContext(ctx, n))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, Unavailable("sqlite", "get", err)
	}
	return &t, nil
}

func (s *sqliteStore) CreateTask(ctx context.Context, in NewTask) (Task, error) {
	now := time.Now()
	in, err := in.Normalize(now)
	if err != nil {
		return Task{}, err
	}
	created := now.UTC().Unix()
	res, err := s.stmtCreateTask.ExecContext(ctx, in.Text, in.Date, in.Category, in.Notes, created)
	if err != nil {
		return Task{}, Unavailable("sqlite", "create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        strconv.FormatInt(id, 10),
		Text:      in.Text,
		Date:      in.Date,
		Category:  in.Category,
		Notes:     in.Notes,
		CreatedAt: time.Unix(created, 0).UTC(),
	}, nil
}

func (s *sqliteStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	n, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	v := 0
	if completed {
		v = 1
	}
	res, err := s.stmtSetCompleted.ExecContext(ctx, v, n)
	if err != nil {
		return Unavailable("sqlite", "set completed", err)
	}
	return requireAffected(res)
}

func (s *sqliteStore) UpdateTask(ctx context.Context, id string, f TaskFields) error {
	n, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	if err := f.Validate(); err != nil {
		return err
	}
	var (
		sets []string
		args []any
	)
	if f.Text != nil {
		sets, args = append(sets, "text = ?"), append(args, strings.TrimSpace(*f.Text))
	}
	if f.Date != nil {
		sets, args = append(sets, "date = ?"), append(args, *f.Date)
	}
	if f.Category != nil {
		c := *f.Category
		if c == "" {
			c = DefaultCategory
		}
		sets, args = append(sets, "category = ?"), append(args, c)
	}
	if f.Notes != nil {
		sets, args = append(sets, "notes = ?"), append(args, *f.Notes)
	}
	if f.Completed != nil {
		v := 0
		if *f.Completed {
			v = 1
		}
		sets, args = append(sets, "completed = ?"), append(args, v)
	}
	if len(sets) == 0 {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrNotFound
		}
		return nil
	}
	args = append(args, n)
	res, err := s.DB.ExecContext(ctx, `UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Unavailable("sqlite", "update", err)
	}
	return requireAffected(res)
}

func (s *sqliteStore) DeleteTask(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	res, err := s.stmtDeleteTask.ExecContext(ctx, n)
	if err != nil {
		return Unavailable("sqlite", "delete", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
