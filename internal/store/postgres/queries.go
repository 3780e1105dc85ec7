package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/asad-creats/taskagent/internal/store"
	"github.com/jackc/pgx/v5"
)

const todoColumns = `id, text, date, category, completed, notes, created_at`

func scanTodo(row pgx.Row) (store.Task, error) {
	var (
		t  store.Task
		id int64
	)
	if err := row.Scan(&id, &t.Text, &t.Date, &t.Category, &t.Completed, &t.Notes, &t.CreatedAt); err != nil {
		return store.Task{}, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	return n, err == nil
}

func unavailable(op string, err error) error {
	return store.Unavailable("postgres", op, err)
}

func (s *Store) ListTasks(ctx context.Context) ([]store.Task, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+todoColumns+` FROM todos ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	out := []store.Task{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*store.Task, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	t, err := scanTodo(s.Pool.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, n))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, in store.NewTask) (store.Task, error) {
	in, err := in.Normalize(time.Now())
	if err != nil {
		return store.Task{}, err
	}
	t, err := scanTodo(s.Pool.QueryRow(ctx,
		`INSERT INTO todos(text, date, category, notes) VALUES($1, $2, $3, $4) RETURNING `+todoColumns,
		in.Text, in.Date, in.Category, in.Notes))
	if err != nil {
		return store.Task{}, unavailable("create", err)
	}
	return t, nil
}

func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) error {
	n, ok := parseID(id)
	if !ok {
		return store.ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE todos SET completed = $1 WHERE id = $2`, completed, n)
	if err != nil {
		return unavailable("set completed", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, f store.TaskFields) error {
	n, ok := parseID(id)
	if !ok {
		return store.ErrNotFound
	}
	if err := f.Validate(); err != nil {
		return err
	}
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if f.Text != nil {
		add("text", strings.TrimSpace(*f.Text))
	}
	if f.Date != nil {
		add("date", *f.Date)
	}
	if f.Category != nil {
		c := *f.Category
		if c == "" {
			c = store.DefaultCategory
		}
		add("category", c)
	}
	if f.Notes != nil {
		add("notes", *f.Notes)
	}
	if f.Completed != nil {
		add("completed", *f.Completed)
	}
	if len(sets) == 0 {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return store.ErrNotFound
		}
		return nil
	}
	args = append(args, n)
	q := `UPDATE todos SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))
	tag, err := s.Pool.Exec(ctx, q, args...)
	if err != nil {
		return unavailable("update", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	n, ok := parseID(id)
	if !ok {
		return store.ErrNotFound
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM todos WHERE id = $1`, n)
	if err != nil {
		return unavailable("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
