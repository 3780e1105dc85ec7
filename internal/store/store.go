package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection pragmas. They go in the DSN so every pooled connection gets
// them, not just the one that happens to run an Exec.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"temp_store(MEMORY)",
	"cache_size(-8000)", // negative means KiB
}

// sqliteStore is the default Store, one file under <home>/protected.
type sqliteStore struct {
	DB *sql.DB

	stmtListTasks    *sql.Stmt
	stmtGetTask      *sql.Stmt
	stmtCreateTask   *sql.Stmt
	stmtSetCompleted *sql.Stmt
	stmtDeleteTask   *sql.Stmt
}

// OpenOptions configures how to open the SQLite store.
type OpenOptions struct {
	Home string // database at DBPath(Home)
	DSN  string // file path or "file:" URI; overrides Home
}

// Open opens the SQLite store at DBPath(home).
func Open(home string) (Store, error) {
	return OpenWithOptions(OpenOptions{Home: home})
}

// OpenWithOptions opens SQLite at DSN when set, otherwise under Home.
// Other drivers live in sibling packages and are selected by internal/backend.
func OpenWithOptions(opts OpenOptions) (Store, error) {
	target := opts.DSN
	if target == "" {
		if opts.Home == "" {
			return nil, errors.New("sqlite store: home or DSN required")
		}
		target = DBPath(opts.Home)
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return nil, err
		}
	}
	return openSQLite(context.Background(), sqliteDSN(target))
}

// DBPath is where the SQLite database lives under home.
func DBPath(home string) string {
	return filepath.Join(home, "protected", "db.sqlite")
}

// sqliteDSN turns a path into a file: URI carrying the connection pragmas.
// A caller-supplied URI is used as is.
func sqliteDSN(target string) string {
	if strings.HasPrefix(target, "file:") {
		return target
	}
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return "file:" + target + "?" + q.Encode()
}

func openSQLite(ctx context.Context, dsn string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	s := &sqliteStore{DB: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepare(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

const todoColumns = `id, text, date, category, completed, notes, created_at`

func (s *sqliteStore) prepare(ctx context.Context) error {
	for dest, q := range map[**sql.Stmt]string{
		&s.stmtListTasks:    `SELECT ` + todoColumns + ` FROM todos ORDER BY date ASC, id ASC`,
		&s.stmtGetTask:      `SELECT ` + todoColumns + ` FROM todos WHERE id = ?`,
		&s.stmtCreateTask:   `INSERT INTO todos(text, date, category, completed, notes, created_at) VALUES(?, ?, ?, 0, ?, ?)`,
		&s.stmtSetCompleted: `UPDATE todos SET completed = ? WHERE id = ?`,
		&s.stmtDeleteTask:   `DELETE FROM todos WHERE id = ?`,
	} {
		st, err := s.DB.PrepareContext(ctx, q)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", q, err)
		}
		*dest = st
	}
	return nil
}

// EnsureSchema creates the database under home with all migrations applied.
func EnsureSchema(home string) error {
	s, err := Open(home)
	if err != nil {
		return err
	}
	return s.Close()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	for _, st := range []*sql.Stmt{s.stmtListTasks, s.stmtGetTask, s.stmtCreateTask, s.stmtSetCompleted, s.stmtDeleteTask} {
		if st != nil {
			_ = st.Close()
		}
	}
	return s.DB.Close()
}

type migration struct {
	Version int
	Name    string
}

// migrations lists the embedded files in version order.
func migrations() ([]migration, error) {
	paths, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]migration, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		v, err := parseMigrationVersion(name)
		if err != nil {
			return nil, err
		}
		out = append(out, migration{Version: v, Name: name})
	}
	slices.SortFunc(out, func(a, b migration) int { return a.Version - b.Version })
	return out, nil
}

// Migrate applies pending migrations in a single transaction; a failure
// leaves the schema as it was.
func (s *sqliteStore) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store not initialized")
	}
	all, err := migrations()
	if err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at INTEGER NOT NULL
)`); err != nil {
		return err
	}
	var current int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return err
	}
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		body, err := migrationsFS.ReadFile("migrations/" + m.Name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.Version, time.Now().Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	prefix, _, _ := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("invalid migration version in %s", filename)
	}
	return v, nil
}
