// Package postgres implements store.Store on a PostgreSQL (or Supabase
// Postgres) "todos" table via pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID serializes migrations when several daemons share a database.
const migrationLockID = 0x7461736b // "task"

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	Pool *pgxpool.Pool
}

// Options tunes the connection pool. Zero values keep the pgx defaults.
type Options struct {
	DSN         string // empty uses $DATABASE_URL
	MaxConns    int32
	ConnectWait time.Duration // bound on the initial ping; default 10s
}

// Open connects with default pool settings.
func Open(ctx context.Context, dsn string) (*Store, error) {
	return OpenWithOptions(ctx, Options{DSN: dsn})
}

// OpenWithOptions connects, verifies the server answers, and applies pending
// migrations. Connection failures are reported as store.ErrUnavailable.
func OpenWithOptions(ctx context.Context, opts Options) (*Store, error) {
	dsn := opts.DSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("postgres: DSN or DATABASE_URL required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse DSN: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	wait := opts.ConnectWait
	if wait <= 0 {
		wait = 10 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, unavailable("connect", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, unavailable("connect", err)
	}
	s := &Store{Pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	s.Pool.Close()
	return nil
}

type migration struct {
	version int
	name    string
}

func pendingMigrations(applied map[int]bool) ([]migration, error) {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, p := range entries {
		name := path.Base(p)
		prefix, _, _ := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		v, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("postgres: migration %s has no numeric prefix", name)
		}
		if !applied[v] {
			out = append(out, migration{version: v, name: name})
		}
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

// Migrate applies pending migrations in one transaction under an advisory
// lock, so concurrent starters neither race nor half-apply.
func (s *Store) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return unavailable("migrate", err)
		}
		if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at BIGINT NOT NULL)`); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT version FROM schema_migrations`)
		if err != nil {
			return err
		}
		versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return err
		}
		applied := make(map[int]bool, len(versions))
		for _, v := range versions {
			applied[v] = true
		}

		pending, err := pendingMigrations(applied)
		if err != nil {
			return err
		}
		for _, m := range pending {
			body, err := migrationsFS.ReadFile("migrations/" + m.name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return fmt.Errorf("migration %s failed: %w", m.name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)`, m.version, time.Now().Unix()); err != nil {
				return err
			}
		}
		return nil
	})
}
