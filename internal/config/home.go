package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the default home directory.
const HomeEnv = "TASKAGENT_HOME"

type homeKey struct{}

func WithHome(ctx context.Context, home string) context.Context {
	return context.WithValue(ctx, homeKey{}, home)
}

// HomeFrom returns the home path stored by WithHome.
func HomeFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(homeKey{}).(string)
	return s, ok && s != ""
}

// MustHomeFrom is HomeFrom for commands that run after the root's
// PersistentPreRunE; a missing home is a wiring bug.
func MustHomeFrom(ctx context.Context) string {
	if h, ok := HomeFrom(ctx); ok {
		return h
	}
	panic("taskagent home missing from context")
}

// ResolveHome picks the home directory: override, then $TASKAGENT_HOME, then
// ~/.taskagent. A leading "~/" is expanded in either source.
func ResolveHome(override string) (string, error) {
	for _, p := range []string{override, os.Getenv(HomeEnv)} {
		if p == "" {
			continue
		}
		return expandTilde(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine user home directory; pass --home or set " + HomeEnv)
	}
	return filepath.Join(home, ".taskagent"), nil
}

func expandTilde(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return filepath.Clean(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// ProtectedDir holds the SQLite database and the daemon's pid, lock, addr and
// log files. It is created owner-only.
func ProtectedDir(home string) string {
	return filepath.Join(home, "protected")
}

// EnsureHome creates home and its protected directory.
func EnsureHome(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(ProtectedDir(home), 0o700)
}
