package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/asad-creats/taskagent/internal/cli"
	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

// Process exit codes. Scripts can tell a bad invocation from a dependency
// that is down.
const (
	exitOK          = 0
	exitUsage       = 1
	exitConfig      = 2
	exitUnavailable = 3
	exitInterrupted = 130
)

// Run executes the root command and maps its error to an exit code.
func Run(ctx context.Context, args []string) int {
	root := cli.NewRootCmd(Version)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskagent:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, config.ErrInvalid):
		return exitConfig
	case errors.Is(err, store.ErrUnavailable),
		errors.Is(err, llm.ErrModelUnavailable),
		errors.Is(err, llm.ErrModelProtocol):
		return exitUnavailable
	default:
		return exitUsage
	}
}
