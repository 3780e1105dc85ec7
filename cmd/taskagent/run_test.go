package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"--help"}, exitOK},
		{"version", []string{"--version"}, exitOK},
		{"unknown flag", []string{"--unknown-flag"}, exitUsage},
		{"unknown command", []string{"--home", t.TempDir(), "frobnicate"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Run(context.Background(), tt.args); got != tt.want {
				t.Errorf("Run %v: exit %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitUsage},
		{fmt.Errorf("chat: %w", context.Canceled), exitInterrupted},
		{fmt.Errorf("load: %w", config.ErrInvalid), exitConfig},
		{fmt.Errorf("list: %w", store.ErrUnavailable), exitUnavailable},
		{fmt.Errorf("chat: %w", llm.ErrModelUnavailable), exitUnavailable},
		{llm.ErrModelProtocol, exitUnavailable},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
