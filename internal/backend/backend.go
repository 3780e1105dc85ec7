// Package backend builds the task store and model client named by the config.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/notify"
	"github.com/asad-creats/taskagent/internal/store"
	"github.com/asad-creats/taskagent/internal/store/googletasks"
	"github.com/asad-creats/taskagent/internal/store/postgres"
	"github.com/asad-creats/taskagent/internal/store/rest"
)

// OpenStore opens the store selected by cfg.Store.Driver. Remote drivers are
// wrapped in a store.Fallback when cfg.Store.Fallback is set.
func OpenStore(ctx context.Context, cfg *config.Config, home string, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.Store
	var (
		st     store.Store
		remote bool
		err    error
	)
	switch sc.Driver {
	case config.DriverSQLite, "":
		st, err = store.OpenWithOptions(store.OpenOptions{Home: home, DSN: sc.DSN})
	case config.DriverMemory:
		st = store.NewMemory()
	case config.DriverPostgres:
		st, err = postgres.Open(ctx, sc.DSN)
		remote = true
	case config.DriverREST:
		st, err = rest.New(rest.Options{BaseURL: sc.RESTURL, APIKey: sc.RESTKey, Table: sc.RESTTable})
		remote = true
	case config.DriverGoogleTasks:
		st, err = googletasks.New(ctx, googletasks.Options{
			CredentialsPath: sc.GoogleCredentials,
			TokenPath:       sc.GoogleToken,
			ListID:          sc.GoogleList,
		})
		remote = true
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Driver, err)
	}
	logger.Debug("task store opened", "driver", sc.Driver, "fallback", remote && sc.Fallback)
	if remote && sc.Fallback {
		return store.NewFallback(st, logger), nil
	}
	return st, nil
}

// NewClient builds the model client selected by cfg.LLM, instrumented for metrics.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*llm.Instrumented, error) {
	c, err := llm.New(ctx, llm.Options{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		OllamaURL: cfg.LLM.OllamaURL,
		OpenAIURL: cfg.LLM.OpenAIURL,
		APIKey:    cfg.LLM.APIKey,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return llm.Instrument(c, logger), nil
}

// NewNotifier returns a Fanout over the sinks configured in cfg.Notify, or nil
// when none are.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *notify.Fanout {
	nc := cfg.Notify
	if nc.SlackWebhook == "" && nc.WebhookURL == "" {
		return nil
	}
	f := notify.NewFanout(0, logger)
	if nc.SlackWebhook != "" {
		f.Register(notify.SlackWebhook{WebhookURL: nc.SlackWebhook, Channel: nc.SlackChannel, Username: "taskagent"})
	}
	if nc.WebhookURL != "" {
		f.Register(notify.Webhook{URL: nc.WebhookURL})
	}
	return f
}
