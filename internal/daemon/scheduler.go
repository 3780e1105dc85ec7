package daemon

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/asad-creats/taskagent/internal/httpapi"
	"github.com/asad-creats/taskagent/internal/llm"
)

// runScheduler polls the model backend and publishes models_update when the
// set of available models changes, and evicts idle chat sessions. It returns
// when ctx is done.
func runScheduler(ctx context.Context, app *httpapi.App, sched schedule, log *slog.Logger) {
	interval := sched.ModelPoll
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := modelNames(app.Client.ListModels(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sched.SessionIdle > 0 {
				app.PruneSessions(sched.SessionIdle)
			}
			models := app.Client.ListModels(ctx)
			names := modelNames(models)
			if slices.Equal(names, last) {
				continue
			}
			provider, _, _ := llm.Describe(app.Client)
			log.Info("available models changed", "provider", provider, "before", len(last), "after", len(names))
			last = names
			app.Hub.Publish(httpapi.EventModelsUpdate, map[string]any{
				"provider":  provider,
				"connected": len(models) > 0,
				"models":    models,
			})
		}
	}
}

func modelNames(models []llm.ModelInfo) []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	slices.Sort(names)
	return names
}
