package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/backend"
	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/store"
	"github.com/asad-creats/taskagent/pkg/client"
	"github.com/asad-creats/taskagent/pkg/models"
)

// taskService is what the task subcommands need. It is served by the running
// daemon when there is one (so the web UI sees the change), otherwise by the
// configured store directly.
type taskService interface {
	List(ctx context.Context, filter string) ([]models.Task, error)
	Add(ctx context.Context, in models.NewTask) (models.Task, error)
	Update(ctx context.Context, id string, f models.TaskUpdate) (models.Task, error)
	Delete(ctx context.Context, id string) (models.Task, error)
	Stats(ctx context.Context, period string) (models.Productivity, error)
	Close() error
}

func openTasks(ctx context.Context) (taskService, error) {
	home := config.MustHomeFrom(ctx)
	cfg := config.FromContext(ctx)
	if c, ok := daemonClient(ctx, home, cfg); ok {
		if _, err := c.Health(ctx); err == nil {
			return remoteTasks{c: c}, nil
		}
	}
	st, err := backend.OpenStore(ctx, cfg, home, slog.Default())
	if err != nil {
		return nil, err
	}
	return &localTasks{st: st, now: time.Now}, nil
}

type remoteTasks struct {
	c *client.Client
}

func (r remoteTasks) List(ctx context.Context, filter string) ([]models.Task, error) {
	list, err := r.c.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return list.Tasks, nil
}

func (r remoteTasks) Add(ctx context.Context, in models.NewTask) (models.Task, error) {
	t, err := r.c.CreateTask(ctx, in)
	if err != nil {
		return models.Task{}, err
	}
	return *t, nil
}

func (r remoteTasks) Update(ctx context.Context, id string, f models.TaskUpdate) (models.Task, error) {
	t, err := r.c.UpdateTask(ctx, id, f)
	if err != nil {
		return models.Task{}, err
	}
	return *t, nil
}

func (r remoteTasks) Delete(ctx context.Context, id string) (models.Task, error) {
	t, err := r.c.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	return *t, r.c.DeleteTask(ctx, id)
}

func (r remoteTasks) Stats(ctx context.Context, period string) (models.Productivity, error) {
	p, err := r.c.Stats(ctx, period)
	if err != nil {
		return models.Productivity{}, err
	}
	return *p, nil
}

func (remoteTasks) Close() error { return nil }

type localTasks struct {
	st  store.Store
	now func() time.Time
}

func (l *localTasks) today() string { return agent.Today(l.now()) }

func (l *localTasks) List(ctx context.Context, filter string) ([]models.Task, error) {
	tasks, err := l.st.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	today := l.today()
	tasks = agent.FilterTasks(tasks, agent.NormalizeFilter(agent.Filter(filter)), today)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toModel(t, today))
	}
	return out, nil
}

func (l *localTasks) Add(ctx context.Context, in models.NewTask) (models.Task, error) {
	t, err := l.st.CreateTask(ctx, store.NewTask(in))
	if err != nil {
		return models.Task{}, err
	}
	return toModel(t, l.today()), nil
}

func (l *localTasks) Update(ctx context.Context, id string, f models.TaskUpdate) (models.Task, error) {
	if err := l.st.UpdateTask(ctx, id, store.TaskFields(f)); err != nil {
		return models.Task{}, err
	}
	return l.get(ctx, id)
}

func (l *localTasks) Delete(ctx context.Context, id string) (models.Task, error) {
	t, err := l.get(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	return t, l.st.DeleteTask(ctx, id)
}

func (l *localTasks) get(ctx context.Context, id string) (models.Task, error) {
	t, err := l.st.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if t == nil {
		return models.Task{}, store.ErrNotFound
	}
	return toModel(*t, l.today()), nil
}

func (l *localTasks) Stats(ctx context.Context, period string) (models.Productivity, error) {
	tasks, err := l.st.ListTasks(ctx)
	if err != nil {
		return models.Productivity{}, err
	}
	p := agent.Analyze(tasks, agent.NormalizePeriod(agent.Period(period)), l.today())
	var out models.Productivity
	err = convert(p, &out)
	return out, err
}

func (l *localTasks) Close() error { return l.st.Close() }

func toModel(t store.Task, today string) models.Task {
	v := agent.NewTaskView(t, today)
	return models.Task{
		ID:        v.ID,
		Text:      v.Text,
		Date:      v.Date,
		Category:  v.Category,
		Completed: v.Completed,
		Notes:     v.Notes,
		IsOverdue: v.IsOverdue,
	}
}

// fromModel is the inverse of toModel, used to run the analysis helpers on
// tasks fetched from the daemon.
func fromModel(t models.Task) store.Task {
	return store.Task{ID: t.ID, Text: t.Text, Date: t.Date, Category: t.Category, Completed: t.Completed, Notes: t.Notes}
}

// convert re-shapes an internal payload into its API type through JSON, the
// same path the HTTP handlers take.
func convert(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
