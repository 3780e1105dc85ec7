package otel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are package globals so the dispatcher, model clients and SSE
// hub can record without plumbing. Until Register runs every Record* call is
// a no-op.
var (
	registerOnce      sync.Once
	queriesCounter    metric.Int64Counter
	toolExecCounter   metric.Int64Counter
	modelCallsCounter metric.Int64Counter
	modelCallDuration metric.Float64Histogram
	notifyCounter     metric.Int64Counter
	sseEventsCounter  metric.Int64Counter
	sseConnections    atomic.Int64
)

// TaskCounts is one observation of the task gauges. Overdue tasks are also
// counted as pending.
type TaskCounts struct {
	Pending   int64
	Completed int64
	Overdue   int64
}

// TaskCounter reads the current counts; ok is false when the store could not
// be read, and the gauges are skipped for that collection.
type TaskCounter func(ctx context.Context) (counts TaskCounts, ok bool)

// Register creates the instruments on the current global provider, plus the
// taskagent_tasks gauge when counter is non-nil. Instruments are created once
// per process; later calls only add the task gauge.
func Register(ctx context.Context, counter TaskCounter) error {
	var err error
	registerOnce.Do(func() { err = createInstruments() })
	if err != nil || counter == nil {
		return err
	}
	m := Meter()
	tasks, err := m.Int64ObservableGauge("taskagent_tasks", metric.WithDescription("Tasks by state: pending, completed, overdue"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		c, ok := counter(ctx)
		if !ok {
			return nil
		}
		o.ObserveInt64(tasks, c.Pending, metric.WithAttributes(AttrState.String("pending")))
		o.ObserveInt64(tasks, c.Completed, metric.WithAttributes(AttrState.String("completed")))
		o.ObserveInt64(tasks, c.Overdue, metric.WithAttributes(AttrState.String("overdue")))
		return nil
	}, tasks)
	return err
}

func createInstruments() error {
	m := Meter()
	var err error
	if queriesCounter, err = m.Int64Counter("taskagent_queries_total",
		metric.WithDescription("Chat queries processed, by resulting action")); err != nil {
		return err
	}
	if toolExecCounter, err = m.Int64Counter("taskagent_tool_executions_total",
		metric.WithDescription("Tool executions by action and success")); err != nil {
		return err
	}
	if modelCallsCounter, err = m.Int64Counter("taskagent_model_calls_total",
		metric.WithDescription("Model client calls by provider and outcome")); err != nil {
		return err
	}
	if modelCallDuration, err = m.Float64Histogram("taskagent_model_call_duration_seconds",
		metric.WithDescription("Model call latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60)); err != nil {
		return err
	}
	if notifyCounter, err = m.Int64Counter("taskagent_notifications_total",
		metric.WithDescription("Task change notifications by sink and success")); err != nil {
		return err
	}
	if sseEventsCounter, err = m.Int64Counter("taskagent_sse_events_total",
		metric.WithDescription("Events published on /stream")); err != nil {
		return err
	}
	conns, err := m.Int64ObservableGauge("taskagent_sse_connections",
		metric.WithDescription("Open /stream subscribers"))
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(conns, sseConnections.Load())
		return nil
	}, conns)
	return err
}

// RecordQuery records one dispatcher query and the action it resolved to
// (none, error, batch or a tool name).
func RecordQuery(ctx context.Context, action string) {
	if queriesCounter == nil {
		return
	}
	queriesCounter.Add(ctx, 1, metric.WithAttributes(AttrAction.String(action)))
}

func RecordToolExecution(ctx context.Context, action string, success bool) {
	if toolExecCounter == nil {
		return
	}
	toolExecCounter.Add(ctx, 1, metric.WithAttributes(AttrAction.String(action), AttrSuccess.Bool(success)))
}

// RecordModelCall records a model call with its outcome (ok, unavailable,
// protocol) and latency.
func RecordModelCall(ctx context.Context, provider, outcome string, duration time.Duration) {
	if modelCallsCounter == nil {
		return
	}
	modelCallsCounter.Add(ctx, 1, metric.WithAttributes(AttrProvider.String(provider), AttrOutcome.String(outcome)))
	modelCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(AttrProvider.String(provider)))
}

func RecordNotification(ctx context.Context, sink string, success bool) {
	if notifyCounter == nil {
		return
	}
	notifyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("sink", sink), AttrSuccess.Bool(success)))
}

func RecordSSEEvent(ctx context.Context) {
	if sseEventsCounter != nil {
		sseEventsCounter.Add(ctx, 1)
	}
}

func AddSSEConnection() { sseConnections.Add(1) }

// RemoveSSEConnection decrements the subscriber gauge, never below zero.
func RemoveSSEConnection() {
	for {
		n := sseConnections.Load()
		if n <= 0 || sseConnections.CompareAndSwap(n, n-1) {
			return
		}
	}
}
