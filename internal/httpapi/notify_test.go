package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/asad-creats/taskagent/internal/notify"
)

type chanSink struct{ ch chan notify.Event }

func (s chanSink) Name() string { return "test" }

func (s chanSink) Notify(_ context.Context, ev notify.Event) error {
	s.ch <- ev
	return nil
}

func nextEvent(t *testing.T, ch <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
		return notify.Event{}
	}
}

func TestTaskChangesAreForwarded(t *testing.T) {
	t.Parallel()

	sink := chanSink{ch: make(chan notify.Event, 8)}
	fan := notify.NewFanout(time.Second, nil)
	fan.Register(sink)
	model := &cannedModel{replies: []string{`{"action":"complete_task","parameters":{"taskText":"rent"}}`}}
	_, ts := newTestApp(t, model, ServerOptions{Notify: fan})

	var created struct {
		ID string `json:"id"`
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/tasks", `{"text":"Pay rent","date":"2025-07-01"}`, &created); code != http.StatusCreated {
		t.Fatalf("POST /tasks status=%d", code)
	}
	ev := nextEvent(t, sink.ch)
	if ev.Action != notify.Created || ev.TaskID != created.ID || ev.Text != "Pay rent" || ev.Date != "2025-07-01" {
		t.Fatalf("created event: %+v", ev)
	}

	// Completion through chat is forwarded with the completed verb.
	if code := doJSON(t, http.MethodPost, ts.URL+"/chat", `{"message":"I paid the rent"}`, nil); code != http.StatusOK {
		t.Fatalf("POST /chat status=%d", code)
	}
	ev = nextEvent(t, sink.ch)
	if ev.Action != notify.Completed || ev.TaskID != created.ID {
		t.Fatalf("chat completion event: %+v", ev)
	}

	// Toggling back is an update.
	if code := doJSON(t, http.MethodPost, fmt.Sprintf("%s/tasks/%s/toggle", ts.URL, created.ID), "", nil); code != http.StatusOK {
		t.Fatalf("toggle status=%d", code)
	}
	ev = nextEvent(t, sink.ch)
	if ev.Action != notify.Updated || !strings.Contains(ev.Message(), "Pay rent") {
		t.Fatalf("toggle event: %+v", ev)
	}
}
