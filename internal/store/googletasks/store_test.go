package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/asad-creats/taskagent/internal/store"
)

// fakeTasksAPI serves the subset of the Tasks v1 REST surface the store uses.
type fakeTasksAPI struct {
	mu    sync.Mutex
	items map[string]*tasks.Task
	next  int
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/tasks/v1/lists/@default/tasks"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case id == "" && r.Method == http.MethodGet:
		resp := tasks.Tasks{}
		for _, t := range f.items {
			resp.Items = append(resp.Items, t)
		}
		_ = json.NewEncoder(w).Encode(resp)
	case id == "" && r.Method == http.MethodPost:
		var t tasks.Task
		_ = json.NewDecoder(r.Body).Decode(&t)
		f.next++
		t.Id = "g" + strconv.Itoa(f.next)
		t.Updated = "2026-01-01T00:00:00.000Z"
		f.items[t.Id] = &t
		_ = json.NewEncoder(w).Encode(t)
	default:
		t, ok := f.items[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(t)
		case http.MethodPatch:
			var p tasks.Task
			_ = json.NewDecoder(r.Body).Decode(&p)
			if p.Status != "" {
				t.Status = p.Status
			}
			if p.Notes != "" {
				t.Notes = p.Notes
			}
			if p.Title != "" {
				t.Title = p.Title
			}
			_ = json.NewEncoder(w).Encode(t)
		case http.MethodDelete:
			delete(f.items, id)
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	srv := httptest.NewServer(&fakeTasksAPI{items: map[string]*tasks.Task{}})
	t.Cleanup(srv.Close)
	st, err := NewWithHTTPClient(context.Background(), srv.Client(), "", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return st
}

func TestCreateListComplete(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateTask(ctx, store.NewTask{Text: "renew passport", Date: "2026-06-01", Category: "Errands"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.Date != "2026-06-01" || created.Category != "Errands" {
		t.Fatalf("round trip lost fields: %+v", created)
	}

	if err := st.SetCompleted(ctx, created.ID, true); err != nil {
		t.Fatalf("SetCompleted: %v", err)
	}
	if err := st.UpdateTask(ctx, created.ID, store.TaskFields{Notes: ptr("bring photos")}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	ts, err := st.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(ts) != 1 || !ts[0].Completed || ts[0].Notes != "bring photos" || ts[0].Category != "Errands" {
		t.Fatalf("ListTasks: %+v", ts)
	}
}

func TestNotFoundMapping(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	if err := st.DeleteTask(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("DeleteTask: %v", err)
	}
	got, err := st.GetTask(ctx, "missing")
	if got != nil || err != nil {
		t.Fatalf("GetTask: %+v, %v", got, err)
	}
}

func TestNotesEncoding(t *testing.T) {
	t.Parallel()

	c, n := decodeNotes(encodeNotes("Work", "line1\nline2"))
	if c != "Work" || n != "line1\nline2" {
		t.Fatalf("got %q %q", c, n)
	}
	c, n = decodeNotes("plain notes")
	if c != store.DefaultCategory || n != "plain notes" {
		t.Fatalf("legacy notes: %q %q", c, n)
	}
}

func ptr(s string) *string { return &s }
