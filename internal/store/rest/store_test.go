package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/asad-creats/taskagent/internal/store"
)

// fakeTable is a tiny PostgREST stand-in for one table.
type fakeTable struct {
	mu     sync.Mutex
	rows   []map[string]any
	nextID int
	gotKey string
}

func (f *fakeTable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotKey = r.Header.Get("apikey")
	if r.URL.Path != "/rest/v1/todos" {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	match := func(row map[string]any) bool {
		return id == "" || jsonID(row) == id
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		var out []map[string]any
		for _, row := range f.rows {
			if match(row) {
				out = append(out, row)
			}
		}
		if out == nil {
			out = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		var in []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		for _, row := range in {
			f.nextID++
			row["id"] = f.nextID
			row["completed"] = false
			f.rows = append(f.rows, row)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	case http.MethodPatch:
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		out := []map[string]any{}
		for _, row := range f.rows {
			if match(row) {
				for k, v := range patch {
					row[k] = v
				}
				out = append(out, row)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodDelete:
		out := []map[string]any{}
		kept := f.rows[:0]
		for _, row := range f.rows {
			if match(row) {
				out = append(out, row)
			} else {
				kept = append(kept, row)
			}
		}
		f.rows = kept
		_ = json.NewEncoder(w).Encode(out)
	}
}

func jsonID(row map[string]any) string {
	b, _ := json.Marshal(row["id"])
	return string(b)
}

func TestRestStoreCRUD(t *testing.T) {
	t.Parallel()

	fake := &fakeTable{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	st, err := New(Options{BaseURL: srv.URL, APIKey: "anon-key"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	created, err := st.CreateTask(ctx, store.NewTask{Text: "water plants", Date: "2026-07-01"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID != "1" || created.Category != store.DefaultCategory {
		t.Fatalf("created: %+v", created)
	}
	if fake.gotKey != "anon-key" {
		t.Fatalf("apikey header: %q", fake.gotKey)
	}

	if err := st.SetCompleted(ctx, created.ID, true); err != nil {
		t.Fatalf("SetCompleted: %v", err)
	}
	ts, err := st.ListTasks(ctx)
	if err != nil || len(ts) != 1 || !ts[0].Completed {
		t.Fatalf("ListTasks: %+v, %v", ts, err)
	}

	if err := st.DeleteTask(ctx, "99"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("DeleteTask unknown: %v", err)
	}
	if err := st.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
}

func TestRestStoreUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st, _ := New(Options{BaseURL: srv.URL})
	_, err := st.CreateTask(context.Background(), store.NewTask{Text: "x"})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}

	srv.Close()
	if _, err := st.ListTasks(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("closed server: got %v", err)
	}
}
