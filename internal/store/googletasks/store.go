// Package googletasks implements store.Store on a single Google Tasks list.
//
// Google Tasks has no category or calendar-date-only field, so the category is
// kept as a leading "category: <name>" line in the task notes and the date in
// the Due timestamp (midnight UTC).
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/asad-creats/taskagent/internal/store"
)

const (
	// DefaultListID is the special ID for the user's default list.
	DefaultListID = "@default"

	// APITimeout bounds each API call.
	APITimeout = 5 * time.Second

	tasksScope = "https://www.googleapis.com/auth/tasks"

	categoryPrefix = "category: "
	statusDone     = "completed"
	statusOpen     = "needsAction"
)

// Options locate the OAuth client secret, the saved token and the list to use.
type Options struct {
	CredentialsPath string // oauth client JSON downloaded from the Cloud console
	TokenPath       string // token JSON saved by a prior consent flow
	ListID          string // defaults to DefaultListID
}

// Store keeps tasks in one Google Tasks list.
type Store struct {
	svc    *tasks.Service
	listID string
}

var _ store.Store = (*Store)(nil)

// New builds a Store from an OAuth client file and a stored token.
func New(ctx context.Context, opts Options) (*Store, error) {
	clientJSON, err := os.ReadFile(opts.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid google credentials: %w", err)
	}
	tokenData, err := os.ReadFile(opts.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("read google token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid google token: %w", err)
	}
	// The token source refreshes for the lifetime of the process, not ctx.
	httpClient := oauth2.NewClient(context.Background(), oauthConfig.TokenSource(context.Background(), &token))
	return NewWithHTTPClient(ctx, httpClient, opts.ListID)
}

// NewWithHTTPClient creates a store with a custom HTTP client (tests point it
// at an httptest server with option.WithEndpoint).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, extra ...option.ClientOption) (*Store, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, extra...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if listID == "" {
		listID = DefaultListID
	}
	return &Store{svc: svc, listID: listID}, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]store.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	out := []store.Task{}
	err := s.svc.Tasks.List(s.listID).
		MaxResults(100).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				out = append(out, fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list", err)
	}
	store.SortTasks(out)
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*store.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	t, err := s.svc.Tasks.Get(s.listID, id).Context(ctx).Do()
	if err != nil {
		err = wrapError("get", err)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	task := fromAPI(t)
	return &task, nil
}

func (s *Store) CreateTask(ctx context.Context, in store.NewTask) (store.Task, error) {
	in, err := in.Normalize(time.Now())
	if err != nil {
		return store.Task{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := s.svc.Tasks.Insert(s.listID, &tasks.Task{
		Title:  in.Text,
		Notes:  encodeNotes(in.Category, in.Notes),
		Due:    dueFromDate(in.Date),
		Status: statusOpen,
	}).Context(ctx).Do()
	if err != nil {
		return store.Task{}, wrapError("create", err)
	}
	return fromAPI(created), nil
}

func (s *Store) SetCompleted(ctx context.Context, id string, completed bool) error {
	return s.UpdateTask(ctx, id, store.TaskFields{Completed: &completed})
}

func (s *Store) UpdateTask(ctx context.Context, id string, f store.TaskFields) error {
	if err := f.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	patch := &tasks.Task{}
	if f.Text != nil {
		patch.Title = strings.TrimSpace(*f.Text)
	}
	if f.Date != nil {
		patch.Due = dueFromDate(*f.Date)
	}
	if f.Completed != nil {
		patch.Status = statusOpen
		if *f.Completed {
			patch.Status = statusDone
		} else {
			patch.NullFields = append(patch.NullFields, "Completed")
		}
	}
	if f.Category != nil || f.Notes != nil {
		// Category and notes share one field, so merge with the current value.
		cur, err := s.svc.Tasks.Get(s.listID, id).Context(ctx).Do()
		if err != nil {
			return wrapError("update", err)
		}
		category, notes := decodeNotes(cur.Notes)
		if f.Category != nil {
			category = *f.Category
		}
		if f.Notes != nil {
			notes = *f.Notes
		}
		patch.Notes = encodeNotes(category, notes)
	}
	if _, err := s.svc.Tasks.Patch(s.listID, id, patch).Context(ctx).Do(); err != nil {
		return wrapError("update", err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := s.svc.Tasks.Delete(s.listID, id).Context(ctx).Do(); err != nil {
		return wrapError("delete", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func fromAPI(t *tasks.Task) store.Task {
	category, notes := decodeNotes(t.Notes)
	out := store.Task{
		ID:        t.Id,
		Text:      t.Title,
		Category:  category,
		Notes:     notes,
		Completed: t.Status == statusDone,
	}
	if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
		out.Date = due.UTC().Format(store.DateLayout)
	} else {
		out.Date = time.Now().Format(store.DateLayout)
	}
	if updated, err := time.Parse(time.RFC3339, t.Updated); err == nil {
		out.CreatedAt = updated.UTC()
	}
	return out
}

func dueFromDate(date string) string {
	return date + "T00:00:00.000Z"
}

func encodeNotes(category, notes string) string {
	if category == "" {
		category = store.DefaultCategory
	}
	if notes == "" {
		return categoryPrefix + category
	}
	return categoryPrefix + category + "\n" + notes
}

func decodeNotes(raw string) (category, notes string) {
	first, rest, _ := strings.Cut(raw, "\n")
	if c, ok := strings.CutPrefix(first, categoryPrefix); ok {
		if c == "" {
			c = store.DefaultCategory
		}
		return c, rest
	}
	return store.DefaultCategory, raw
}

// wrapError maps API errors onto the store taxonomy.
func wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return store.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return &store.Error{Backend: "googletasks", Op: op, Err: fmt.Errorf("token expired or revoked: %w", err)}
		}
	}
	return store.Unavailable("googletasks", op, err)
}
