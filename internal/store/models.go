// Package store defines the task persistence interface and its SQLite, in-memory, and fallback implementations.
package store

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for Task.Date.
const DateLayout = "2006-01-02"

// DefaultCategory is applied when a task is created without a category.
const DefaultCategory = "General"

// Task is a single to-do item.
type Task struct {
	ID        string
	Text      string
	Date      string // YYYY-MM-DD
	Category  string
	Completed bool
	Notes     string
	CreatedAt time.Time
}

// NewTask holds the fields accepted at creation. Empty Date and Category are
// filled in by Normalize.
type NewTask struct {
	Text     string
	Date     string
	Category string
	Notes    string
}

// TaskFields is a partial update; nil fields are left unchanged.
type TaskFields struct {
	Text      *string
	Date      *string
	Category  *string
	Notes     *string
	Completed *bool
}

// Empty reports whether the update changes nothing.
func (f TaskFields) Empty() bool {
	return f.Text == nil && f.Date == nil && f.Category == nil && f.Notes == nil && f.Completed == nil
}

// ValidDate reports whether s is a real calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Normalize trims the input and applies defaults (today for Date, DefaultCategory for Category).
func (n NewTask) Normalize(now time.Time) (NewTask, error) {
	n.Text = strings.TrimSpace(n.Text)
	n.Date = strings.TrimSpace(n.Date)
	n.Category = strings.TrimSpace(n.Category)
	if n.Text == "" {
		return n, ErrTextRequired
	}
	if n.Date == "" {
		n.Date = now.Format(DateLayout)
	}
	if !ValidDate(n.Date) {
		return n, &InvalidDateError{Date: n.Date}
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	return n, nil
}

// Validate checks the fields of a partial update.
func (f TaskFields) Validate() error {
	if f.Text != nil && strings.TrimSpace(*f.Text) == "" {
		return ErrTextRequired
	}
	if f.Date != nil && !ValidDate(*f.Date) {
		return &InvalidDateError{Date: *f.Date}
	}
	return nil
}

// Apply copies the non-nil fields onto t.
func (f TaskFields) Apply(t *Task) {
	if f.Text != nil {
		t.Text = strings.TrimSpace(*f.Text)
	}
	if f.Date != nil {
		t.Date = *f.Date
	}
	if f.Category != nil {
		t.Category = *f.Category
		if t.Category == "" {
			t.Category = DefaultCategory
		}
	}
	if f.Notes != nil {
		t.Notes = *f.Notes
	}
	if f.Completed != nil {
		t.Completed = *f.Completed
	}
}

// SortTasks orders tasks by date ascending, keeping creation order within a day.
func SortTasks(ts []Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Date != ts[j].Date {
			return ts[i].Date < ts[j].Date
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
}
