package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/asad-creats/taskagent/pkg/models"
)

// Event is one frame of the daemon's /stream. ID is 0 for the connected
// greeting, which is not part of the replay sequence.
type Event struct {
	ID   uint64
	Type string
	Data json.RawMessage
}

// TaskUpdate decodes a task_update frame.
func (e Event) TaskUpdate() (*TaskEvent, error) {
	var te TaskEvent
	if err := json.Unmarshal(e.Data, &te); err != nil {
		return nil, err
	}
	return &te, nil
}

// TaskEvent is the body of a task_update frame.
type TaskEvent struct {
	Action string       `json:"action"`
	Task   *models.Task `json:"task,omitempty"`
}

// ErrStopEvents can be returned from the Events callback to end the stream
// without an error.
var ErrStopEvents = errors.New("stop events")

// Events follows /stream and calls fn for every frame until ctx ends or fn
// returns an error. A non-zero lastID asks the daemon to replay the frames
// published after it that it still holds.
func (c *Client) Events(ctx context.Context, lastID uint64, fn func(Event) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastID > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatUint(lastID, 10))
	}
	// The stream outlives any per-request timeout.
	hc := *c.hc
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return newAPIError(http.MethodGet, "/stream", resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	var (
		id   uint64
		data strings.Builder
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			ev := Event{ID: id, Data: json.RawMessage(data.String())}
			var head struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(ev.Data, &head) == nil {
				ev.Type = head.Type
			}
			id = 0
			data.Reset()
			if err := fn(ev); err != nil {
				if errors.Is(err, ErrStopEvents) {
					return nil
				}
				return err
			}
		case strings.HasPrefix(line, ":"):
			// keepalive
		case strings.HasPrefix(line, "id:"):
			id, _ = strconv.ParseUint(strings.TrimSpace(line[3:]), 10, 64)
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(line[5:], " "))
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sc.Err()
}
