package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/asad-creats/taskagent/internal/otel"
)

// Event types sent on /stream. Every frame carries its type in the "type"
// field of the JSON payload.
const (
	EventConnected    = "connected"
	EventTaskUpdate   = "task_update"
	EventChat         = "chat"
	EventModelsUpdate = "models_update"
)

const (
	replaySize        = 64
	subscriberBuffer  = 256
	keepaliveInterval = 30 * time.Second
)

// Frame is one published event. IDs increase by one per Publish.
type Frame struct {
	ID   uint64
	Data []byte
}

// SSEHub fans task, chat and model events out to every /stream subscriber.
// It keeps the last replaySize frames so a browser that reconnects with
// Last-Event-ID gets the task updates it missed.
type SSEHub struct {
	mu     sync.RWMutex
	subs   map[chan Frame]struct{}
	seq    uint64
	recent []Frame
}

func NewSSEHub() *SSEHub {
	return &SSEHub{subs: make(map[chan Frame]struct{})}
}

// Subscribe registers a live subscriber with no backlog.
func (h *SSEHub) Subscribe() chan Frame {
	ch, _ := h.subscribeAfter(0, false)
	return ch
}

// subscribeAfter registers a subscriber and, when replay is set, returns the
// retained frames with ID > after. Both happen under one lock so no frame is
// lost or delivered twice.
func (h *SSEHub) subscribeAfter(after uint64, replay bool) (chan Frame, []Frame) {
	ch := make(chan Frame, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	var backlog []Frame
	if replay {
		for _, f := range h.recent {
			if f.ID > after {
				backlog = append(backlog, f)
			}
		}
	}
	h.mu.Unlock()
	otel.AddSSEConnection()
	return ch, backlog
}

func (h *SSEHub) Unsubscribe(ch chan Frame) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
		otel.RemoveSSEConnection()
	}
	h.mu.Unlock()
}

// Publish sends an event of the given type. fields must not contain "type".
// Slow subscribers miss frames rather than blocking the publisher.
func (h *SSEHub) Publish(eventType string, fields map[string]any) {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["type"] = eventType
	b, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("sse: dropping unencodable event", "type", eventType, "err", err)
		return
	}
	otel.RecordSSEEvent(context.Background())

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	f := Frame{ID: h.seq, Data: b}
	h.recent = append(h.recent, f)
	if len(h.recent) > replaySize {
		h.recent = h.recent[len(h.recent)-replaySize:]
	}
	for ch := range h.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// Subscribers returns the number of open streams.
func (h *SSEHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func writeFrame(w http.ResponseWriter, f Frame) {
	if f.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", f.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", f.Data)
}

func (h *SSEHub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
		ch, backlog := h.subscribeAfter(lastID, err == nil)
		defer h.Unsubscribe(ch)

		writeFrame(w, Frame{Data: []byte(`{"type":"` + EventConnected + `"}`)})
		for _, f := range backlog {
			writeFrame(w, f)
		}
		flusher.Flush()

		keepalive := time.NewTicker(keepaliveInterval)
		defer keepalive.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive.C:
				_, _ = fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case f, ok := <-ch:
				if !ok {
					return
				}
				writeFrame(w, f)
				flusher.Flush()
			}
		}
	}
}
