package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/asad-creats/taskagent/internal/agent"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	agent.Response
}

// handleChat serves POST /chat: one user message through the session's dispatcher.
// An empty or unknown session_id starts a new session.
func (a *App) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, agent.ErrEmptyMessage.Error())
		return
	}
	sess := a.Sessions.GetOrCreate(body.SessionID)
	resp, err := sess.Send(r.Context(), body.Message)
	switch {
	case errors.Is(err, agent.ErrBusy):
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.Hub.Publish(EventChat, map[string]any{
		"session_id": sess.ID,
		"action":     resp.Action,
	})
	writeJSON(w, chatResponse{SessionID: sess.ID, Response: resp})
}

// handleSession serves GET and DELETE /sessions/{id}.
func (a *App) handleSession(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		sess, ok := a.Sessions.Get(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, map[string]any{"id": sess.ID, "turns": sess.Turns()})
	case http.MethodDelete:
		if !a.Sessions.Delete(id) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
