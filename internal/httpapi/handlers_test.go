package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, url, data, err)
		}
	}
	return resp.StatusCode
}

// TestTaskHandlers exercises the task routes end to end against SQLite.
func TestTaskHandlers(t *testing.T) {
	t.Parallel()
	_, ts := newTestApp(t, &cannedModel{replies: []string{"Break it into steps.\n- one\n- two"}}, ServerOptions{})

	if code := doJSON(t, http.MethodPost, ts.URL+"/tasks", `{"text":""}`, nil); code != http.StatusBadRequest {
		t.Fatalf("POST empty text: status=%d", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/tasks", `{"text":"x","date":"June 1"}`, nil); code != http.StatusBadRequest {
		t.Fatalf("POST bad date: status=%d", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/tasks", `{not json`, nil); code != http.StatusBadRequest {
		t.Fatalf("POST bad json: status=%d", code)
	}

	var created struct {
		ID       string `json:"id"`
		Category string `json:"category"`
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/tasks", `{"text":"write report","date":"2020-01-01"}`, &created); code != http.StatusCreated {
		t.Fatalf("POST task: status=%d", code)
	}
	if created.ID == "" || created.Category != "General" {
		t.Fatalf("unexpected created task: %+v", created)
	}
	taskURL := ts.URL + "/tasks/" + created.ID

	var overdue struct {
		Count int `json:"count"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/tasks?filter=overdue", "", &overdue)
	if overdue.Count != 1 {
		t.Fatalf("overdue count=%d", overdue.Count)
	}

	var patched struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	if code := doJSON(t, http.MethodPatch, taskURL, `{"text":"write final report","category":"Work"}`, &patched); code != http.StatusOK {
		t.Fatalf("PATCH: status=%d", code)
	}
	if patched.Text != "write final report" || patched.Category != "Work" {
		t.Fatalf("PATCH result: %+v", patched)
	}

	var toggled struct {
		Completed bool `json:"completed"`
		IsOverdue bool `json:"isOverdue"`
	}
	if code := doJSON(t, http.MethodPost, taskURL+"/toggle", "", &toggled); code != http.StatusOK {
		t.Fatalf("toggle: status=%d", code)
	}
	if !toggled.Completed || toggled.IsOverdue {
		t.Fatalf("toggle result: %+v", toggled)
	}

	var stats struct {
		Stats struct {
			Total          int `json:"total"`
			Completed      int `json:"completed"`
			CompletionRate int `json:"completionRate"`
		} `json:"stats"`
		Categories map[string]struct {
			Total int `json:"total"`
		} `json:"categories"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/tasks/stats", "", &stats)
	if stats.Stats.Total != 1 || stats.Stats.Completed != 1 || stats.Stats.CompletionRate != 100 {
		t.Fatalf("stats: %+v", stats)
	}
	if stats.Categories["Work"].Total != 1 {
		t.Fatalf("categories: %+v", stats.Categories)
	}

	var sugg struct {
		Success     bool   `json:"success"`
		Suggestions string `json:"suggestions"`
	}
	if code := doJSON(t, http.MethodPost, taskURL+"/suggestions", "", &sugg); code != http.StatusOK {
		t.Fatalf("suggestions: status=%d", code)
	}
	if !sugg.Success || !strings.HasPrefix(sugg.Suggestions, "Break it into steps.") {
		t.Fatalf("suggestions: %+v", sugg)
	}

	if code := doJSON(t, http.MethodDelete, taskURL, "", nil); code != http.StatusOK {
		t.Fatalf("DELETE: status=%d", code)
	}
	if code := doJSON(t, http.MethodGet, taskURL, "", nil); code != http.StatusNotFound {
		t.Fatalf("GET deleted: status=%d", code)
	}
	if code := doJSON(t, http.MethodPatch, taskURL, `{"text":"ghost"}`, nil); code != http.StatusNotFound {
		t.Fatalf("PATCH deleted: status=%d", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/tasks/abc/toggle", "", nil); code != http.StatusNotFound {
		t.Fatalf("toggle unknown: status=%d", code)
	}
	if code := doJSON(t, http.MethodGet, taskURL+"/nope", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown sub-route: status=%d", code)
	}
	if code := doJSON(t, http.MethodPut, ts.URL+"/tasks", "{}", nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT /tasks: status=%d", code)
	}
}

// TestChatHandlers drives the dispatcher through /chat and inspects the session.
func TestChatHandlers(t *testing.T) {
	t.Parallel()
	model := &cannedModel{replies: []string{
		`[{"action":"create_task","parameters":{"text":"learn python"}},{"action":"create_task","parameters":{"text":"practice coding"}}]`,
		"Hello! How can I help?",
	}}
	_, ts := newTestApp(t, model, ServerOptions{})

	if code := doJSON(t, http.MethodPost, ts.URL+"/chat", `{"message":"   "}`, nil); code != http.StatusBadRequest {
		t.Fatalf("empty message: status=%d", code)
	}

	var first struct {
		SessionID   string   `json:"session_id"`
		Response    string   `json:"response"`
		Action      string   `json:"action"`
		Actions     []string `json:"actions"`
		ToolResults []any    `json:"tool_results"`
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/chat", `{"message":"add tasks to learn python and practice coding"}`, &first); code != http.StatusOK {
		t.Fatalf("chat: status=%d", code)
	}
	if first.SessionID == "" || first.Action != "batch" || len(first.Actions) != 2 || len(first.ToolResults) != 2 {
		t.Fatalf("chat response: %+v", first)
	}
	if !strings.HasPrefix(first.Response, "✅ Done! Successfully completed all 2 actions.") {
		t.Fatalf("chat reply: %q", first.Response)
	}

	var second struct {
		SessionID string `json:"session_id"`
		Response  string `json:"response"`
		Action    string `json:"action"`
	}
	body, _ := json.Marshal(map[string]string{"session_id": first.SessionID, "message": "hello"})
	doJSON(t, http.MethodPost, ts.URL+"/chat", string(body), &second)
	if second.SessionID != first.SessionID || second.Action != "none" || second.Response != "Hello! How can I help?" {
		t.Fatalf("second chat: %+v", second)
	}

	var sess struct {
		ID    string `json:"id"`
		Turns []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"turns"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/sessions/"+first.SessionID, "", &sess); code != http.StatusOK {
		t.Fatalf("GET session: status=%d", code)
	}
	if len(sess.Turns) != 4 || sess.Turns[2].Content != "hello" {
		t.Fatalf("turns: %+v", sess.Turns)
	}
	if code := doJSON(t, http.MethodDelete, ts.URL+"/sessions/"+first.SessionID, "", nil); code != http.StatusOK {
		t.Fatalf("DELETE session: status=%d", code)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/sessions/"+first.SessionID, "", nil); code != http.StatusNotFound {
		t.Fatalf("GET deleted session: status=%d", code)
	}

	var tasks struct {
		Count int `json:"count"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/tasks", "", &tasks)
	if tasks.Count != 2 {
		t.Fatalf("tasks after chat: %d", tasks.Count)
	}
}

func TestInfoHandlers(t *testing.T) {
	t.Parallel()
	_, ts := newTestApp(t, &cannedModel{}, ServerOptions{})

	var models struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/models", "", &models)
	if len(models.Models) != 1 || models.Models[0].Name != "canned" {
		t.Fatalf("models: %+v", models)
	}

	var cfg map[string]any
	doJSON(t, http.MethodGet, ts.URL+"/config", "", &cfg)
	if cfg["store"] != "sqlite" || cfg["provider"] != "unknown" {
		t.Fatalf("config: %+v", cfg)
	}

	_ = doJSON(t, http.MethodPost, ts.URL+"/tasks", `{"text":"m","date":"2020-01-01"}`, nil)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `taskagent_tasks{state="overdue"} 1`) {
		t.Fatalf("metrics body: %s", buf.String())
	}
}
