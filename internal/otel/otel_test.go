package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics: status=%d", rec.Code)
	}
	return rec.Body.String()
}

func TestStart_servesRuntimeAndResource(t *testing.T) {
	ctx := context.Background()
	p, err := Start(ctx, Resource{Version: "v0.0.1-test", StoreDriver: "sqlite", LLMProvider: "ollama"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	body := scrape(t, p.Handler)
	if !strings.Contains(body, "go_goroutines") {
		t.Error("Go runtime collector missing from /metrics")
	}
	for _, want := range []string{`service_name="taskagent"`, `service_version="v0.0.1-test"`, `taskagent_store_driver="sqlite"`} {
		if !strings.Contains(body, want) {
			t.Errorf("target_info missing %s", want)
		}
	}
}

func TestResourceAttributes_defaults(t *testing.T) {
	attrs := Resource{}.attributes()
	if len(attrs) != 2 {
		t.Fatalf("want service name and version only, got %v", attrs)
	}
	if attrs[0].Value.AsString() != "taskagent" || attrs[1].Value.AsString() == "" {
		t.Errorf("defaults: %v", attrs)
	}
}

func TestProviderShutdown_nil(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil Shutdown: %v", err)
	}
}
