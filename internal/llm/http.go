package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// newHTTPClient returns a client whose transport is instrumented with otelhttp.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// doJSON sends in (when non-nil) as JSON and decodes the 2xx body into out.
// Transport errors and non-2xx statuses are ErrModelUnavailable; an
// undecodable 2xx body is ErrModelProtocol.
func doJSON(ctx context.Context, client *http.Client, provider, op, method, url string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return unavailable(provider, op, 0, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return unavailable(provider, op, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return unavailable(provider, op, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(b))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return protocol(provider, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
