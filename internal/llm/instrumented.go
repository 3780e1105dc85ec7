package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/asad-creats/taskagent/internal/otel"
)

// Instrumented records metrics and debug logs around another Client.
type Instrumented struct {
	Client
	log *slog.Logger
}

// Instrument wraps c. logger may be nil (slog.Default()).
func Instrument(c Client, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{Client: c, log: logger}
}

func (i *Instrumented) Chat(ctx context.Context, messages []Message, model string) (string, error) {
	provider, _, _ := Describe(i.Client)
	start := time.Now()
	out, err := i.Client.Chat(ctx, messages, model)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrModelProtocol):
		outcome = "protocol"
	case err != nil:
		outcome = "unavailable"
	}
	otel.RecordModelCall(ctx, provider, outcome, elapsed)
	i.log.Debug("model call", "provider", provider, "model", model, "messages", len(messages), "outcome", outcome, "duration_ms", elapsed.Milliseconds())
	return out, err
}

func (i *Instrumented) Provider() string {
	p, _, _ := Describe(i.Client)
	return p
}

func (i *Instrumented) DefaultModel() string {
	_, m, _ := Describe(i.Client)
	return m
}

func (i *Instrumented) UnavailableHint() string {
	_, _, h := Describe(i.Client)
	return h
}
