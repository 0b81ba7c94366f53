package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/assessd/internal/store"
)

// EventRecorder persists one row per provider call.
type EventRecorder interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// LoggingProvider is a decorator that records every request as an event
// and emits a structured log line.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   EventRecorder
	log      *slog.Logger
}

// WithLogging wraps a Provider with event logging. events may be nil.
func WithLogging(p Provider, providerName string, events EventRecorder, log *slog.Logger) Provider {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingProvider{inner: p, provider: providerName, events: events, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	data := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = resp.Text
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	attrs := []any{
		slog.String("purpose", purpose),
		slog.String("model", data.Model),
		slog.Duration("latency", latency),
		slog.Int("input_tokens", data.InputTokens),
		slog.Int("output_tokens", data.OutputTokens),
	}
	if err != nil {
		l.log.WarnContext(ctx, "llm request failed", append(attrs, slog.Any("error", err))...)
	} else {
		l.log.DebugContext(ctx, "llm request", attrs...)
	}

	if l.events != nil {
		// The event is recorded even when the caller's context is done.
		recCtx := context.WithoutCancel(ctx)
		if logErr := l.events.AppendLLMRequest(recCtx, data); logErr != nil {
			l.log.WarnContext(ctx, "failed to record llm request event", slog.Any("error", logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	return b.String()
}
