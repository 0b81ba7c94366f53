package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/assessd/internal/store"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordedEvents) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogging_RecordsSuccess(t *testing.T) {
	rec := &recordedEvents{}
	mock := NewMockProvider(MockResponse{Text: "[]", Usage: Usage{InputTokens: 12, OutputTokens: 3}})
	p := WithLogging(mock, "mock", rec, discardLogger())

	ctx := WithPurpose(context.Background(), PurposeLearnerQuiz)
	if _, err := p.Generate(ctx, UserRequest("be strict", "Topic: SQL joins", 100, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Purpose != PurposeLearnerQuiz || !ev.Success {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.InputTokens != 12 || ev.OutputTokens != 3 {
		t.Fatalf("unexpected usage: %+v", ev)
	}
	if ev.ResponseBody != "[]" {
		t.Fatalf("expected response body to be recorded, got %q", ev.ResponseBody)
	}
	if !strings.Contains(ev.RequestBody, "[system]\nbe strict") || !strings.Contains(ev.RequestBody, "Topic: SQL joins") {
		t.Fatalf("unexpected request body: %q", ev.RequestBody)
	}
}

func TestLogging_RecordsFailure(t *testing.T) {
	rec := &recordedEvents{}
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}})
	p := WithLogging(mock, "mock", rec, discardLogger())

	_, err := p.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit to pass through, got %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Success || rec.events[0].ErrorMessage == "" {
		t.Fatalf("expected failed event, got %+v", rec.events)
	}
}

func TestLogging_RecorderErrorDoesNotFailRequest(t *testing.T) {
	rec := &recordedEvents{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Text: "fine"})
	p := WithLogging(mock, "mock", rec, discardLogger())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "fine" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
}

func TestLogging_NilRecorder(t *testing.T) {
	p := WithLogging(NewMockProvider(MockResponse{Text: "x"}), "mock", nil, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
