package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type slowProvider struct {
	delay time.Duration
}

func (s slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	select {
	case <-time.After(s.delay):
		return &Response{Text: "late"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s slowProvider) ModelID() string { return "slow" }

func TestTimeout_CutsOffSlowProvider(t *testing.T) {
	p := WithTimeout(slowProvider{delay: time.Second}, 10*time.Millisecond)

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{})
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("timeout was not enforced")
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline to be wrapped, got %v", err)
	}
}

func TestTimeout_FastProviderUnaffected(t *testing.T) {
	p := WithTimeout(slowProvider{delay: time.Millisecond}, time.Second)
	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "late" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
}

func TestTimeout_NonPositiveIsNoop(t *testing.T) {
	inner := NewMockProvider()
	if WithTimeout(inner, 0) != Provider(inner) {
		t.Fatal("expected provider to be returned unchanged")
	}
}
