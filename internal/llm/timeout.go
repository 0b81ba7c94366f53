package llm

import (
	"context"
	"errors"
	"time"
)

// TimeoutProvider bounds each call to the wrapped provider.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so every Generate call is cut off after d. A
// non-positive d returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.inner.Generate(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &ErrProviderUnavailable{Err: context.DeadlineExceeded}
	}
	return resp, err
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
