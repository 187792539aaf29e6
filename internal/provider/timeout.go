package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a completion when no timeout is configured.
const DefaultTimeout = 30 * time.Second

var errNoHealthCheck = errors.New("provider: health check not supported")

// timeoutProvider bounds every Complete call of the wrapped provider.
type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

var (
	_ Provider      = (*timeoutProvider)(nil)
	_ HealthChecker = (*timeoutProvider)(nil)
)

// WithTimeout wraps p so that Complete fails with ErrTimeout once d has
// elapsed, even if p does not honour its context.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutProvider{next: p, timeout: d}
}

type completeResult struct {
	resp CompletionResponse
	err  error
}

func (t *timeoutProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan completeResult, 1)
	go func() {
		resp, err := t.next.Complete(ctx, req)
		done <- completeResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return CompletionResponse{}, fmt.Errorf("%w after %s: %w", ErrTimeout, t.timeout, res.err)
		}
		return res.resp, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return CompletionResponse{}, fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
		}
		return CompletionResponse{}, ctx.Err()
	}
}

func (t *timeoutProvider) ModelName() string { return t.next.ModelName() }

// HealthCheck forwards to the wrapped provider when it supports probing.
func (t *timeoutProvider) HealthCheck(ctx context.Context) error {
	hc, ok := t.next.(HealthChecker)
	if !ok {
		return errNoHealthCheck
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return hc.HealthCheck(ctx)
}
