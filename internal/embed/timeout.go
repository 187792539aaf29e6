package embed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single Embed call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

type timeoutEmbedder struct {
	next    Embedder
	timeout time.Duration
}

// WithTimeout bounds every Embed call of next to d. The call returns as
// soon as the deadline passes even if next ignores its context; the
// late result is discarded.
func WithTimeout(next Embedder, d time.Duration) Embedder {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutEmbedder{next: next, timeout: d}
}

type embedResult struct {
	vec []float32
	err error
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan embedResult, 1)
	go func() {
		vec, err := t.next.Embed(ctx, text)
		done <- embedResult{vec: vec, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, t.timeout, res.err)
		}
		if res.err == nil && len(res.vec) != t.next.Dimensions() {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrBadDimensions, len(res.vec), t.next.Dimensions())
		}
		return res.vec, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
		}
		return nil, ctx.Err()
	}
}

func (t *timeoutEmbedder) Dimensions() int { return t.next.Dimensions() }
func (t *timeoutEmbedder) Model() string   { return t.next.Model() }
