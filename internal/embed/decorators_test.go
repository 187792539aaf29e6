package embed_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/flemzord/recall/internal/embed"
	"github.com/flemzord/recall/internal/embed/embedtest"
)

func TestWithTimeout_Expires(t *testing.T) {
	t.Parallel()

	slow := &embedtest.Static{
		Dims: 2,
		EmbedFunc: func(ctx context.Context, _ string) ([]float32, error) {
			select {
			case <-time.After(2 * time.Second):
				return []float32{0, 0}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	e := embed.WithTimeout(slow, 20*time.Millisecond)
	_, err := e.Embed(context.Background(), "x")
	if !errors.Is(err, embed.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestWithTimeout_IgnoresContextStillBounded(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	stubborn := &embedtest.Static{
		Dims: 1,
		EmbedFunc: func(context.Context, string) ([]float32, error) {
			<-release
			return []float32{1}, nil
		},
	}

	start := time.Now()
	_, err := embed.WithTimeout(stubborn, 20*time.Millisecond).Embed(context.Background(), "x")
	if !errors.Is(err, embed.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("call took %v, want bounded by timeout", elapsed)
	}
}

func TestWithTimeout_PassesThrough(t *testing.T) {
	t.Parallel()

	inner := &embedtest.Static{Dims: 2, Vectors: map[string][]float32{"a": {1, 2}}}
	e := embed.WithTimeout(inner, time.Second)

	vec, err := e.Embed(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(vec, []float32{1, 2}) {
		t.Fatalf("vec = %v", vec)
	}
	if e.Dimensions() != 2 || e.Model() != "static-test" {
		t.Fatalf("metadata not forwarded: %d %q", e.Dimensions(), e.Model())
	}
}

func TestWithTimeout_BadDimensions(t *testing.T) {
	t.Parallel()

	liar := &embedtest.Static{Dims: 3, Default: []float32{1}}
	_, err := embed.WithTimeout(liar, time.Second).Embed(context.Background(), "x")
	if !errors.Is(err, embed.ErrBadDimensions) {
		t.Fatalf("err = %v, want ErrBadDimensions", err)
	}
}

func TestWithTimeout_InnerError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("upstream down")
	_, err := embed.WithTimeout(&embedtest.Static{Dims: 1, Err: sentinel}, time.Second).
		Embed(context.Background(), "x")
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want upstream error", err)
	}
	if errors.Is(err, embed.ErrTimeout) {
		t.Fatal("fast failure must not be reported as timeout")
	}
}

func TestCached_ReturnsSameVector(t *testing.T) {
	t.Parallel()

	inner := &embedtest.Static{Dims: 2, Vectors: map[string][]float32{"hello": {0.6, 0.8}}}
	c, err := embed.NewCached(inner, 16)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	defer c.Close()

	first, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	first[0] = 42 // callers may mutate their copy

	second, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(second, []float32{0.6, 0.8}) {
		t.Fatalf("second = %v, want original vector", second)
	}
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	inner := &embedtest.Static{Dims: 1, Err: errors.New("boom")}
	c, err := embed.NewCached(inner, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for range 2 {
		if _, err := c.Embed(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.Calls() != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.Calls())
	}
}
