// Package embedtest provides test doubles for the embed package.
package embedtest

import (
	"context"
	"slices"
	"sync"

	"github.com/flemzord/recall/internal/embed"
)

// Static returns fixed vectors per text. Texts missing from Vectors get
// Default, or an all-zero vector when Default is nil. Err, when set, is
// returned by every call. All methods are safe for concurrent use.
type Static struct {
	Dims    int
	Vectors map[string][]float32
	Default []float32
	Err     error

	// EmbedFunc overrides every other field when set.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	calls int
}

var _ embed.Embedder = (*Static)(nil)

// Embed implements embed.Embedder.
func (s *Static) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.EmbedFunc != nil {
		return s.EmbedFunc(ctx, text)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if v, ok := s.Vectors[text]; ok {
		return slices.Clone(v), nil
	}
	if s.Default != nil {
		return slices.Clone(s.Default), nil
	}
	return make([]float32, s.Dims), nil
}

// Dimensions implements embed.Embedder.
func (s *Static) Dimensions() int { return s.Dims }

// Model implements embed.Embedder.
func (s *Static) Model() string { return "static-test" }

// Calls returns how many times Embed was invoked.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
