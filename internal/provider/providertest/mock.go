// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/recall/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Unset CompleteFunc panics on call; unset ModelNameFunc returns "mock".
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	ModelNameFunc   func() string
	HealthCheckFunc func(ctx context.Context) error

	mu       sync.Mutex
	requests []provider.CompletionRequest
	health   int
}

// Complete delegates to CompleteFunc and records the request.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// ModelName delegates to ModelNameFunc.
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock"
	}
	return m.ModelNameFunc()
}

// HealthCheck delegates to HealthCheckFunc; nil HealthCheckFunc reports healthy.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.health++
	m.mu.Unlock()
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}

// CompleteCalls returns the number of Complete invocations.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// HealthCalls returns the number of HealthCheck invocations.
func (m *MockProvider) HealthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// LastRequest returns the most recent request passed to Complete.
func (m *MockProvider) LastRequest() (provider.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return provider.CompletionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Reply returns a MockProvider that always answers content.
func Reply(content string) *MockProvider {
	return &MockProvider{
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: content, FinishReason: provider.FinishReasonStop}, nil
		},
	}
}

// Fail returns a MockProvider whose every call fails with err.
func Fail(err error) *MockProvider {
	return &MockProvider{
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{}, err
		},
		HealthCheckFunc: func(context.Context) error { return err },
	}
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
)
