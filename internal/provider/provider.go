package provider

import "context"

// Provider is the interface for text generation backends. Concrete
// implementations live under modules/provider and register themselves
// with core.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is an optional interface for providers that support
// active probing. Dead and cooled-down providers are probed periodically
// by a started Chain.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RoleAware is implemented by provider modules that declare which chain
// role they serve.
type RoleAware interface {
	ProviderRole() Role
}
