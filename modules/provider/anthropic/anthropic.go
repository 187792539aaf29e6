// Package anthropic implements the provider.anthropic module, answering
// recall's completion requests with the Anthropic Messages API.
package anthropic

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/provider"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module            = (*Anthropic)(nil)
	_ core.Configurable      = (*Anthropic)(nil)
	_ core.Provisioner       = (*Anthropic)(nil)
	_ core.Validator         = (*Anthropic)(nil)
	_ provider.Provider      = (*Anthropic)(nil)
	_ provider.HealthChecker = (*Anthropic)(nil)
	_ provider.RoleAware     = (*Anthropic)(nil)
)

// Anthropic is the provider.anthropic module.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.logger = ctx.Logger.With("provider", "anthropic", "model", a.config.Model)

	opts := []option.RequestOption{
		// The provider chain owns retries and failover.
		option.WithMaxRetries(0),
		option.WithRequestTimeout(a.config.Timeout),
	}
	if key := a.config.apiKey(os.LookupEnv); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if a.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.config.BaseURL))
	}

	client := sdkanthropic.NewClient(opts...)
	a.client = &client
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	if a.config.Model == "" {
		return errors.New("provider.anthropic: model must not be empty")
	}
	if !a.config.Role.Valid() {
		return fmt.Errorf("provider.anthropic: unknown role %q", a.config.Role)
	}
	if a.client == nil {
		return errors.New("provider.anthropic: client not initialized (Provision not called)")
	}
	return nil
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}

// ProviderRole implements provider.RoleAware.
func (a *Anthropic) ProviderRole() provider.Role {
	return a.config.Role
}
