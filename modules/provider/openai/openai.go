// Package openai implements the provider.openai module on the official
// OpenAI Go SDK. Any Chat Completions compatible endpoint (OpenRouter,
// Ollama, vLLM) works through base_url.
package openai

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/provider"
	sdkopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
	_ provider.RoleAware     = (*Provider)(nil)
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
)

// Provider answers completion requests through the Chat Completions API.
type Provider struct {
	config Config
	logger *slog.Logger
	client *sdkopenai.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger.With("provider", "openai", "model", p.config.Model)
	p.config.resolveKey(os.LookupEnv)
	p.client = newClient(p.config)
	return nil
}

func newClient(cfg Config) *sdkopenai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdkopenai.NewClient(opts...)
	return &client
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("provider.openai: api_key (or $%s) is required", p.config.APIKeyEnv)
	}
	if p.config.Model == "" {
		return errors.New("provider.openai: model is required")
	}
	if !p.config.Role.Valid() {
		return fmt.Errorf("provider.openai: unknown role %q", p.config.Role)
	}
	return nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string { return p.config.Model }

// ProviderRole implements provider.RoleAware.
func (p *Provider) ProviderRole() provider.Role { return p.config.Role }
