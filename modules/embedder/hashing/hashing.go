// Package hashing implements the embedder.hashing module: the offline,
// deterministic bag-of-words embedder recall uses by default.
package hashing

import (
	"context"
	"fmt"

	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/embed"
	"gopkg.in/yaml.v3"
)

// DefaultDimensions is the vector length when none is configured.
const DefaultDimensions = 1024

func init() {
	core.RegisterModule(&Module{})
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ embed.Embedder    = (*Module)(nil)
)

// Config is the embedder.hashing configuration block.
type Config struct {
	Dimensions int `yaml:"dimensions"`
}

// Module adapts embed.Hashing to the module system.
type Module struct {
	config Config
	h      *embed.Hashing
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "embedder.hashing",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	return nil
}

// Provision implements core.Provisioner. A module without a config
// entry is never configured, so defaults are applied here.
func (m *Module) Provision(ctx *core.AppContext) error {
	if m.config.Dimensions == 0 {
		m.config.Dimensions = DefaultDimensions
	}
	if m.config.Dimensions > 0 {
		m.h = embed.NewHashing(m.config.Dimensions)
	}
	ctx.Logger.Debug("hashing embedder ready", "dimensions", m.config.Dimensions)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.Dimensions <= 0 {
		return fmt.Errorf("embedder.hashing: dimensions must be positive, got %d", m.config.Dimensions)
	}
	return nil
}

// Embed implements embed.Embedder.
func (m *Module) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.h.Embed(ctx, text)
}

// Dimensions implements embed.Embedder.
func (m *Module) Dimensions() int { return m.config.Dimensions }

// Model implements embed.Embedder.
func (m *Module) Model() string { return m.h.Model() }
