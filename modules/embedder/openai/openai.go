// Package openai implements the embedder.openai module, computing vectors
// with the OpenAI embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/embed"
	sdkopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"gopkg.in/yaml.v3"
)

const (
	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
	defaultKeyEnv     = "OPENAI_API_KEY"
	defaultTimeout    = 30 * time.Second
)

func init() {
	core.RegisterModule(&Embedder{})
}

// Interface guards.
var (
	_ core.Module       = (*Embedder)(nil)
	_ core.Configurable = (*Embedder)(nil)
	_ core.Provisioner  = (*Embedder)(nil)
	_ core.Validator    = (*Embedder)(nil)
	_ embed.Embedder    = (*Embedder)(nil)
)

// Config is the embedder.openai configuration block. Dimensions is sent
// to the API only when set explicitly; older models reject it.
type Config struct {
	APIKey     string        `yaml:"api_key"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Embedder is the embedder.openai module.
type Embedder struct {
	config   Config
	dims     int
	explicit bool
	client   *sdkopenai.Client
	logger   *slog.Logger
}

// ModuleInfo implements core.Module.
func (e *Embedder) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "embedder.openai",
		New: func() core.Module { return &Embedder{} },
	}
}

// Configure implements core.Configurable.
func (e *Embedder) Configure(node *yaml.Node) error {
	return node.Decode(&e.config)
}

// applyDefaults runs from Provision, since Configure is skipped when the
// module is loaded without a modules entry.
func (e *Embedder) applyDefaults() {
	if e.config.Model == "" {
		e.config.Model = defaultModel
	}
	if e.config.APIKeyEnv == "" {
		e.config.APIKeyEnv = defaultKeyEnv
	}
	if e.config.Timeout <= 0 {
		e.config.Timeout = defaultTimeout
	}
	e.explicit = e.config.Dimensions != 0
	e.dims = e.config.Dimensions
	if !e.explicit {
		e.dims = defaultDimensions
	}
}

// Provision implements core.Provisioner.
func (e *Embedder) Provision(ctx *core.AppContext) error {
	e.applyDefaults()
	e.logger = ctx.Logger
	if e.config.APIKey == "" {
		e.config.APIKey = os.Getenv(e.config.APIKeyEnv)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(e.config.APIKey),
		option.WithRequestTimeout(e.config.Timeout),
		option.WithMaxRetries(1),
	}
	if e.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(e.config.BaseURL))
	}
	client := sdkopenai.NewClient(opts...)
	e.client = &client
	return nil
}

// Validate implements core.Validator.
func (e *Embedder) Validate() error {
	if e.config.APIKey == "" {
		return fmt.Errorf("embedder.openai: api_key (or $%s) is required", e.config.APIKeyEnv)
	}
	if e.dims <= 0 {
		return errors.New("embedder.openai: dimensions must be positive")
	}
	return nil
}

// Embed implements embed.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := sdkopenai.EmbeddingNewParams{
		Model: sdkopenai.EmbeddingModel(e.config.Model),
		Input: sdkopenai.EmbeddingNewParamsInputUnion{OfString: sdkopenai.String(text)},
	}
	if e.explicit {
		params.Dimensions = sdkopenai.Int(int64(e.dims))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedder.openai: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedder.openai: empty response")
	}
	raw := resp.Data[0].Embedding
	if len(raw) != e.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", embed.ErrBadDimensions, len(raw), e.dims)
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions implements embed.Embedder.
func (e *Embedder) Dimensions() int { return e.dims }

// Model implements embed.Embedder.
func (e *Embedder) Model() string { return e.config.Model }
