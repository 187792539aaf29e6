package anthropic

import (
	"time"

	"github.com/flemzord/recall/internal/provider"
)

// defaultModel is pinned to a dated release so answers stay reproducible.
const defaultModel = "claude-sonnet-4-5-20250929"

const (
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
	defaultKeyEnv    = "ANTHROPIC_API_KEY"
)

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	Role      provider.Role `yaml:"role"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Role == "" {
		c.Role = provider.RolePrimary
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultKeyEnv
	}
}

// apiKey returns the inline key, falling back to the configured
// environment variable.
func (c *Config) apiKey(lookup func(string) (string, bool)) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if v, ok := lookup(c.APIKeyEnv); ok {
		return v
	}
	return ""
}
