package openai

import (
	"time"

	"github.com/flemzord/recall/internal/provider"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
	defaultKeyEnv  = "OPENAI_API_KEY"
)

// Config holds the configuration for the OpenAI provider module.
type Config struct {
	Role        provider.Role `yaml:"role"`
	APIKey      string        `yaml:"api_key"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Role == "" {
		c.Role = provider.RolePrimary
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultKeyEnv
	}
}

// resolveKey fills APIKey from the environment when it is not inline.
func (c *Config) resolveKey(lookup func(string) (string, bool)) {
	if c.APIKey != "" {
		return
	}
	if v, ok := lookup(c.APIKeyEnv); ok {
		c.APIKey = v
	}
}
