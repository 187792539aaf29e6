// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for recall.
package config

import (
	"log/slog"
	"time"

	"github.com/flemzord/recall/internal/ingest"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/rag"
	"github.com/flemzord/recall/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// DefaultEmbedder is the embedder module used when embedding.module is
// unset. It needs no credentials.
const DefaultEmbedder = "embedder.hashing"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log        LogConfig        `yaml:"log"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Memory     memory.Config    `yaml:"memory"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	RAG        rag.Config       `yaml:"rag"`
	Telemetry  telemetry.Config `yaml:"telemetry"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.anthropic").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Level))
	return level, err
}

// EmbeddingConfig selects and wraps the embedder.
type EmbeddingConfig struct {
	// Module is the id of the embedder module, e.g. "embedder.openai".
	Module string `yaml:"module"`

	// Timeout bounds each embedding call.
	Timeout time.Duration `yaml:"timeout"`

	// CacheSize is the number of embeddings kept in memory. Zero disables
	// the cache.
	CacheSize int64 `yaml:"cache_size"`
}

// GenerationConfig applies to every text generation provider.
type GenerationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// KnowledgeConfig controls what is loaded into the knowledge base at start.
type KnowledgeConfig struct {
	SeedSamples bool              `yaml:"seed_samples"`
	Seed        []ingest.Document `yaml:"seed"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Embedding.Module == "" {
		c.Embedding.Module = DefaultEmbedder
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.Generation.Timeout <= 0 {
		c.Generation.Timeout = 30 * time.Second
	}
	c.RAG.Defaults()
	c.Telemetry.Defaults()
}

// Default returns the configuration used when no file exists: the HTTP
// gateway on loopback, the hashing embedder and the sample corpus.
func Default() *Config {
	cfg := &Config{
		Version:   "1",
		Embedding: EmbeddingConfig{CacheSize: 1000},
		Knowledge: KnowledgeConfig{SeedSamples: true},
		Modules: map[string]yaml.Node{
			"gateway.http":  emptyNode(),
			DefaultEmbedder: emptyNode(),
		},
	}
	cfg.Defaults()
	return cfg
}

func emptyNode() yaml.Node {
	return yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}
