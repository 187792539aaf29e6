package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/recall/internal/core"
)

// Validate checks the structural validity of a Config and returns every
// problem found, joined. Defaults should be applied first.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}

	errs = append(errs, validateEmbedding(cfg.Embedding)...)

	if err := cfg.Memory.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if cfg.Embedding.CacheSize < 0 {
		errs = append(errs, errors.New("config: embedding.cache_size must not be negative"))
	}

	for i, doc := range cfg.Knowledge.Seed {
		if doc.ID == "" {
			errs = append(errs, fmt.Errorf("config: knowledge.seed[%d]: id is required", i))
		}
		if strings.TrimSpace(doc.Content) == "" {
			errs = append(errs, fmt.Errorf("config: knowledge.seed[%d]: content is required", i))
		}
	}

	return errors.Join(errs...)
}

func validateEmbedding(e EmbeddingConfig) []error {
	if e.Module == "" {
		return nil
	}
	id := core.ModuleID(e.Module)
	if id.Namespace() != "embedder" || id.Name() == e.Module {
		return []error{fmt.Errorf("config: embedding.module %q is not an embedder module", e.Module)}
	}
	if _, ok := core.GetModule(e.Module); !ok {
		return []error{fmt.Errorf("config: embedding.module %q is not registered", e.Module)}
	}
	return nil
}
