package config

import (
	"slices"

	"github.com/flemzord/recall/internal/core"
)

// Resolve returns the ids of the modules to load, in load order: the
// selected embedder (loaded even without a modules entry), the remaining
// embedders, the providers, then the transports.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules)+1)
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	if e := cfg.Embedding.Module; e != "" && !slices.Contains(ids, e) {
		ids = append(ids, e)
	}
	core.SortForLoad(ids)
	return ids
}
