package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/recall/internal/config"
	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/embed"
	"github.com/flemzord/recall/internal/gateway"
	"github.com/flemzord/recall/internal/ingest"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/mcpserver"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/flemzord/recall/internal/provider"
	"github.com/flemzord/recall/internal/rag"
	"github.com/flemzord/recall/internal/security"
	"gopkg.in/yaml.v3"
)

// BuildOptions carries the process-level pieces Build does not create.
type BuildOptions struct {
	Logger   *slog.Logger
	Redactor *security.Redactor
	Version  string
}

// Services is one assembled recall instance.
type Services struct {
	Config *config.Config
	Logger *slog.Logger

	App        *core.App
	Embedder   embed.Embedder
	Knowledge  *knowledge.Base
	Memory     *memory.Manager
	Chain      *provider.Chain // nil without provider modules
	Agent      *rag.Agent      // nil without provider modules
	Dispatcher *protocol.Dispatcher
	MCP        *mcpserver.Server
	Metrics    *gateway.Metrics

	cache *embed.Cached
}

// Build loads the configured modules and assembles every component around
// them. The knowledge base is seeded before Build returns; nothing is
// listening until Start.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Redactor == nil {
		opts.Redactor = security.NewRedactor()
	}

	appCtx := core.NewAppContext(logger).WithModuleConfigs(cfg.Modules)
	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}

	svc := &Services{Config: cfg, Logger: logger, App: application}

	if err := svc.buildEmbedder(cfg); err != nil {
		return nil, err
	}
	chain, err := buildChain(application, ids, cfg, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Chain = chain

	svc.Knowledge = knowledge.New(svc.Embedder,
		knowledge.WithName("knowledge"),
		knowledge.WithLogger(logger.With("component", "knowledge")))
	archive := knowledge.New(svc.Embedder,
		knowledge.WithName("long_term_memory"),
		knowledge.WithLogger(logger.With("component", "archive")))

	var extractor memory.FactExtractor
	if chain != nil {
		role := provider.RoleInternal
		if !chain.HasRole(role) {
			role = provider.RolePrimary
		}
		extractor = memory.NewLLMExtractor(chain.For(role))
	} else {
		logger.Info("no provider modules configured, fact extraction and /api/chat disabled")
	}
	svc.Memory = memory.NewManager(archive, extractor, cfg.Memory,
		memory.WithLogger(logger.With("component", "memory")))

	svc.Metrics = gateway.NewMetrics()
	svc.Metrics.WatchStats(svc.Knowledge.Stats, svc.Memory.Stats)

	svc.Dispatcher = protocol.NewDispatcher(svc.Knowledge, svc.Memory,
		protocol.WithLogger(logger.With("component", "protocol")),
		protocol.WithObserver(svc.Metrics))
	svc.MCP = mcpserver.New(svc.Dispatcher, opts.Version,
		mcpserver.WithLogger(logger.With("component", "mcp")))

	backend := &gateway.Backend{
		Dispatcher: svc.Dispatcher,
		Knowledge:  svc.Knowledge,
		Memory:     svc.Memory,
		MCP:        svc.MCP.HTTPHandler(),
		Chain:      chain,
		Metrics:    svc.Metrics,
		Config:     cfg,
		Redactor:   opts.Redactor,
	}
	if chain != nil {
		svc.Agent = rag.NewAgent(svc.Knowledge, svc.Memory, chain.For(provider.RolePrimary), cfg.RAG,
			rag.WithLogger(logger.With("component", "rag")))
		backend.Agent = svc.Agent
	}
	appCtx.RegisterService(gateway.BackendService, backend)

	if err := svc.seed(ctx, cfg.Knowledge); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func (s *Services) buildEmbedder(cfg *config.Config) error {
	mod, ok := s.App.Module(cfg.Embedding.Module)
	if !ok {
		return fmt.Errorf("embedding: module %s not loaded", cfg.Embedding.Module)
	}
	e, ok := mod.(embed.Embedder)
	if !ok {
		return fmt.Errorf("embedding: module %s is not an embedder", cfg.Embedding.Module)
	}

	e = embed.WithTimeout(e, cfg.Embedding.Timeout)
	if cfg.Embedding.CacheSize > 0 {
		cached, err := embed.NewCached(e, int(cfg.Embedding.CacheSize))
		if err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		s.cache = cached
		e = cached
	}
	s.Embedder = e
	s.Logger.Info("embedder ready", "module", cfg.Embedding.Module, "model", e.Model(), "dimensions", e.Dimensions())
	return nil
}

// buildChain composes every loaded provider module into a role chain, in
// module load order. It returns nil when no provider is loaded.
func buildChain(application *core.App, ids []string, cfg *config.Config, logger *slog.Logger) (*provider.Chain, error) {
	var entries []provider.ChainEntry
	for _, id := range ids {
		mod, ok := application.Module(id)
		if !ok {
			continue
		}
		p, ok := mod.(provider.Provider)
		if !ok {
			continue
		}
		role := provider.RolePrimary
		if ra, ok := mod.(provider.RoleAware); ok {
			role = ra.ProviderRole()
		}
		entries = append(entries, provider.ChainEntry{
			Name:     id,
			Provider: provider.WithTimeout(p, cfg.Generation.Timeout),
			Role:     role,
		})
		logger.Info("provider registered", "module", id, "role", role, "model", p.ModelName())
	}
	if len(entries) == 0 {
		return nil, nil
	}
	chain, err := provider.NewChain(entries, provider.WithLogger(logger.With("component", "provider")))
	if err != nil {
		return nil, err
	}
	if !chain.HasRole(provider.RolePrimary) {
		return nil, fmt.Errorf("%w: no provider module serves the %s role", provider.ErrNoProvider, provider.RolePrimary)
	}
	return chain, nil
}

func (s *Services) seed(ctx context.Context, kc config.KnowledgeConfig) error {
	var docs []ingest.Document
	if kc.SeedSamples {
		docs = append(docs, ingest.DefaultDocuments()...)
	}
	for _, doc := range kc.Seed {
		docs = append(docs, ingest.ChunkDocument(doc, 0, 0)...)
	}
	if len(docs) == 0 {
		return nil
	}

	added, err := ingest.Seed(ctx, s.Knowledge, docs)
	if err != nil {
		return fmt.Errorf("seeding knowledge base: %w", err)
	}
	s.Logger.Info("knowledge base seeded", "documents", added)
	return nil
}

// Start starts the provider health probes and every module implementing
// core.Starter.
func (s *Services) Start(ctx context.Context) error {
	if s.Chain != nil {
		s.Chain.Start(ctx)
	}
	if err := s.App.Start(); err != nil {
		if s.Chain != nil {
			s.Chain.Stop()
		}
		return err
	}
	return nil
}

// Stop stops modules in reverse order, then the health probes.
func (s *Services) Stop() {
	s.App.Stop()
	if s.Chain != nil {
		s.Chain.Stop()
	}
}

// Close releases the embedding cache. Safe to call more than once.
func (s *Services) Close() {
	if s.cache != nil {
		s.cache.Close()
		s.cache = nil
	}
}

// secretValues collects the scalar values stored under secret-looking keys
// anywhere in the module configuration, so the logger can scrub them.
func secretValues(modules map[string]yaml.Node) []string {
	var out []string
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				k, v := n.Content[i], n.Content[i+1]
				if v.Kind == yaml.ScalarNode && security.IsSecretKey(k.Value) && v.Value != "" {
					out = append(out, v.Value)
					continue
				}
				walk(v)
			}
		case yaml.SequenceNode, yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c)
			}
		}
	}
	for _, node := range modules {
		walk(&node)
	}
	return out
}
