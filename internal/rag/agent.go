// Package rag answers user queries by combining knowledge base retrieval,
// per-user memory and a text generation provider.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Apology is returned to the user in place of an answer when any stage
// of the pipeline fails.
const Apology = "I apologize, but I'm having trouble generating a response right now. Please try again."

var tracer = otel.Tracer("github.com/flemzord/recall/internal/rag")

// Searcher is the read side of the knowledge base.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]knowledge.Result, error)
}

// Memory is the subset of *memory.Manager the agent uses.
type Memory interface {
	StoreConversation(ctx context.Context, userID string, msg memory.Message) error
	RetrieveContext(ctx context.Context, userID, query string, limit int) (memory.Context, error)
	UserPreferences(userID string) map[string]any
	StoreLongTermMemory(ctx context.Context, userID, qaText, topic string) (string, error)
}

// Compile-time interface checks.
var (
	_ Searcher = (*knowledge.Base)(nil)
	_ Memory   = (*memory.Manager)(nil)
)

// Config tunes the pipeline.
type Config struct {
	// ArchiveAnswers stores every successful exchange as a long-term
	// memory.
	ArchiveAnswers bool `yaml:"archive_answers"`

	KnowledgeTopK int `yaml:"knowledge_top_k"`
	MemoryLimit   int `yaml:"memory_limit"`
	Snippets      int `yaml:"snippets"`
	SnippetLength int `yaml:"snippet_length"`
	RecentTurns   int `yaml:"recent_turns"`
	MaxTokens     int `yaml:"max_tokens"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.KnowledgeTopK <= 0 {
		c.KnowledgeTopK = 5
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 5
	}
	if c.Snippets <= 0 {
		c.Snippets = 3
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = 500
	}
	if c.RecentTurns <= 0 {
		c.RecentTurns = 3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
}

// Source is a knowledge document that informed an answer.
type Source struct {
	ID    string  `json:"id"`
	Topic string  `json:"topic,omitempty"`
	Score float64 `json:"score"`
}

// Answer is the outcome of ProcessQuery.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model,omitempty"`

	// Degraded is set when Text is the apology rather than a generated
	// answer.
	Degraded bool `json:"degraded"`
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// Agent runs the answer pipeline. It is stateless apart from its
// collaborators and safe for concurrent use.
type Agent struct {
	kb     Searcher
	mem    Memory
	llm    provider.Provider
	cfg    Config
	logger *slog.Logger
}

// NewAgent creates an Agent. llm is normally the chain's primary role.
func NewAgent(kb Searcher, mem Memory, llm provider.Provider, cfg Config, opts ...Option) *Agent {
	cfg.Defaults()
	a := &Agent{kb: kb, mem: mem, llm: llm, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

// retrieval is what the concurrent fan-out collects.
type retrieval struct {
	knowledge []knowledge.Result
	memory    memory.Context
	prefs     map[string]any
}

// ProcessQuery records the user's message, gathers context, generates an
// answer and records it. Only invalid input yields an error; any later
// failure is logged and reported as a degraded Answer carrying Apology.
func (a *Agent) ProcessQuery(ctx context.Context, userID, query string) (ans Answer, err error) {
	const op = "rag.process_query"

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() {
		span.SetAttributes(attribute.Bool("rag.degraded", ans.Degraded))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if userID == "" {
		return Answer{}, fault.Validation(op, "user_id must not be empty")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, fault.Validation(op, "message must not be empty")
	}

	start := time.Now()
	ans, perr := a.process(ctx, userID, query)
	if perr != nil {
		a.logger.Error("answer pipeline failed", "user_id", userID, "error", perr)
		return Answer{Text: Apology, Sources: []Source{}, Degraded: true}, nil
	}
	a.logger.Info("query answered",
		"user_id", userID,
		"sources", len(ans.Sources),
		"duration", time.Since(start),
	)
	return ans, nil
}

func (a *Agent) process(ctx context.Context, userID, query string) (Answer, error) {
	if err := a.mem.StoreConversation(ctx, userID, memory.Message{Role: memory.RoleUser, Content: query}); err != nil {
		return Answer{}, fmt.Errorf("storing user message: %w", err)
	}

	r, err := a.retrieve(ctx, userID, query)
	if err != nil {
		return Answer{}, err
	}

	resp, err := a.llm.Complete(ctx, provider.CompletionRequest{
		Messages:  BuildPrompt(query, r.knowledge, r.memory, r.prefs, a.cfg),
		MaxTokens: a.cfg.MaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Answer{}, fmt.Errorf("generating answer: empty completion (finish reason %q)", resp.FinishReason)
	}

	if err := a.mem.StoreConversation(ctx, userID, memory.Message{Role: memory.RoleAssistant, Content: text}); err != nil {
		return Answer{}, fmt.Errorf("storing answer: %w", err)
	}

	ans := Answer{Text: text, Sources: sources(r.knowledge), Model: a.llm.ModelName()}
	if a.cfg.ArchiveAnswers {
		a.archive(ctx, userID, query, text, ans.Sources)
	}
	return ans, nil
}

// retrieve queries knowledge, memory and preferences concurrently.
func (a *Agent) retrieve(ctx context.Context, userID, query string) (retrieval, error) {
	var r retrieval
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := a.kb.Search(gctx, query, a.cfg.KnowledgeTopK)
		if err != nil {
			return fmt.Errorf("searching knowledge: %w", err)
		}
		r.knowledge = res
		return nil
	})
	g.Go(func() error {
		mc, err := a.mem.RetrieveContext(gctx, userID, query, a.cfg.MemoryLimit)
		if err != nil {
			return fmt.Errorf("retrieving memory: %w", err)
		}
		r.memory = mc
		return nil
	})
	g.Go(func() error {
		r.prefs = a.mem.UserPreferences(userID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return retrieval{}, err
	}
	return r, nil
}

func (a *Agent) archive(ctx context.Context, userID, query, answer string, srcs []Source) {
	topic := memory.DefaultTopic
	if len(srcs) > 0 && srcs[0].Topic != "" {
		topic = srcs[0].Topic
	}
	qa := "Q: " + query + "\nA: " + answer
	if _, err := a.mem.StoreLongTermMemory(ctx, userID, qa, topic); err != nil {
		a.logger.Warn("archiving answer failed", "user_id", userID, "error", err)
	}
}

func sources(results []knowledge.Result) []Source {
	out := make([]Source, 0, len(results))
	for _, r := range results {
		topic, _ := r.Metadata["topic"].(string)
		out = append(out, Source{ID: r.ID, Topic: topic, Score: r.Score})
	}
	return out
}
