// Package memory keeps per-user conversational state: a bounded short-term
// message history, accumulated preferences extracted from what users say,
// and a long-term archive of question/answer pairs searchable by meaning.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/knowledge"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/flemzord/recall/internal/memory")

// Long-term search scopes.
const (
	ScopeGlobal = "global"
	ScopeUser   = "user"
)

// Defaults applied by Config.
const (
	DefaultContextLimit    = 10
	DefaultLongTermResults = 3
	DefaultTopic           = "general"
)

// Archive is the long-term store. *knowledge.Base satisfies it.
type Archive interface {
	Add(ctx context.Context, id, content string, metadata map[string]any) (bool, error)
	SearchFunc(ctx context.Context, query string, topK int, keep func(knowledge.Document) bool) ([]knowledge.Result, error)
	Len() int
}

// Compile-time interface check.
var _ Archive = (*knowledge.Base)(nil)

// Config tunes a Manager.
type Config struct {
	ShortTermLimit  int    `yaml:"short_term_limit"`
	LongTermScope   string `yaml:"long_term_scope"`
	LongTermResults int    `yaml:"long_term_results"`
}

func (c Config) withDefaults() Config {
	if c.ShortTermLimit <= 0 {
		c.ShortTermLimit = DefaultShortTermLimit
	}
	if c.LongTermScope == "" {
		c.LongTermScope = ScopeGlobal
	}
	if c.LongTermResults <= 0 {
		c.LongTermResults = DefaultLongTermResults
	}
	return c
}

// Validate rejects unknown scopes.
func (c Config) Validate() error {
	switch c.LongTermScope {
	case "", ScopeGlobal, ScopeUser:
		return nil
	default:
		return fmt.Errorf("memory: long_term_scope must be %q or %q, got %q", ScopeGlobal, ScopeUser, c.LongTermScope)
	}
}

// Context is what RetrieveContext returns to the answer pipeline.
type Context struct {
	RecentContext   []Message          `json:"recent_context"`
	LongTermContext []knowledge.Result `json:"long_term_context"`
}

// Stats summarises memory usage.
type Stats struct {
	ActiveUsers            int `json:"active_users"`
	TotalShortTermMessages int `json:"total_short_term_messages"`
	LongTermDocuments      int `json:"long_term_documents"`
	UsersWithPreferences   int `json:"users_with_preferences"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the time source used for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager coordinates short-term history, preferences and the long-term
// archive. It is safe for concurrent use; per-user state is lock-striped.
type Manager struct {
	cfg       Config
	history   *History
	prefs     *Preferences
	archive   Archive
	extractor FactExtractor
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a Manager. A nil extractor disables fact extraction.
func NewManager(archive Archive, extractor FactExtractor, cfg Config, opts ...Option) *Manager {
	cfg = cfg.withDefaults()
	if extractor == nil {
		extractor = NopExtractor{}
	}
	m := &Manager{
		cfg:       cfg,
		history:   NewHistory(cfg.ShortTermLimit),
		prefs:     NewPreferences(),
		archive:   archive,
		extractor: extractor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// StoreConversation appends msg to the user's short-term history. User
// messages additionally go through fact extraction; extraction failures
// are logged and otherwise ignored.
func (m *Manager) StoreConversation(ctx context.Context, userID string, msg Message) (err error) {
	const op = "memory.store_conversation"

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("message.role", string(msg.Role)),
	))
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return fault.Validation(op, "user_id must not be empty")
	}
	if !msg.Role.Valid() {
		return fault.Validation(op, "unknown message role %q", msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return fault.Validation(op, "message content must not be empty")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now().UTC()
	}

	m.history.Append(userID, msg)

	if msg.Role != RoleUser {
		return nil
	}
	facts, xerr := m.extractor.Extract(ctx, msg.Content)
	if xerr != nil {
		m.logger.Warn("fact extraction failed", "user_id", userID, "error", xerr)
		return nil
	}
	if len(facts) > 0 {
		m.prefs.Merge(userID, facts)
		m.logger.Debug("preferences updated", "user_id", userID, "keys", len(facts))
	}
	return nil
}

// StoreLongTermMemory archives a question/answer pair and returns its id.
// An empty topic is stored as DefaultTopic.
func (m *Manager) StoreLongTermMemory(ctx context.Context, userID, qaText, topic string) (id string, err error) {
	const op = "memory.store_long_term"

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return "", fault.Validation(op, "user_id must not be empty")
	}
	if strings.TrimSpace(qaText) == "" {
		return "", fault.Validation(op, "qa_text must not be empty")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	now := m.now().UTC()
	sum := sha256.Sum256(fmt.Appendf(nil, "%s_%s_%d", userID, qaText, now.UnixNano()))
	id = hex.EncodeToString(sum[:])[:32]

	meta := map[string]any{
		"user_id":   userID,
		"type":      "Q&A",
		"topic":     topic,
		"timestamp": now.Format(time.RFC3339),
	}
	if _, err := m.archive.Add(ctx, id, qaText, meta); err != nil {
		return "", err
	}
	m.logger.Debug("long-term memory stored", "user_id", userID, "memory_id", id, "topic", topic)
	return id, nil
}

// RetrieveContext returns the user's last limit messages and the closest
// long-term memories for query. A non-positive limit selects
// DefaultContextLimit; an empty query skips the long-term search.
func (m *Manager) RetrieveContext(ctx context.Context, userID, query string, limit int) (out Context, err error) {
	const op = "memory.retrieve_context"

	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("context.limit", limit),
	))
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return Context{}, fault.Validation(op, "user_id must not be empty")
	}
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	out.RecentContext = m.history.Recent(userID, limit)
	if out.RecentContext == nil {
		out.RecentContext = []Message{}
	}
	out.LongTermContext = []knowledge.Result{}

	if strings.TrimSpace(query) == "" {
		return out, nil
	}

	var keep func(knowledge.Document) bool
	if m.cfg.LongTermScope == ScopeUser {
		keep = func(d knowledge.Document) bool {
			owner, _ := d.Metadata["user_id"].(string)
			return owner == userID
		}
	}
	results, err := m.archive.SearchFunc(ctx, query, m.cfg.LongTermResults, keep)
	if err != nil {
		return Context{}, err
	}
	out.LongTermContext = results
	return out, nil
}

// UserPreferences returns a normalised copy of the user's preferences.
func (m *Manager) UserPreferences(userID string) map[string]any {
	return m.prefs.Get(userID)
}

// UpdateUserPreferences merges facts into the user's preferences.
func (m *Manager) UpdateUserPreferences(userID string, facts map[string]any) error {
	if userID == "" {
		return fault.Validation("memory.update_preferences", "user_id must not be empty")
	}
	m.prefs.Merge(userID, facts)
	return nil
}

// ClearUserMemory drops the user's short-term history and preferences.
// Long-term memories are kept.
func (m *Manager) ClearUserMemory(userID string) error {
	if userID == "" {
		return fault.Validation("memory.clear", "user_id must not be empty")
	}
	m.history.Clear(userID)
	m.prefs.Clear(userID)
	m.logger.Info("user memory cleared", "user_id", userID)
	return nil
}

// Stats reports memory usage across all users.
func (m *Manager) Stats() Stats {
	return Stats{
		ActiveUsers:            m.history.Users(),
		TotalShortTermMessages: m.history.Total(),
		LongTermDocuments:      m.archive.Len(),
		UsersWithPreferences:   m.prefs.Users(),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
