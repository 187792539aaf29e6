package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/flemzord/recall/internal/protocol")

// Knowledge is the subset of *knowledge.Base the dispatcher routes to.
type Knowledge interface {
	Add(ctx context.Context, id, content string, metadata map[string]any) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, query string, topK int) ([]knowledge.Result, error)
	Get(id string) (knowledge.Document, bool)
	List() []string
	Stats() knowledge.Stats
}

// Memory is the subset of *memory.Manager the dispatcher routes to.
type Memory interface {
	StoreConversation(ctx context.Context, userID string, msg memory.Message) error
	StoreLongTermMemory(ctx context.Context, userID, qaText, topic string) (string, error)
	RetrieveContext(ctx context.Context, userID, query string, limit int) (memory.Context, error)
	UserPreferences(userID string) map[string]any
	ClearUserMemory(userID string) error
	Stats() memory.Stats
}

// Compile-time interface checks.
var (
	_ Knowledge = (*knowledge.Base)(nil)
	_ Memory    = (*memory.Manager)(nil)
)

// Observer is notified after every dispatched request. Unknown methods
// are reported as "unknown" so label cardinality stays bounded.
type Observer interface {
	ObserveRequest(method, code string, elapsed time.Duration)
}

// handler runs one method against raw params.
type handler func(ctx context.Context, params json.RawMessage) (any, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithObserver registers an observer, typically the gateway metrics.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher routes protocol requests to the knowledge base and memory
// manager. It holds no mutable state of its own and is safe for
// concurrent use.
type Dispatcher struct {
	kb       Knowledge
	mem      Memory
	logger   *slog.Logger
	observer Observer
	handlers map[string]handler
}

// NewDispatcher creates a Dispatcher over kb and mem.
func NewDispatcher(kb Knowledge, mem Memory, opts ...Option) *Dispatcher {
	d := &Dispatcher{kb: kb, mem: mem}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	d.handlers = map[string]handler{
		MethodSearch:           route(MethodSearch, d.search),
		MethodMemoryStore:      route(MethodMemoryStore, d.memoryStore),
		MethodMemorySearch:     route(MethodMemorySearch, d.memorySearch),
		MethodGetPreferences:   route(MethodGetPreferences, d.getPreferences),
		MethodAddDocument:      route(MethodAddDocument, d.addDocument),
		MethodDeleteDocument:   route(MethodDeleteDocument, d.deleteDocument),
		MethodGetStats:         route(MethodGetStats, d.getStats),
		MethodListCapabilities: route(MethodListCapabilities, d.listCapabilities),
		MethodMemoryArchive:    route(MethodMemoryArchive, d.memoryArchive),
		MethodMemoryClear:      route(MethodMemoryClear, d.memoryClear),
		MethodGetDocument:      route(MethodGetDocument, d.getDocument),
		MethodListDocuments:    route(MethodListDocuments, d.listDocuments),
	}
	return d
}

// Methods returns the supported method names sorted alphabetically.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs req and wraps the outcome in a Response. It never returns
// a Go error: every failure is reported inside the envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = NewID()
	}
	result, err := d.Call(ctx, req.Method, req.Params)
	if err != nil {
		return Failure(req.ID, err)
	}
	return Success(req.ID, result)
}

// Call runs method with raw params and returns the typed result. It is
// the entry point for transports that have their own envelope, such as
// MCP.
func (d *Dispatcher) Call(ctx context.Context, method string, params json.RawMessage) (result any, err error) {
	start := time.Now()
	label := method

	ctx, span := tracer.Start(ctx, "protocol."+method)
	defer func() {
		code := "ok"
		if err != nil {
			code = fault.KindOf(err).Code()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("protocol.code", code))
		span.End()
		if d.observer != nil {
			d.observer.ObserveRequest(label, code, time.Since(start))
		}
	}()

	h, ok := d.handlers[method]
	if !ok {
		label = "unknown"
		d.logger.Debug("unknown protocol method", "method", method)
		return nil, fault.Protocol("protocol.dispatch", "unknown method: %s", method)
	}

	result, err = h(ctx, params)
	if err != nil {
		level := slog.LevelDebug
		if k := fault.KindOf(err); k == fault.KindProvider || k == fault.KindConsistency {
			level = slog.LevelError
		}
		d.logger.Log(ctx, level, "protocol call failed", "method", method, "error", err)
	}
	return result, err
}

// route decodes params into P, validates them and calls fn.
func route[P interface{ validate(string) error }](method string, fn func(context.Context, P) (any, error)) handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			if err := json.Unmarshal(trimmed, &p); err != nil {
				return nil, fault.Protocol(method, "invalid params: %v", err)
			}
		}
		if err := p.validate(method); err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

func (d *Dispatcher) search(ctx context.Context, p SearchParams) (any, error) {
	results, err := d.kb.Search(ctx, p.Query, p.topK())
	if err != nil {
		return nil, err
	}
	return SearchResult{Results: results}, nil
}

func (d *Dispatcher) memoryStore(ctx context.Context, p MemoryStoreParams) (any, error) {
	msg := memory.Message{Role: p.Data.Role, Content: p.Data.Content}
	if err := d.mem.StoreConversation(ctx, p.UserID, msg); err != nil {
		return nil, err
	}
	return StatusResult{Status: StatusStored}, nil
}

func (d *Dispatcher) memorySearch(ctx context.Context, p MemorySearchParams) (any, error) {
	mc, err := d.mem.RetrieveContext(ctx, p.UserID, p.Query, p.limit())
	if err != nil {
		return nil, err
	}
	return MemorySearchResult{Data: mc}, nil
}

func (d *Dispatcher) getPreferences(_ context.Context, p UserParams) (any, error) {
	return PreferencesResult{Preferences: d.mem.UserPreferences(p.UserID)}, nil
}

func (d *Dispatcher) addDocument(ctx context.Context, p AddDocumentParams) (any, error) {
	updated, err := d.kb.Add(ctx, p.DocID, p.Content, p.Metadata)
	if err != nil {
		return nil, err
	}
	status := StatusAdded
	if updated {
		status = StatusUpdated
	}
	return StatusResult{Status: status, DocID: p.DocID}, nil
}

func (d *Dispatcher) deleteDocument(ctx context.Context, p DocumentParams) (any, error) {
	deleted, err := d.kb.Delete(ctx, p.DocID)
	if err != nil {
		return nil, err
	}
	status := StatusNotFound
	if deleted {
		status = StatusDeleted
	}
	return StatusResult{Status: status, DocID: p.DocID}, nil
}

func (d *Dispatcher) getDocument(_ context.Context, p DocumentParams) (any, error) {
	doc, ok := d.kb.Get(p.DocID)
	if !ok {
		return nil, fault.NotFound(MethodGetDocument, "document %q not found", p.DocID)
	}
	meta := doc.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return DocumentResult{Document: DocumentView{ID: doc.ID, Content: doc.Content, Metadata: meta}}, nil
}

func (d *Dispatcher) listDocuments(context.Context, noParams) (any, error) {
	ids := d.kb.List()
	if ids == nil {
		ids = []string{}
	}
	return DocumentListResult{DocIDs: ids}, nil
}

func (d *Dispatcher) getStats(context.Context, noParams) (any, error) {
	return StatsResult{Database: d.kb.Stats(), Memory: d.mem.Stats()}, nil
}

func (d *Dispatcher) listCapabilities(context.Context, noParams) (any, error) {
	return Describe(), nil
}

func (d *Dispatcher) memoryArchive(ctx context.Context, p ArchiveParams) (any, error) {
	id, err := d.mem.StoreLongTermMemory(ctx, p.UserID, p.QAText, p.Topic)
	if err != nil {
		return nil, err
	}
	return StatusResult{Status: StatusStored, MemoryID: id}, nil
}

func (d *Dispatcher) memoryClear(_ context.Context, p UserParams) (any, error) {
	if err := d.mem.ClearUserMemory(p.UserID); err != nil {
		return nil, err
	}
	return StatusResult{Status: StatusCleared, UserID: p.UserID}, nil
}
