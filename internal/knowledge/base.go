// Package knowledge provides an in-memory semantic document store. Each
// Base pairs a document map with an exact vector index and keeps the two
// in lockstep: position i of the index always holds the embedding of the
// i-th document in insertion order.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/flemzord/recall/internal/embed"
	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/vectorindex"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sentinel errors wrapped in consistency failures.
var (
	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the dimension fixed by the first document.
	ErrDimensionMismatch = errors.New("knowledge: embedding dimension mismatch")

	// ErrIndexDrift indicates the index and the document set disagree.
	ErrIndexDrift = errors.New("knowledge: index out of sync with documents")
)

var tracer = otel.Tracer("github.com/flemzord/recall/internal/knowledge")

// Option configures a Base.
type Option func(*Base)

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Base) { b.logger = l }
}

// WithName labels the base in logs and spans (e.g. "documents",
// "long_term").
func WithName(name string) Option {
	return func(b *Base) { b.name = name }
}

// Base is a semantic document store. All methods are safe for concurrent
// use: mutations are exclusive, searches share a read lock, and embedding
// happens before any lock is taken.
type Base struct {
	name     string
	embedder embed.Embedder
	logger   *slog.Logger

	mu    sync.RWMutex
	order []string
	docs  map[string]*Document
	index *vectorindex.Flat
	dim   int
}

// New creates an empty Base that embeds content with e.
func New(e embed.Embedder, opts ...Option) *Base {
	b := &Base{
		name:     "documents",
		embedder: e,
		docs:     make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	b.logger = b.logger.With("base", b.name)
	return b
}

// Add stores a document under id, replacing any previous document with the
// same id. It reports whether an existing document was replaced. A
// replacement is a full overwrite of content, metadata and embedding and
// rebuilds the index; a new id is appended.
func (b *Base) Add(ctx context.Context, id, content string, metadata map[string]any) (updated bool, err error) {
	const op = "knowledge.add"

	ctx, span := b.startSpan(ctx, op, attribute.String("doc.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return false, fault.Validation(op, "document id must not be empty")
	}
	if strings.TrimSpace(content) == "" {
		return false, fault.Validation(op, "document content must not be empty")
	}

	vec, err := b.embedder.Embed(ctx, content)
	if err != nil {
		return false, fault.Wrap(fault.KindProvider, op, err)
	}

	doc := &Document{
		ID:        id,
		Content:   content,
		Metadata:  cloneMetadata(metadata),
		Embedding: vec,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkDimension(len(vec)); err != nil {
		return false, fault.Wrap(fault.KindConsistency, op, err)
	}

	if _, exists := b.docs[id]; exists {
		docs := maps.Clone(b.docs)
		docs[id] = doc
		if err := b.commitRebuild(slices.Clone(b.order), docs); err != nil {
			return false, fault.Wrap(fault.KindConsistency, op, err)
		}
		b.logger.Debug("document replaced", "doc_id", id, "total", len(b.order))
		return true, nil
	}

	if b.index == nil {
		idx, err := vectorindex.New(len(vec))
		if err != nil {
			return false, fault.Wrap(fault.KindConsistency, op, err)
		}
		b.index = idx
		b.dim = len(vec)
	}
	if err := b.verify(b.order, b.docs, b.index); err != nil {
		return false, fault.Wrap(fault.KindConsistency, op, err)
	}
	if err := b.index.Add(vec); err != nil {
		return false, fault.Wrap(fault.KindConsistency, op, err)
	}
	b.order = append(b.order, id)
	b.docs[id] = doc

	b.logger.Debug("document added", "doc_id", id, "total", len(b.order))
	return false, nil
}

// Delete removes the document with id and rebuilds the index. It reports
// whether the document existed.
func (b *Base) Delete(ctx context.Context, id string) (deleted bool, err error) {
	const op = "knowledge.delete"

	_, span := b.startSpan(ctx, op, attribute.String("doc.id", id))
	defer func() { endSpan(span, err) }()

	if id == "" {
		return false, fault.Validation(op, "document id must not be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.docs[id]; !exists {
		return false, nil
	}

	order := slices.DeleteFunc(slices.Clone(b.order), func(s string) bool { return s == id })
	docs := maps.Clone(b.docs)
	delete(docs, id)

	if err := b.commitRebuild(order, docs); err != nil {
		return false, fault.Wrap(fault.KindConsistency, op, err)
	}

	b.logger.Debug("document deleted", "doc_id", id, "total", len(b.order))
	return true, nil
}

// Search returns up to topK documents closest to query, best first.
// An empty base or a non-positive topK yields an empty result.
func (b *Base) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	return b.SearchFunc(ctx, query, topK, nil)
}

// SearchFunc is Search restricted to documents accepted by keep. A nil
// keep accepts every document.
func (b *Base) SearchFunc(ctx context.Context, query string, topK int, keep func(Document) bool) (results []Result, err error) {
	const op = "knowledge.search"

	ctx, span := b.startSpan(ctx, op, attribute.Int("search.top_k", topK))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(query) == "" {
		return nil, fault.Validation(op, "query must not be empty")
	}
	if topK <= 0 || b.Len() == 0 {
		return []Result{}, nil
	}

	vec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fault.Wrap(fault.KindProvider, op, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.index == nil || len(b.order) == 0 {
		return []Result{}, nil
	}

	var filter func(int) bool
	if keep != nil {
		filter = func(pos int) bool {
			return keep(b.docs[b.order[pos]].clone())
		}
	}

	hits, err := b.index.SearchFunc(vec, topK, filter)
	if err != nil {
		if errors.Is(err, vectorindex.ErrDimensionMismatch) {
			err = fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
		}
		return nil, fault.Wrap(fault.KindConsistency, op, err)
	}

	results = make([]Result, 0, len(hits))
	for _, h := range hits {
		doc := b.docs[b.order[h.Pos]]
		results = append(results, Result{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: cloneMetadata(doc.Metadata),
			Score:    vectorindex.Similarity(h.Distance),
		})
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

// Get returns a copy of the document with id.
func (b *Base) Get(id string) (Document, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	doc, ok := b.docs[id]
	if !ok {
		return Document{}, false
	}
	return doc.clone(), true
}

// List returns all document ids in insertion order.
func (b *Base) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.order)
}

// Len returns the number of stored documents.
func (b *Base) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Stats reports the document count, the fixed embedding dimension (0 until
// the first insert) and the embedding model.
func (b *Base) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		TotalDocuments: len(b.order),
		Dimension:      b.dim,
		Model:          b.embedder.Model(),
	}
}

// checkDimension enforces the dimension fixed by the first insert. Must be
// called with mu held.
func (b *Base) checkDimension(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	if b.dim != 0 && n != b.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, n, b.dim)
	}
	return nil
}

// commitRebuild builds a fresh index for order, verifies it against docs
// and only then replaces the live state. On error nothing changes. Must be
// called with mu held for writing.
func (b *Base) commitRebuild(order []string, docs map[string]*Document) error {
	dim := b.dim
	if dim == 0 {
		// Nothing was ever inserted; there is nothing to rebuild.
		return nil
	}

	vectors := make([][]float32, len(order))
	for i, id := range order {
		doc, ok := docs[id]
		if !ok {
			return fmt.Errorf("%w: id %q in order but not stored", ErrIndexDrift, id)
		}
		vectors[i] = doc.Embedding
	}

	idx, err := vectorindex.Build(dim, vectors)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}
	if err := b.verify(order, docs, idx); err != nil {
		return err
	}

	b.order = order
	b.docs = docs
	b.index = idx
	return nil
}

func (b *Base) verify(order []string, docs map[string]*Document, idx *vectorindex.Flat) error {
	if len(order) != idx.Len() || len(order) != len(docs) {
		return fmt.Errorf("%w: order=%d index=%d documents=%d", ErrIndexDrift, len(order), idx.Len(), len(docs))
	}
	return nil
}

func (b *Base) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("knowledge.base", b.name))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
