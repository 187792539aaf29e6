// Package ingest prepares text for the knowledge base: normalisation,
// overlapping chunking, the bundled sample corpus and bulk seeding.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/flemzord/recall/internal/knowledge"
)

// Chunking defaults.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Document is a document waiting to be added to a knowledge base.
type Document struct {
	ID       string         `yaml:"id" json:"id"`
	Content  string         `yaml:"content" json:"content"`
	Metadata map[string]any `yaml:"metadata" json:"metadata,omitempty"`
}

// Adder is the write side of a knowledge base.
type Adder interface {
	Add(ctx context.Context, id, content string, metadata map[string]any) (bool, error)
}

// Clean collapses runs of whitespace to single spaces, drops NUL bytes
// and trims the result.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}

// Chunk splits text into pieces of at most size runes that overlap by
// overlap runes. A piece ends at the last sentence or line break in its
// second half when there is one. Text that fits in one piece is returned
// whole. Non-positive arguments select the defaults.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap % size
	}

	runes := []rune(text)
	if len(runes) <= size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if end < len(runes) {
			if brk := lastBreak(runes[start:end]); brk > size/2 {
				end = start + brk + 1
			}
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
		start = max(end-overlap, start+1)
	}
	return chunks
}

func lastBreak(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == '.' || rs[i] == '\n' {
			return i
		}
	}
	return -1
}

// ChunkDocument splits doc into documents with ids "<id>#<n>" (n from 0)
// and metadata extended with parent_id and chunk. A document that fits
// in one chunk is returned unchanged.
func ChunkDocument(doc Document, size, overlap int) []Document {
	pieces := Chunk(doc.Content, size, overlap)
	if len(pieces) <= 1 {
		return []Document{doc}
	}
	out := make([]Document, len(pieces))
	for i, piece := range pieces {
		meta := maps.Clone(doc.Metadata)
		if meta == nil {
			meta = make(map[string]any, 2)
		}
		meta["parent_id"] = doc.ID
		meta["chunk"] = i
		out[i] = Document{ID: fmt.Sprintf("%s#%d", doc.ID, i), Content: piece, Metadata: meta}
	}
	return out
}

// Family returns the ids in ids that belong to parent: parent itself and
// its "<parent>#<n>" chunks.
func Family(parent string, ids []string) []string {
	var out []string
	for _, id := range ids {
		if id == parent {
			out = append(out, id)
			continue
		}
		n, ok := strings.CutPrefix(id, parent+"#")
		if ok && n != "" && strings.Trim(n, "0123456789") == "" {
			out = append(out, id)
		}
	}
	return out
}

// Seed adds every document to kb, continuing past failures. The returned
// error joins all failures.
func Seed(ctx context.Context, kb Adder, docs []Document) (added int, err error) {
	var errs []error
	for _, doc := range docs {
		if _, aerr := kb.Add(ctx, doc.ID, Clean(doc.Content), doc.Metadata); aerr != nil {
			errs = append(errs, fmt.Errorf("ingest: seeding %q: %w", doc.ID, aerr))
			continue
		}
		added++
	}
	return added, errors.Join(errs...)
}

// FormatResults renders search results as a numbered list of
// "[topic] content (Score: x.xxx)" lines, truncating content to 200
// runes.
func FormatResults(results []knowledge.Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		topic, _ := r.Metadata["topic"].(string)
		if topic == "" {
			topic = "Unknown"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. [%s] %s (Score: %.3f)", i+1, topic, Truncate(r.Content, 200), r.Score)
	}
	return b.String()
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "..."
}
