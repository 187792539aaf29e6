package knowledge

// Document is a stored knowledge entry. Embedding is the vector computed
// from Content when the document was added.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"-"`
}

// Result is one ranked search hit. Score is 1/(1+d) where d is the squared
// Euclidean distance to the query, so identical vectors score 1.
type Result struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// Stats summarises a knowledge base.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	Dimension      int    `json:"dimension"`
	Model          string `json:"model"`
}

// cloneMetadata deep-copies nested maps and slices so callers never share
// mutable state with the store.
func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMetadata(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = cloneValue(item)
		}
		return cp
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	default:
		return v
	}
}

func (d *Document) clone() Document {
	return Document{
		ID:       d.ID,
		Content:  d.Content,
		Metadata: cloneMetadata(d.Metadata),
	}
}
