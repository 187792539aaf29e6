package protocol

import (
	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/memory"
)

// Method defaults.
const (
	DefaultTopK        = 5
	DefaultMemoryLimit = 10
)

// SearchParams are the parameters of "search".
type SearchParams struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

func (p SearchParams) validate(op string) error {
	return required(op, "query", p.Query)
}

func (p SearchParams) topK() int {
	if p.TopK == nil {
		return DefaultTopK
	}
	return *p.TopK
}

// MessageData is the message carried by "memory_store".
type MessageData struct {
	Role    memory.Role `json:"role"`
	Content string      `json:"content"`
}

// MemoryStoreParams are the parameters of "memory_store".
type MemoryStoreParams struct {
	UserID string       `json:"user_id"`
	Data   *MessageData `json:"data"`
}

func (p MemoryStoreParams) validate(op string) error {
	if err := required(op, "user_id", p.UserID); err != nil {
		return err
	}
	if p.Data == nil {
		return fault.Validation(op, "missing required param %q", "data")
	}
	return nil
}

// MemorySearchParams are the parameters of "memory_search".
type MemorySearchParams struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  *int   `json:"limit,omitempty"`
}

func (p MemorySearchParams) validate(op string) error {
	return required(op, "user_id", p.UserID)
}

func (p MemorySearchParams) limit() int {
	if p.Limit == nil {
		return DefaultMemoryLimit
	}
	return *p.Limit
}

// UserParams carry only a user id ("get_preferences", "memory_clear").
type UserParams struct {
	UserID string `json:"user_id"`
}

func (p UserParams) validate(op string) error {
	return required(op, "user_id", p.UserID)
}

// AddDocumentParams are the parameters of "add_document".
type AddDocumentParams struct {
	DocID    string         `json:"doc_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p AddDocumentParams) validate(op string) error {
	if err := required(op, "doc_id", p.DocID); err != nil {
		return err
	}
	return required(op, "content", p.Content)
}

// DocumentParams carry only a document id ("delete_document",
// "get_document").
type DocumentParams struct {
	DocID string `json:"doc_id"`
}

func (p DocumentParams) validate(op string) error {
	return required(op, "doc_id", p.DocID)
}

// ArchiveParams are the parameters of "memory_archive".
type ArchiveParams struct {
	UserID string `json:"user_id"`
	QAText string `json:"qa_text"`
	Topic  string `json:"topic,omitempty"`
}

func (p ArchiveParams) validate(op string) error {
	if err := required(op, "user_id", p.UserID); err != nil {
		return err
	}
	return required(op, "qa_text", p.QAText)
}

// noParams is used by methods that take no parameters.
type noParams struct{}

func (noParams) validate(string) error { return nil }

func required(op, name, value string) error {
	if value == "" {
		return fault.Validation(op, "missing required param %q", name)
	}
	return nil
}
