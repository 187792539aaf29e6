package protocol

import (
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
)

// Status values reported by mutating methods.
const (
	StatusStored   = "stored"
	StatusAdded    = "added"
	StatusUpdated  = "updated"
	StatusDeleted  = "deleted"
	StatusNotFound = "not_found"
	StatusCleared  = "cleared"
)

// SearchResult is returned by "search".
type SearchResult struct {
	Results []knowledge.Result `json:"results"`
}

// StatusResult is returned by methods that mutate state.
type StatusResult struct {
	Status   string `json:"status"`
	DocID    string `json:"doc_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	MemoryID string `json:"memory_id,omitempty"`
}

// MemorySearchResult is returned by "memory_search".
type MemorySearchResult struct {
	Data memory.Context `json:"data"`
}

// PreferencesResult is returned by "get_preferences".
type PreferencesResult struct {
	Preferences map[string]any `json:"preferences"`
}

// StatsResult is returned by "get_stats".
type StatsResult struct {
	Database knowledge.Stats `json:"database"`
	Memory   memory.Stats    `json:"memory"`
}

// DocumentView is the wire form of a stored document.
type DocumentView struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// DocumentResult is returned by "get_document".
type DocumentResult struct {
	Document DocumentView `json:"document"`
}

// DocumentListResult is returned by "list_documents".
type DocumentListResult struct {
	DocIDs []string `json:"doc_ids"`
}
