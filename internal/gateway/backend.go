package gateway

import (
	"context"
	"net/http"

	"github.com/flemzord/recall/internal/ingest"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/flemzord/recall/internal/provider"
	"github.com/flemzord/recall/internal/rag"
	"github.com/flemzord/recall/internal/security"
)

// BackendService is the service registry key under which the application
// publishes the *Backend the gateway serves.
const BackendService = "recall.backend"

// Answerer runs the answer pipeline for /api/chat.
type Answerer interface {
	ProcessQuery(ctx context.Context, userID, query string) (rag.Answer, error)
}

// KnowledgeStore is the knowledge base as the /api/knowledge route uses
// it.
type KnowledgeStore interface {
	ingest.Adder
	Delete(ctx context.Context, id string) (bool, error)
	List() []string
}

// MemoryAdmin is the administrative side of the memory manager.
type MemoryAdmin interface {
	ClearUserMemory(userID string) error
}

// Backend bundles everything the HTTP routes call into. Optional fields
// left nil unmount their routes.
type Backend struct {
	Dispatcher *protocol.Dispatcher
	Knowledge  KnowledgeStore
	Memory     MemoryAdmin

	// Agent serves /api/chat. Nil when no generation provider is
	// configured.
	Agent Answerer

	// MCP serves /mcp/stream.
	MCP http.Handler

	Chain   *provider.Chain
	Metrics *Metrics

	// Config is the loaded configuration, exposed redacted on /api/config.
	Config   any
	Redactor *security.Redactor
}
