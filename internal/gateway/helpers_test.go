package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/recall/internal/embed"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/flemzord/recall/internal/rag"
)

// stubAgent answers every query with a fixed Answer.
type stubAgent struct {
	answer rag.Answer
	err    error
}

func (s stubAgent) ProcessQuery(_ context.Context, _, _ string) (rag.Answer, error) {
	return s.answer, s.err
}

type testEnv struct {
	kb      *knowledge.Base
	mem     *memory.Manager
	backend *Backend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := embed.NewHashing(1024)
	kb := knowledge.New(e)
	mem := memory.NewManager(knowledge.New(e, knowledge.WithName("long_term")), nil, memory.Config{})
	metrics := NewMetrics()
	metrics.WatchStats(kb.Stats, mem.Stats)

	return &testEnv{
		kb:  kb,
		mem: mem,
		backend: &Backend{
			Dispatcher: protocol.NewDispatcher(kb, mem, protocol.WithObserver(metrics)),
			Knowledge:  kb,
			Memory:     mem,
			Metrics:    metrics,
		},
	}
}

// newTestGateway builds a provisioned gateway serving env without
// listening.
func newTestGateway(t *testing.T, env *testEnv, cfg Config) (*Gateway, http.Handler) {
	t.Helper()
	cfg.defaults()
	g := &Gateway{
		config:    cfg,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		backend:   env.backend,
		startedAt: time.Now(),
	}
	return g, g.buildRouter()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}
