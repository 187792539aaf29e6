package protocol_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/protocol"
)

// serveDispatcher exposes d on POST /mcp the way the gateway does.
func serveDispatcher(t *testing.T, d *protocol.Dispatcher) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		req, err := protocol.DecodeRequest(data)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(protocol.Failure(req.ID, err))
			return
		}
		_ = json.NewEncoder(w).Encode(d.Dispatch(r.Context(), req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	t.Parallel()
	if protocol.DefaultClientTimeout != 30*time.Second {
		t.Fatalf("DefaultClientTimeout = %v, want 30s", protocol.DefaultClientTimeout)
	}
}

func TestClient_SearchAndMemory(t *testing.T) {
	t.Parallel()

	d := newDispatcher(t)
	call(t, d, protocol.MethodAddDocument, `{"doc_id":"go","content":"goroutines and channels"}`)
	c := protocol.NewClient(serveDispatcher(t, d).URL + "/")

	results, err := c.Search(t.Context(), "channels", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "go" {
		t.Fatalf("results = %+v, want doc go", results)
	}

	st, err := c.StoreMemory(t.Context(), "alice", memory.RoleUser, "I like tea")
	if err != nil {
		t.Fatalf("StoreMemory: %v", err)
	}
	if st.Status != protocol.StatusStored {
		t.Errorf("status = %q, want %q", st.Status, protocol.StatusStored)
	}

	mc, err := c.SearchMemory(t.Context(), "alice", "", 10)
	if err != nil {
		t.Fatalf("SearchMemory: %v", err)
	}
	if len(mc.RecentContext) != 1 || mc.RecentContext[0].Content != "I like tea" {
		t.Fatalf("recent = %+v", mc.RecentContext)
	}
}

func TestClient_ErrorKeepsKind(t *testing.T) {
	t.Parallel()

	c := protocol.NewClient(serveDispatcher(t, newDispatcher(t)).URL)

	tests := []struct {
		name   string
		method string
		params any
		want   fault.Kind
	}{
		{"missing param", protocol.MethodSearch, map[string]any{}, fault.KindValidation},
		{"unknown method", "no_such_method", nil, fault.KindProtocol},
		{"unknown document", protocol.MethodGetDocument, map[string]any{"doc_id": "ghost"}, fault.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := c.Call(t.Context(), tt.method, tt.params, nil)
			if !fault.Is(err, tt.want) {
				t.Fatalf("Call err = %v (kind %v), want kind %v", err, fault.KindOf(err), tt.want)
			}
		})
	}
}

func TestClient_HTTPFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/capabilities":
			_, _ = io.WriteString(w, "not json")
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)
	c := protocol.NewClient(srv.URL, protocol.WithHTTPClient(srv.Client()))

	if err := c.Health(t.Context()); !fault.Is(err, fault.KindProvider) {
		t.Errorf("Health err = %v, want provider failure", err)
	}
	if _, err := c.Capabilities(t.Context()); !fault.Is(err, fault.KindProtocol) {
		t.Errorf("Capabilities err = %v, want protocol failure", err)
	}
	if err := c.Call(t.Context(), protocol.MethodGetStats, nil, nil); !fault.Is(err, fault.KindProvider) {
		t.Errorf("Call err = %v, want provider failure", err)
	}
}

func TestClient_MismatchedResponseID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(protocol.Success("someone-else", map[string]any{}))
	}))
	t.Cleanup(srv.Close)

	err := protocol.NewClient(srv.URL).Call(t.Context(), protocol.MethodGetStats, nil, nil)
	if !fault.Is(err, fault.KindProtocol) {
		t.Fatalf("Call err = %v, want protocol failure", err)
	}
}
