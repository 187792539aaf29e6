package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/flemzord/recall/internal/protocol"
)

func dialWS(t *testing.T, h *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(h.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func roundTripWS(t *testing.T, conn *websocket.Conn, typ websocket.MessageType, frame string) protocol.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	if err := conn.Write(ctx, typ, []byte(frame)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var resp protocol.Response
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		t.Fatalf("Read: %v", err)
	}
	return resp
}

func TestWebSocket_OneResponsePerFrame(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	_, h := newTestGateway(t, env, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWS(t, srv)

	resp := roundTripWS(t, conn, websocket.MessageText,
		`{"id":"a","method":"add_document","params":{"doc_id":"d1","content":"websockets carry frames"}}`)
	if resp.ID != "a" || !resp.OK() {
		t.Fatalf("add response = %+v", resp)
	}

	resp = roundTripWS(t, conn, websocket.MessageText, `{"id":"b","method":"list_documents"}`)
	if resp.ID != "b" || !resp.OK() {
		t.Fatalf("list response = %+v", resp)
	}

	resp = roundTripWS(t, conn, websocket.MessageText, `garbage`)
	if resp.OK() || resp.Code != "protocol" || resp.ID == "" {
		t.Fatalf("garbage response = %+v", resp)
	}

	resp = roundTripWS(t, conn, websocket.MessageBinary, `{"id":"c","method":"get_stats"}`)
	if resp.OK() || resp.Code != "protocol" {
		t.Fatalf("binary response = %+v", resp)
	}

	if env.kb.Len() != 1 {
		t.Fatalf("kb len = %d, want 1", env.kb.Len())
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
