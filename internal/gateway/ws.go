package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/flemzord/recall/internal/security"
)

const wsWriteTimeout = 10 * time.Second

// handleWebSocket serves GET /ws. Each text frame carries one protocol
// request and is answered by exactly one response frame, in order.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// The server-wide deadlines would otherwise cut long-lived sessions.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: g.config.WSOrigins})
	if err != nil {
		g.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.CloseNow()
	}()
	conn.SetReadLimit(g.config.MaxBodyBytes)

	client := security.ClientIP(r)
	g.logger.Debug("websocket connected", "remote_addr", client)
	g.readLoop(r.Context(), conn, client)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				g.logger.Debug("websocket closed", "remote_addr", client)
			default:
				if !errors.Is(err, context.Canceled) {
					g.logger.Debug("websocket read failed", "remote_addr", client, "error", err)
				}
			}
			return
		}

		resp := g.answerFrame(ctx, typ, data, client)

		writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		err = wsjson.Write(writeCtx, conn, resp)
		cancel()
		if err != nil {
			g.logger.Debug("websocket write failed", "remote_addr", client, "error", err)
			return
		}
	}
}

func (g *Gateway) answerFrame(ctx context.Context, typ websocket.MessageType, data []byte, client string) protocol.Response {
	const op = "ws.frame"

	if typ != websocket.MessageText {
		return protocol.Failure(protocol.NewID(), fault.Protocol(op, "binary frames are not supported"))
	}
	req, err := protocol.DecodeRequest(data)
	if err != nil {
		return protocol.Failure(req.ID, err)
	}
	if g.limiter != nil {
		if err := g.limiter.Allow(client); err != nil {
			return protocol.Failure(req.ID, fault.Protocol(op, "%v", err))
		}
	}
	return g.backend.Dispatcher.Dispatch(ctx, req)
}
