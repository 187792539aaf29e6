// Package protocol implements the Knowledge Protocol: a synchronous
// request/response envelope routed to knowledge base and memory
// operations. Transports (HTTP, WebSocket, MCP) decode requests and hand
// them to a Dispatcher.
package protocol

import (
	"encoding/json"

	"github.com/flemzord/recall/internal/fault"
	"github.com/google/uuid"
)

// Request is one protocol call.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     string  `json:"id"`
	Result any     `json:"result"`
	Error  *string `json:"error"`
	Code   string  `json:"code,omitempty"`
}

// OK reports whether the response carries a result.
func (r Response) OK() bool { return r.Error == nil }

// NewID returns a fresh request id.
func NewID() string { return uuid.NewString() }

// Success builds a result response.
func Success(id string, result any) Response {
	return Response{ID: id, Result: result}
}

// Failure builds an error response, classifying err for the code field.
func Failure(id string, err error) Response {
	msg := err.Error()
	return Response{ID: id, Error: &msg, Code: fault.KindOf(err).Code()}
}

// DecodeRequest parses a raw envelope. A missing id is replaced with a
// generated one so the caller can always correlate the response. The
// returned id is valid even when decoding fails part-way.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{ID: NewID()}, fault.Protocol("protocol.decode", "malformed request: %v", err)
	}
	if req.ID == "" {
		req.ID = NewID()
	}
	if req.Method == "" {
		return req, fault.Protocol("protocol.decode", "method must not be empty")
	}
	return req, nil
}
