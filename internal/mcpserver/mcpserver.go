// Package mcpserver exposes the protocol methods as Model Context Protocol
// tools. Every tool call is routed through the protocol dispatcher, so the
// MCP surface and the JSON envelope endpoints share validation and error
// classification.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is advertised to MCP clients during initialisation.
const ServerName = "recall"

// Caller executes one protocol method.
type Caller interface {
	Call(ctx context.Context, method string, params json.RawMessage) (any, error)
}

var _ Caller = (*protocol.Dispatcher)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server wraps an MCP server whose tools mirror protocol.Describe.
type Server struct {
	mcp    *server.MCPServer
	caller Caller
	logger *slog.Logger
}

// New builds the MCP server and registers one tool per protocol method.
func New(caller Caller, version string, opts ...Option) *Server {
	s := &Server{caller: caller}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.mcp = server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, c := range protocol.Describe().Methods {
		s.mcp.AddTool(toolFor(c), s.handler(c.Name))
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio speaks MCP over in/out until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("mcp stdio server started")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// HTTPHandler returns a streamable HTTP transport for the server.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func toolFor(c protocol.Capability) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(c.Description)}
	for _, p := range c.Params {
		var props []mcp.PropertyOption
		if p.Required {
			props = append(props, mcp.Required())
		}
		if p.Description != "" {
			props = append(props, mcp.Description(p.Description))
		}
		switch p.Type {
		case protocol.TypeNumber:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case protocol.TypeObject:
			opts = append(opts, mcp.WithObject(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(c.Name, opts...)
}

// handler adapts a protocol method to an MCP tool. Protocol failures are
// reported as tool errors carrying the wire code, never as transport
// errors.
func (s *Server) handler(method string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params json.RawMessage
		if args := req.GetArguments(); len(args) > 0 {
			raw, err := json.Marshal(args)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("protocol: encoding arguments: %v", err)), nil
			}
			params = raw
		}

		result, err := s.caller.Call(ctx, method, params)
		if err != nil {
			return mcp.NewToolResultError(fault.KindOf(err).Code() + ": " + err.Error()), nil
		}

		out, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("consistency: encoding result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
