package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flemzord/recall/internal/fault"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
)

const (
	// DefaultClientTimeout bounds every client round trip.
	DefaultClientTimeout = 30 * time.Second

	maxResponseBytes = 10 << 20
)

// Client calls a remote gateway over HTTP: envelopes go to POST /mcp,
// introspection to GET /capabilities and GET /health.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the gateway at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireResponse is Response with the result left undecoded.
type wireResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
	Code   string          `json:"code"`
}

// Call sends one envelope and decodes its result into out (which may be
// nil). An error response comes back classified under the kind named by
// its code.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	op := "protocol.client." + method
	req := Request{ID: NewID(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fault.Wrap(fault.KindValidation, op, err)
		}
		req.Params = raw
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fault.Wrap(fault.KindValidation, op, err)
	}

	data, _, err := c.do(ctx, op, http.MethodPost, "/mcp", body)
	if err != nil {
		return err
	}
	var resp wireResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fault.Protocol(op, "malformed response: %v", err)
	}
	if resp.ID != req.ID {
		return fault.Protocol(op, "response id %q does not match request id %q", resp.ID, req.ID)
	}
	if resp.Error != nil {
		return fault.Wrap(fault.ParseCode(resp.Code), op, errors.New(*resp.Error))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fault.Protocol(op, "malformed result: %v", err)
	}
	return nil
}

// do performs one request and returns the body. Envelope replies carry
// their own error field, so 4xx statuses with a JSON body are passed
// through for Call to decode.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, 0, fault.Wrap(fault.KindValidation, op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fault.Wrap(fault.KindProvider, op, err)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, resp.StatusCode, fault.Wrap(fault.KindProvider, op, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, fault.Wrap(fault.KindProvider, op, fmt.Errorf("status %d", resp.StatusCode))
	}
	return data, resp.StatusCode, nil
}

// Search runs "search" and returns the ranked results.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]knowledge.Result, error) {
	var out SearchResult
	if err := c.Call(ctx, MethodSearch, SearchParams{Query: query, TopK: &topK}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// StoreMemory runs "memory_store" for one message.
func (c *Client) StoreMemory(ctx context.Context, userID string, role memory.Role, content string) (StatusResult, error) {
	var out StatusResult
	err := c.Call(ctx, MethodMemoryStore, MemoryStoreParams{
		UserID: userID,
		Data:   &MessageData{Role: role, Content: content},
	}, &out)
	return out, err
}

// SearchMemory runs "memory_search".
func (c *Client) SearchMemory(ctx context.Context, userID, query string, limit int) (memory.Context, error) {
	var out MemorySearchResult
	err := c.Call(ctx, MethodMemorySearch, MemorySearchParams{UserID: userID, Query: query, Limit: &limit}, &out)
	return out.Data, err
}

// Capabilities fetches GET /capabilities.
func (c *Client) Capabilities(ctx context.Context) (Capabilities, error) {
	const op = "protocol.client.capabilities"
	var out Capabilities
	data, code, err := c.do(ctx, op, http.MethodGet, "/capabilities", nil)
	if err != nil {
		return out, err
	}
	if code != http.StatusOK {
		return out, fault.Wrap(fault.KindProvider, op, fmt.Errorf("status %d", code))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fault.Protocol(op, "malformed capabilities: %v", err)
	}
	return out, nil
}

// Health reports whether GET /health answers "healthy".
func (c *Client) Health(ctx context.Context) error {
	const op = "protocol.client.health"
	data, code, err := c.do(ctx, op, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	var out struct {
		Status string `json:"status"`
	}
	if code != http.StatusOK || json.Unmarshal(data, &out) != nil || out.Status != "healthy" {
		return fault.Wrap(fault.KindProvider, op, fmt.Errorf("unhealthy: status %d", code))
	}
	return nil
}
