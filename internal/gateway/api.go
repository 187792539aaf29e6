package gateway

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
	"github.com/flemzord/recall/internal/ingest"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/protocol"
	"github.com/flemzord/recall/internal/rag"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// errorBody is the JSON error shape of the /api routes.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindValidation, fault.KindProtocol:
		return http.StatusBadRequest
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Provider and consistency failures are logged
// and replaced by a generic message.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	msg := err.Error()
	switch kind {
	case fault.KindProvider:
		g.logger.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "upstream provider failure"
	case fault.KindConsistency:
		g.logger.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), errorBody{Error: msg, Code: kind.Code()})
}

// readBody reads at most MaxBodyBytes of the request body.
func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fault.Protocol("http.read", "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fault.Protocol("http.read", "reading body: %v", err)
	}
	return data, nil
}

// decodeBody reads and unmarshals a JSON request body into dst.
func (g *Gateway) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	data, err := g.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fault.Protocol("http.decode", "malformed JSON body: %v", err)
	}
	return nil
}

// handleEnvelope serves POST /mcp: one protocol envelope per request.
func (g *Gateway) handleEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := g.readBody(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, protocol.Failure(protocol.NewID(), err))
			return
		}
		req, err := protocol.DecodeRequest(data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, protocol.Failure(req.ID, err))
			return
		}
		writeJSON(w, http.StatusOK, g.backend.Dispatcher.Dispatch(r.Context(), req))
	}
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	UserID string `json:"user_id"`
	rag.Answer
}

// handleChat serves POST /api/chat.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := g.decodeBody(w, r, &req); err != nil {
			g.writeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.config.chatBudget())
		defer cancel()

		start := time.Now()
		ans, err := g.backend.Agent.ProcessQuery(ctx, req.UserID, req.Message)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if g.backend.Metrics != nil {
			g.backend.Metrics.RecordChat(ans.Degraded, time.Since(start))
		}
		writeJSON(w, http.StatusOK, chatResponse{UserID: req.UserID, Answer: ans})
	}
}

type addKnowledgeRequest struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Chunk    bool           `json:"chunk"`
}

type addKnowledgeResponse struct {
	Status string   `json:"status"`
	DocIDs []string `json:"doc_ids"`
}

// handleAddKnowledge serves POST /api/knowledge. Content is cleaned and,
// with chunk set, split into "<id>#<n>" documents. The new documents
// replace the whole family of id (the id and its chunks) from earlier
// adds. If an add fails, the documents written by this request are
// removed again, so the family is left absent rather than half written.
func (g *Gateway) handleAddKnowledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addKnowledgeRequest
		if err := g.decodeBody(w, r, &req); err != nil {
			g.writeError(w, r, err)
			return
		}
		content := ingest.Clean(req.Content)
		if content == "" {
			g.writeError(w, r, fault.Validation("http.add_knowledge", "content must not be empty"))
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			req.ID = uuid.NewString()
		}

		docs := []ingest.Document{{ID: req.ID, Content: content, Metadata: req.Metadata}}
		if req.Chunk {
			docs = ingest.ChunkDocument(docs[0], ingest.DefaultChunkSize, ingest.DefaultChunkOverlap)
		}

		kb := g.backend.Knowledge
		ctx := r.Context()
		resp := addKnowledgeResponse{Status: protocol.StatusAdded, DocIDs: make([]string, 0, len(docs))}

		stale := ingest.Family(req.ID, kb.List())
		if len(stale) > 0 {
			resp.Status = protocol.StatusUpdated
		}
		for _, id := range stale {
			if _, err := kb.Delete(ctx, id); err != nil {
				g.writeError(w, r, err)
				return
			}
		}

		for _, doc := range docs {
			if _, err := kb.Add(ctx, doc.ID, doc.Content, doc.Metadata); err != nil {
				g.rollback(ctx, resp.DocIDs)
				g.writeError(w, r, err)
				return
			}
			resp.DocIDs = append(resp.DocIDs, doc.ID)
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// rollback removes documents written by a failed request.
func (g *Gateway) rollback(ctx context.Context, ids []string) {
	for _, id := range ids {
		if _, err := g.backend.Knowledge.Delete(context.WithoutCancel(ctx), id); err != nil {
			g.logger.Error("rollback failed", "doc_id", id, "error", err)
		}
	}
}

type searchResponse struct {
	Results []knowledge.Result `json:"results"`
	Query   string             `json:"query"`
	Count   int                `json:"count"`
}

// handleSearch serves POST /api/search through the protocol dispatcher.
func (g *Gateway) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := g.readBody(w, r)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		var params protocol.SearchParams
		if err := json.Unmarshal(data, &params); err != nil {
			g.writeError(w, r, fault.Protocol("http.decode", "malformed JSON body: %v", err))
			return
		}

		res, err := g.backend.Dispatcher.Call(r.Context(), protocol.MethodSearch, bytes.TrimSpace(data))
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		sr, ok := res.(protocol.SearchResult)
		if !ok {
			g.writeError(w, r, fmt.Errorf("unexpected search result %T", res))
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Results: sr.Results, Query: params.Query, Count: len(sr.Results)})
	}
}

// handleClearMemory serves DELETE /api/users/{id}/memory.
func (g *Gateway) handleClearMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := g.backend.Memory.ClearUserMemory(id); err != nil {
			g.writeError(w, r, err)
			return
		}
		g.logger.Info("user memory cleared", "user_id", id)
		writeJSON(w, http.StatusOK, protocol.StatusResult{Status: protocol.StatusCleared, UserID: id})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
