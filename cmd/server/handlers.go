package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/regsage/regsage"
	"github.com/regsage/regsage/extract"
)

type handler struct {
	engine regsage.Engine
}

func newHandler(e regsage.Engine) *handler {
	return &handler{engine: e}
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("POST /documents", h.handleAddDocument)
	mux.HandleFunc("POST /documents/batch", h.handleAddDocumentBatch)
	mux.HandleFunc("POST /documents/upload", h.handleUploadDocument)
	mux.HandleFunc("GET /documents", h.handleListDocuments)
	mux.HandleFunc("GET /documents/search", h.handleSearchDocuments)
	mux.HandleFunc("GET /documents/{id}", h.handleGetDocument)
	mux.HandleFunc("GET /documents/{id}/content", h.handleGetDocumentContent)
	mux.HandleFunc("DELETE /documents/{id}", h.handleDeleteDocument)
	mux.HandleFunc("DELETE /documents", h.handleDeleteJurisdiction)
	mux.HandleFunc("GET /conversations/{id}", h.handleGetConversation)
	mux.HandleFunc("GET /conversations/{id}/messages", h.handleGetMessages)
	mux.HandleFunc("GET /agents", h.handleAgents)
	mux.HandleFunc("GET /jurisdictions", h.handleJurisdictions)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /health", h.handleHealth)

	return mux
}

// POST /chat
func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req regsage.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.engine.Query(ctx, req)
	if err != nil {
		writeEngineError(w, err)
		slog.Error("chat error", "conversation", req.ConversationID, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /documents
func (h *handler) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var doc regsage.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ids, err := h.engine.AddDocument(ctx, doc)
	if err != nil {
		writeEngineError(w, err)
		slog.Error("add document error", "title", doc.Title, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documentIds": ids,
		"chunks":      len(ids),
	})
}

// POST /documents/batch
func (h *handler) handleAddDocumentBatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var docs []regsage.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: expected an array of documents")
		return
	}
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one document is required")
		return
	}

	outcomes := h.engine.AddDocumentBatch(ctx, docs)

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": outcomes,
		"total":    len(outcomes),
		"failed":   failed,
	})
}

// POST /documents/upload
// Multipart upload of a txt, md, or pdf file plus document metadata.
func (h *handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100MB max
		writeError(w, http.StatusBadRequest, "expected a multipart form upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	jurisdiction := r.FormValue("jurisdiction")
	if jurisdiction == "" {
		writeError(w, http.StatusBadRequest, "jurisdiction field is required")
		return
	}

	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(safeName))
	if !extract.Supported(ext) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported document format "+ext)
		return
	}

	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp file", "error", err)
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	tmp.Close()

	content, err := extract.Text(tmpPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not extract text: "+err.Error())
		slog.Error("upload extraction failed", "file", safeName, "error", err)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(safeName, filepath.Ext(safeName))
	}

	ids, err := h.engine.AddDocument(ctx, regsage.DocumentInput{
		Title:        title,
		Content:      content,
		Jurisdiction: jurisdiction,
		DocumentType: r.FormValue("document_type"),
		SourceURL:    r.FormValue("source_url"),
	})
	if err != nil {
		writeEngineError(w, err)
		slog.Error("upload ingest error", "file", safeName, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documentIds": ids,
		"chunks":      len(ids),
		"filename":    safeName,
	})
}

// GET /documents?jurisdiction=&limit=&offset=
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := queryInt(r, "offset", 0)

	docs, err := h.engine.ListDocuments(r.Context(), r.URL.Query().Get("jurisdiction"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// GET /documents/search?q=&jurisdictions=&mode=&limit=
func (h *handler) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	var jurisdictions []string
	if raw := r.URL.Query().Get("jurisdictions"); raw != "" {
		for _, j := range strings.Split(raw, ",") {
			if j = strings.TrimSpace(j); j != "" {
				jurisdictions = append(jurisdictions, j)
			}
		}
	}

	hits, err := h.engine.SearchDocuments(r.Context(), q, jurisdictions,
		r.URL.Query().Get("mode"), queryInt(r, "limit", 10))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": hits,
		"count":   len(hits),
	})
}

// GET /documents/{id}
func (h *handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	doc, err := h.engine.GetDocument(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GET /documents/{id}/content
func (h *handler) handleGetDocumentContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	content, err := h.engine.GetDocumentContent(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"content": content,
	})
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.engine.DeleteDocument(r.Context(), id); err != nil {
		writeEngineError(w, err)
		slog.Error("delete error", "document_id", id, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DELETE /documents?jurisdiction=
func (h *handler) handleDeleteJurisdiction(w http.ResponseWriter, r *http.Request) {
	jurisdiction := r.URL.Query().Get("jurisdiction")

	n, err := h.engine.DeleteJurisdiction(r.Context(), jurisdiction)
	if err != nil {
		writeEngineError(w, err)
		slog.Error("delete jurisdiction error", "jurisdiction", jurisdiction, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "deleted",
		"deleted": n,
	})
}

// GET /conversations/{id}
func (h *handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.engine.Conversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// GET /conversations/{id}/messages?limit=
func (h *handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.engine.ConversationMessages(r.Context(), r.PathValue("id"), queryInt(r, "limit", 0))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// GET /agents
func (h *handler) handleAgents(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.engine.AgentSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list agents")
		slog.Error("agent sessions error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"agents": statuses})
}

// GET /jurisdictions
func (h *handler) handleJurisdictions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"jurisdictions": h.engine.Jurisdictions(),
	})
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		slog.Error("stats error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// pathID parses the {id} path segment, writing a 400 when it is not a
// number.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// writeEngineError maps engine sentinel errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, regsage.ErrInvalidRequest),
		errors.Is(err, regsage.ErrUnknownJurisdiction):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, regsage.ErrDocumentNotFound),
		errors.Is(err, regsage.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, regsage.ErrEmbeddingFailed),
		errors.Is(err, regsage.ErrGenerationFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
