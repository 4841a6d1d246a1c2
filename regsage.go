package regsage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regsage/regsage/agent"
	"github.com/regsage/regsage/ingest"
	"github.com/regsage/regsage/llm"
	"github.com/regsage/regsage/retrieval"
	"github.com/regsage/regsage/routing"
	"github.com/regsage/regsage/store"
	"github.com/regsage/regsage/vecindex"
)

// Engine is the main entry point for the multi-jurisdiction regulation
// assistant.
type Engine interface {
	// Query routes a question to jurisdiction agents and returns their
	// answers, an optional cross-jurisdiction summary, and follow-up
	// suggestions. Conversations are created lazily when the request
	// carries no conversation id.
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)

	// AddDocument ingests one document: chunking, embedding, storage,
	// and vector indexing. Returns the stored row ids, head chunk first.
	AddDocument(ctx context.Context, doc DocumentInput) ([]int64, error)

	// AddDocumentBatch ingests documents concurrently. One bad document
	// never fails the batch; outcomes are reported in input order.
	AddDocumentBatch(ctx context.Context, docs []DocumentInput) []IngestOutcome

	// GetDocument returns a stored document without its embedding.
	GetDocument(ctx context.Context, id int64) (*store.Document, error)

	// GetDocumentContent returns the full text of a document,
	// reassembled from its chunks when it was split during ingestion.
	GetDocumentContent(ctx context.Context, id int64) (string, error)

	// ListDocuments returns documents newest first, optionally filtered
	// by jurisdiction.
	ListDocuments(ctx context.Context, jurisdiction string, limit, offset int) ([]store.Document, error)

	// SearchDocuments searches the corpus. Mode is "fulltext" (default)
	// or "semantic".
	SearchDocuments(ctx context.Context, query string, jurisdictions []string, mode string, limit int) ([]SearchHit, error)

	// DeleteDocument removes a document, its chunks, and its index entries.
	DeleteDocument(ctx context.Context, id int64) error

	// DeleteJurisdiction removes every document for a jurisdiction and
	// returns the number of rows deleted.
	DeleteJurisdiction(ctx context.Context, jurisdiction string) (int, error)

	// Conversation returns a conversation by id.
	Conversation(ctx context.Context, id string) (*store.Conversation, error)

	// ConversationMessages returns the last limit messages of a
	// conversation in chronological order.
	ConversationMessages(ctx context.Context, id string, limit int) ([]store.Message, error)

	// AgentSessions reports per-agent corpus status, merging stored
	// session counters with live index counts.
	AgentSessions(ctx context.Context) ([]AgentStatus, error)

	// Jurisdictions lists the configured jurisdiction catalog.
	Jurisdictions() []JurisdictionInfo

	// Stats reports corpus and conversation counts.
	Stats(ctx context.Context) (*Stats, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// QueryRequest is a question submitted against the regulation corpus.
type QueryRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId,omitempty"`
	Jurisdictions  []string `json:"jurisdictions,omitempty"`
	QueryType      string   `json:"queryType,omitempty"`
	AutoRoute      *bool    `json:"autoRoute,omitempty"` // nil = use the configured default
}

// QueryResult is the structured answer to a query.
type QueryResult struct {
	ConversationID     string           `json:"conversationId"`
	Responses          []agent.Response `json:"responses"`
	MasterSummary      string           `json:"masterSummary,omitempty"`
	RoutingInfo        routing.Info     `json:"routingInfo"`
	SuggestedQuestions []string         `json:"suggestedQuestions,omitempty"`
}

// DocumentInput describes a document submitted for ingestion.
type DocumentInput struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Jurisdiction string `json:"jurisdiction"`
	DocumentType string `json:"documentType,omitempty"`
	SourceURL    string `json:"sourceUrl,omitempty"`
}

// IngestOutcome reports one document's fate in a batch.
type IngestOutcome struct {
	Title       string  `json:"title"`
	DocumentIDs []int64 `json:"documentIds,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// SearchHit is one search result with a query-relevant snippet instead of
// the full document body.
type SearchHit struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Jurisdiction string  `json:"jurisdiction"`
	DocumentType string  `json:"documentType"`
	SourceURL    string  `json:"sourceUrl,omitempty"`
	Score        float64 `json:"score"`
	Snippet      string  `json:"snippet,omitempty"`
}

// AgentStatus merges an agent's stored session counters with its live
// index count.
type AgentStatus struct {
	AgentID         string `json:"agentId"`
	Name            string `json:"name,omitempty"`
	Jurisdiction    string `json:"jurisdiction,omitempty"`
	Status          string `json:"status"`
	DocumentsCount  int    `json:"documentsCount"`
	EmbeddingsCount int    `json:"embeddingsCount"`
	IndexedCount    int    `json:"indexedCount"`
	LastActive      string `json:"lastActive,omitempty"`
}

// JurisdictionInfo describes one catalog entry.
type JurisdictionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Stats holds counts of key engine objects.
type Stats struct {
	Documents     int `json:"documents"`
	Embeddings    int `json:"embeddings"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
	Indexed       int `json:"indexed"`
}

const (
	// maxMessageChars bounds a single query message.
	maxMessageChars = 8000

	// historyLimit is how many prior messages accompany a query.
	historyLimit = 10

	// maxTitleChars bounds a lazily created conversation title.
	maxTitleChars = 80
)

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	store     *store.Store
	index     *vecindex.Index
	chatLLM   llm.Provider
	embedLLM  llm.Provider
	masterLLM llm.Provider
	pipeline  *ingest.Pipeline
	retriever *retrieval.Engine
	catalog   []agent.Config
	master    *routing.Master
}

// New creates a RegSage engine with the given configuration. Index
// warm-up starts in the background; queries can be served before it
// finishes.
func New(cfg Config) (Engine, error) {
	dbPath := cfg.resolveDBPath()

	// Apply defaults for zero values
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}
	if cfg.RetrievalTopK == 0 {
		cfg.RetrievalTopK = 5
	}

	s, err := store.New(dbPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(cfg.Chat)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(cfg.Embedding)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	masterLLM := chatLLM
	if cfg.Master.Provider != "" {
		masterLLM, err = llm.NewProvider(cfg.Master)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating master provider: %w", err)
		}
	}

	index := vecindex.New()

	pipeline := ingest.New(s, index, embedLLM, ingest.Config{
		Concurrency: cfg.IngestConcurrency,
		EmbedRPS:    cfg.EmbedRPS,
		WarmBatch:   cfg.WarmBatchSize,
		WarmPause:   time.Duration(cfg.WarmPauseMS) * time.Millisecond,
	})

	retriever := retrieval.New(s, index, embedLLM, retrieval.Config{
		Strategy:       cfg.RetrievalStrategy,
		TopK:           cfg.RetrievalTopK,
		WeightLexical:  cfg.WeightLexical,
		WeightSemantic: cfg.WeightSemantic,
	})

	catalog := cfg.catalog()
	agents := make(map[string]routing.Answerer, len(catalog))
	for _, c := range catalog {
		agents[c.ID] = agent.New(c, chatLLM, retriever, cfg.Chat.Model)
	}

	master := routing.New(masterLLM, agents, catalog, routing.Config{
		Model:        cfg.masterConfig().Model,
		AgentTimeout: time.Duration(cfg.AgentTimeoutSeconds) * time.Second,
	})

	e := &engine{
		cfg:       cfg,
		store:     s,
		index:     index,
		chatLLM:   chatLLM,
		embedLLM:  embedLLM,
		masterLLM: masterLLM,
		pipeline:  pipeline,
		retriever: retriever,
		catalog:   catalog,
		master:    master,
	}

	// Warm the vector index without blocking readiness.
	go func() {
		if _, err := e.pipeline.WarmIndex(context.Background()); err != nil {
			slog.Warn("engine: index warm-up failed", "error", err)
		}
	}()

	slog.Info("engine: ready",
		"db", dbPath, "agents", len(catalog),
		"chat_model", cfg.Chat.Model, "embed_model", cfg.Embedding.Model)
	return e, nil
}

// Query runs one question through routing, dispatch, aggregation, and
// follow-up suggestion, persisting the exchange to its conversation.
func (e *engine) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	start := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if len(message) > maxMessageChars {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidRequest, maxMessageChars)
	}

	conversationID, history, err := e.resolveConversation(ctx, req.ConversationID, message)
	if err != nil {
		return nil, err
	}

	e.appendMessage(ctx, store.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "user",
		Content:        message,
		Metadata:       userMetadata(req.QueryType),
	})

	autoRoute := e.cfg.AutoRoute
	if req.AutoRoute != nil {
		autoRoute = *req.AutoRoute
	}

	result, err := e.master.Handle(ctx, routing.Request{
		Message:       message,
		Jurisdictions: req.Jurisdictions,
		AutoRoute:     autoRoute,
		History:       history,
	})
	if err != nil {
		if errors.Is(err, routing.ErrUnknownJurisdiction) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownJurisdiction, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	for _, r := range result.Responses {
		e.appendMessage(ctx, store.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           "assistant",
			Content:        r.Answer,
			AgentID:        r.AgentID,
			Metadata:       assistantMetadata(r.Sources, result.RoutingInfo),
		})
	}
	if result.MasterSummary != "" {
		e.appendMessage(ctx, store.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Role:           "assistant",
			Content:        result.MasterSummary,
			AgentID:        routing.MasterAgentID,
			Metadata:       assistantMetadata(nil, result.RoutingInfo),
		})
	}

	slog.Info("engine: query answered",
		"conversation", conversationID,
		"responses", len(result.Responses),
		"clarification", result.RoutingInfo.ClarificationNeeded,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &QueryResult{
		ConversationID:     conversationID,
		Responses:          result.Responses,
		MasterSummary:      result.MasterSummary,
		RoutingInfo:        result.RoutingInfo,
		SuggestedQuestions: result.SuggestedQuestions,
	}, nil
}

// resolveConversation loads an existing conversation's recent history or
// lazily creates a new conversation titled after the first message.
func (e *engine) resolveConversation(ctx context.Context, id, message string) (string, []llm.Message, error) {
	if id == "" {
		id = uuid.NewString()
		err := e.store.CreateConversation(ctx, store.Conversation{
			ID:    id,
			Title: conversationTitle(message),
		})
		if err != nil {
			return "", nil, fmt.Errorf("creating conversation: %w", err)
		}
		slog.Debug("engine: conversation created", "conversation", id)
		return id, nil, nil
	}

	if _, err := e.store.GetConversation(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		return "", nil, fmt.Errorf("loading conversation: %w", err)
	}

	msgs, err := e.store.GetMessages(ctx, id, historyLimit)
	if err != nil {
		slog.Warn("engine: history load failed", "conversation", id, "error", err)
		return id, nil, nil
	}
	history := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return id, history, nil
}

// appendMessage persists a message best-effort. Losing a log row must not
// fail a query that already has an answer.
func (e *engine) appendMessage(ctx context.Context, m store.Message) {
	if err := e.store.AppendMessage(ctx, m); err != nil {
		slog.Warn("engine: message append failed",
			"conversation", m.ConversationID, "role", m.Role, "error", err)
	}
}

// AddDocument ingests a single document.
func (e *engine) AddDocument(ctx context.Context, doc DocumentInput) ([]int64, error) {
	ids, err := e.pipeline.Ingest(ctx, ingest.Input{
		Title:        doc.Title,
		Content:      doc.Content,
		Jurisdiction: doc.Jurisdiction,
		DocumentType: doc.DocumentType,
		SourceURL:    doc.SourceURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrInvalidInput):
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		case errors.Is(err, ingest.ErrEmbedding):
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		default:
			return nil, fmt.Errorf("ingesting document: %w", err)
		}
	}
	return ids, nil
}

// AddDocumentBatch ingests documents concurrently with per-document
// failure isolation.
func (e *engine) AddDocumentBatch(ctx context.Context, docs []DocumentInput) []IngestOutcome {
	inputs := make([]ingest.Input, len(docs))
	for i, d := range docs {
		inputs[i] = ingest.Input{
			Title:        d.Title,
			Content:      d.Content,
			Jurisdiction: d.Jurisdiction,
			DocumentType: d.DocumentType,
			SourceURL:    d.SourceURL,
		}
	}

	results := e.pipeline.IngestBatch(ctx, inputs)
	outcomes := make([]IngestOutcome, len(results))
	for i, r := range results {
		outcomes[i] = IngestOutcome{Title: r.Title, DocumentIDs: r.IDs}
		if r.Err != nil {
			outcomes[i].Error = r.Err.Error()
		}
	}
	return outcomes
}

// GetDocument returns a document by id.
func (e *engine) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}
	doc.Embedding = nil // vectors stay out of API payloads
	return doc, nil
}

// GetDocumentContent returns the reassembled full text of a document.
func (e *engine) GetDocumentContent(ctx context.Context, id int64) (string, error) {
	content, err := e.store.ReconstructContent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
		}
		return "", fmt.Errorf("reconstructing content: %w", err)
	}
	return content, nil
}

// ListDocuments returns stored documents newest first.
func (e *engine) ListDocuments(ctx context.Context, jurisdiction string, limit, offset int) ([]store.Document, error) {
	return e.store.ListDocuments(ctx, jurisdiction, limit, offset)
}

// SearchDocuments searches the corpus and decorates each hit with a
// query-relevant snippet.
func (e *engine) SearchDocuments(ctx context.Context, query string, jurisdictions []string, mode string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = 10
	}

	var results []store.SearchResult
	var err error
	switch mode {
	case "", "fulltext":
		results, err = e.retriever.FullText(ctx, query, jurisdictions, limit)
	case "semantic":
		results, err = e.retriever.Semantic(ctx, query, jurisdictions, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", ErrInvalidRequest, mode)
	}
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	queryWords := significantWords(query)
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			ID:           r.ID,
			Title:        r.Title,
			Jurisdiction: r.Jurisdiction,
			DocumentType: r.DocumentType,
			SourceURL:    r.SourceURL,
			Score:        r.Score,
			Snippet:      documentSnippet(r.Content, queryWords),
		}
	}
	return hits, nil
}

// DeleteDocument removes a document and keeps the index and session
// counters in step. Deleting a chunk group head removes the whole group.
func (e *engine) DeleteDocument(ctx context.Context, id int64) error {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
		}
		return fmt.Errorf("loading document: %w", err)
	}

	chunkIDs, err := e.store.ChunkIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("loading chunk ids: %w", err)
	}

	if err := e.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrDocumentNotFound, id)
		}
		return fmt.Errorf("deleting document: %w", err)
	}

	e.index.Remove(id)
	for _, cid := range chunkIDs {
		e.index.Remove(cid)
	}

	if err := e.pipeline.SyncSession(ctx, doc.Jurisdiction); err != nil {
		slog.Warn("engine: session refresh failed",
			"jurisdiction", doc.Jurisdiction, "error", err)
	}

	slog.Info("engine: document deleted",
		"id", id, "rows", len(chunkIDs)+1, "jurisdiction", doc.Jurisdiction)
	return nil
}

// DeleteJurisdiction removes every document for a jurisdiction.
func (e *engine) DeleteJurisdiction(ctx context.Context, jurisdiction string) (int, error) {
	jurisdiction = strings.TrimSpace(strings.ToLower(jurisdiction))
	if jurisdiction == "" {
		return 0, fmt.Errorf("%w: jurisdiction is required", ErrInvalidRequest)
	}

	n, err := e.store.DeleteDocumentsByJurisdiction(ctx, jurisdiction)
	if err != nil {
		return 0, fmt.Errorf("deleting documents: %w", err)
	}
	e.index.RemoveJurisdiction(jurisdiction)

	if err := e.pipeline.SyncSession(ctx, jurisdiction); err != nil {
		slog.Warn("engine: session refresh failed",
			"jurisdiction", jurisdiction, "error", err)
	}

	slog.Info("engine: jurisdiction cleared", "jurisdiction", jurisdiction, "documents", n)
	return n, nil
}

// Conversation returns a conversation by id.
func (e *engine) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	c, err := e.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return c, nil
}

// ConversationMessages returns a conversation's recent messages in
// chronological order.
func (e *engine) ConversationMessages(ctx context.Context, id string, limit int) ([]store.Message, error) {
	if _, err := e.store.GetConversation(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return e.store.GetMessages(ctx, id, limit)
}

// AgentSessions merges stored per-agent counters with live index counts.
// Catalog agents appear first in catalog order, then any stored sessions
// for jurisdictions no longer in the catalog.
func (e *engine) AgentSessions(ctx context.Context) ([]AgentStatus, error) {
	sessions, err := e.store.ListAgentSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agent sessions: %w", err)
	}
	byID := make(map[string]store.AgentSession, len(sessions))
	for _, s := range sessions {
		byID[s.AgentID] = s
	}

	statuses := make([]AgentStatus, 0, len(e.catalog))
	seen := make(map[string]bool, len(e.catalog))
	for _, c := range e.catalog {
		status := AgentStatus{
			AgentID:      c.ID,
			Name:         c.Name,
			Jurisdiction: c.Jurisdiction,
			Status:       "idle",
			IndexedCount: e.index.Count(c.Jurisdiction),
		}
		if s, ok := byID[c.ID]; ok {
			status.Status = s.Status
			status.DocumentsCount = s.DocumentsCount
			status.EmbeddingsCount = s.EmbeddingsCount
			status.LastActive = s.LastActive
		}
		statuses = append(statuses, status)
		seen[c.ID] = true
	}
	for _, s := range sessions {
		if seen[s.AgentID] {
			continue
		}
		statuses = append(statuses, AgentStatus{
			AgentID:         s.AgentID,
			Status:          s.Status,
			DocumentsCount:  s.DocumentsCount,
			EmbeddingsCount: s.EmbeddingsCount,
			IndexedCount:    e.index.Count(s.AgentID),
			LastActive:      s.LastActive,
		})
	}
	return statuses, nil
}

// Jurisdictions lists the configured catalog.
func (e *engine) Jurisdictions() []JurisdictionInfo {
	infos := make([]JurisdictionInfo, len(e.catalog))
	for i, c := range e.catalog {
		infos[i] = JurisdictionInfo{ID: c.ID, Name: c.Name, Description: c.Description}
	}
	return infos
}

// Stats reports corpus and conversation counts.
func (e *engine) Stats(ctx context.Context) (*Stats, error) {
	st, err := e.store.DBStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return &Stats{
		Documents:     st.Documents,
		Embeddings:    st.Embeddings,
		Conversations: st.Conversations,
		Messages:      st.Messages,
		Indexed:       e.index.Len(),
	}, nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}

// conversationTitle derives a lazily created conversation's title from
// its first message, cut at a word boundary.
func conversationTitle(message string) string {
	if len(message) <= maxTitleChars {
		return message
	}
	cut := strings.LastIndex(message[:maxTitleChars], " ")
	if cut <= 0 {
		cut = maxTitleChars
	}
	return message[:cut]
}

// userMetadata serializes optional user message metadata.
func userMetadata(queryType string) string {
	if queryType == "" {
		return ""
	}
	data, err := json.Marshal(struct {
		QueryType string `json:"queryType"`
	}{queryType})
	if err != nil {
		return ""
	}
	return string(data)
}

// assistantMetadata serializes the sources and routing decision behind an
// assistant message.
func assistantMetadata(sources []agent.Source, info routing.Info) string {
	data, err := json.Marshal(struct {
		Sources     []agent.Source `json:"sources,omitempty"`
		RoutingInfo routing.Info   `json:"routingInfo"`
	}{sources, info})
	if err != nil {
		return ""
	}
	return string(data)
}
