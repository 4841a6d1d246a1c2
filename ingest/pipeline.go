// Package ingest turns raw regulatory documents into embedded,
// searchable rows: it chunks oversized content, calls the embedding
// provider, persists documents and vectors atomically, and keeps the
// in-memory vector index and per-jurisdiction session counters in step.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/regsage/regsage/store"
	"github.com/regsage/regsage/vecindex"
)

var (
	// ErrInvalidInput is returned when a document is missing required fields.
	ErrInvalidInput = errors.New("ingest: invalid document input")

	// ErrEmbedding is returned when the embedding provider fails or
	// returns malformed vectors.
	ErrEmbedding = errors.New("ingest: embedding failed")
)

// Embedder generates embeddings for a batch of texts.
// *llm providers satisfy this interface.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config controls pipeline behaviour.
// Zero-value fields are replaced with sensible defaults.
type Config struct {
	Concurrency int           // parallel documents in IngestBatch
	EmbedRPS    float64       // embedding calls per second, 0 = unlimited
	WarmBatch   int           // documents loaded per WarmIndex batch
	WarmPause   time.Duration // pause between WarmIndex batches
}

// Input is a document submitted for ingestion.
type Input struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	Jurisdiction string `json:"jurisdiction"`
	DocumentType string `json:"documentType"`
	SourceURL    string `json:"sourceUrl,omitempty"`
}

// Result reports the outcome of one document in a batch.
// Results are returned in input order.
type Result struct {
	Title string  `json:"title"`
	IDs   []int64 `json:"ids,omitempty"`
	Err   error   `json:"-"`
}

// Pipeline ingests documents into the store and vector index.
type Pipeline struct {
	store    *store.Store
	index    *vecindex.Index
	embedder Embedder
	limiter  *rate.Limiter
	cfg      Config
}

// New returns a Pipeline wired to the given store, index and embedder.
func New(st *store.Store, idx *vecindex.Index, emb Embedder, cfg Config) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.WarmBatch <= 0 {
		cfg.WarmBatch = 50
	}
	if cfg.WarmPause <= 0 {
		cfg.WarmPause = 100 * time.Millisecond
	}
	p := &Pipeline{store: st, index: idx, embedder: emb, cfg: cfg}
	if cfg.EmbedRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRPS), 1)
	}
	return p
}

// Ingest embeds and stores a single document, splitting it into chunks
// when the content is too large for one embedding. Either every chunk
// is embedded and persisted, or nothing is: an embedding failure aborts
// the whole document with no rows written.
//
// The returned ids are the database ids of the stored rows, head chunk
// first.
func (p *Pipeline) Ingest(ctx context.Context, in Input) ([]int64, error) {
	if in.Title == "" || in.Content == "" || in.Jurisdiction == "" {
		return nil, fmt.Errorf("%w: title, content and jurisdiction are required", ErrInvalidInput)
	}
	if in.DocumentType == "" {
		in.DocumentType = "regulation"
	}

	// Mark the jurisdiction as updating while new material lands.
	if err := p.markUpdating(ctx, in.Jurisdiction); err != nil {
		slog.Debug("ingest: session status update failed", "jurisdiction", in.Jurisdiction, "error", err)
	}

	pieces := splitContent(in.Content)
	n := len(pieces)
	if n > 1 {
		slog.Info("ingest: splitting oversized document",
			"title", in.Title, "tokens", approxTokens(in.Content), "chunks", n)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for embed slot: %w", err)
		}
	}
	vectors, err := p.embedder.Embed(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrEmbedding, in.Title, err)
	}
	if len(vectors) != n {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), n)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector for chunk %d of %q", ErrEmbedding, i+1, in.Title)
		}
	}

	docs := make([]store.Document, n)
	for i, piece := range pieces {
		docs[i] = store.Document{
			Title:        in.Title,
			Content:      piece,
			Jurisdiction: in.Jurisdiction,
			DocumentType: in.DocumentType,
			SourceURL:    in.SourceURL,
			Embedding:    vectors[i],
		}
		if n > 1 {
			docs[i].Title = chunkTitle(in.Title, i+1, n)
			docs[i].ChunkIndex = i + 1
			docs[i].IsChunk = true
		}
	}

	var ids []int64
	if n == 1 {
		id, err := p.store.CreateDocument(ctx, docs[0])
		if err != nil {
			return nil, fmt.Errorf("storing document: %w", err)
		}
		ids = []int64{id}
	} else {
		ids, err = p.store.CreateDocumentGroup(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("storing document group: %w", err)
		}
	}

	for i, id := range ids {
		p.index.Add(vecindex.Entry{
			ID:           id,
			Title:        docs[i].Title,
			Jurisdiction: docs[i].Jurisdiction,
			DocumentType: docs[i].DocumentType,
			Embedding:    docs[i].Embedding,
		})
	}

	if err := p.SyncSession(ctx, in.Jurisdiction); err != nil {
		slog.Warn("ingest: session refresh failed", "jurisdiction", in.Jurisdiction, "error", err)
	}

	slog.Info("ingest: document stored",
		"title", in.Title, "jurisdiction", in.Jurisdiction, "chunks", n)
	return ids, nil
}

// IngestBatch ingests documents concurrently, up to Concurrency at a
// time. A failure in one document never affects the others; each
// result carries its own error. Results are in input order.
func (p *Pipeline) IngestBatch(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, in := range inputs {
		i, in := i, in // per-iteration copies: go.mod predates Go 1.22 loopvar scoping
		g.Go(func() error {
			ids, err := p.Ingest(ctx, in)
			results[i] = Result{Title: in.Title, IDs: ids, Err: err}
			return nil
		})
	}
	g.Wait()

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			slog.Warn("ingest: batch document failed",
				"index", i, "title", r.Title, "error", r.Err)
		}
	}
	slog.Info("ingest: batch finished",
		"documents", len(inputs), "failed", failed)
	return results
}

// WarmIndex loads all embedded documents from the store into the
// vector index in batches, pausing between batches to keep startup
// from monopolising the database. It returns the number of documents
// loaded.
func (p *Pipeline) WarmIndex(ctx context.Context) (int, error) {
	loaded := 0
	for offset := 0; ; offset += p.cfg.WarmBatch {
		docs, err := p.store.EmbeddedDocuments(ctx, p.cfg.WarmBatch, offset)
		if err != nil {
			return loaded, fmt.Errorf("loading warm batch at offset %d: %w", offset, err)
		}
		for _, d := range docs {
			p.index.Add(vecindex.Entry{
				ID:           d.ID,
				Title:        d.Title,
				Jurisdiction: d.Jurisdiction,
				DocumentType: d.DocumentType,
				Embedding:    d.Embedding,
			})
			loaded++
		}
		if len(docs) < p.cfg.WarmBatch {
			break
		}
		select {
		case <-ctx.Done():
			return loaded, ctx.Err()
		case <-time.After(p.cfg.WarmPause):
		}
	}
	slog.Info("ingest: index warmed", "documents", loaded)
	return loaded, nil
}

// markUpdating flips a jurisdiction's session to updating, preserving
// its current counters.
func (p *Pipeline) markUpdating(ctx context.Context, jurisdiction string) error {
	docs, err := p.store.CountDocuments(ctx, jurisdiction)
	if err != nil {
		return err
	}
	embeddings, err := p.store.CountEmbeddings(ctx, jurisdiction)
	if err != nil {
		return err
	}
	return p.store.UpsertAgentSession(ctx, store.AgentSession{
		AgentID:         jurisdiction,
		Status:          "updating",
		DocumentsCount:  docs,
		EmbeddingsCount: embeddings,
	})
}

// SyncSession recomputes the stored session counters for a
// jurisdiction from the database.
func (p *Pipeline) SyncSession(ctx context.Context, jurisdiction string) error {
	docs, err := p.store.CountDocuments(ctx, jurisdiction)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}
	embeddings, err := p.store.CountEmbeddings(ctx, jurisdiction)
	if err != nil {
		return fmt.Errorf("counting embeddings: %w", err)
	}
	return p.store.UpsertAgentSession(ctx, store.AgentSession{
		AgentID:         jurisdiction,
		Status:          "active",
		DocumentsCount:  docs,
		EmbeddingsCount: embeddings,
	})
}
