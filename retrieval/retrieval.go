package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/regsage/regsage/store"
	"github.com/regsage/regsage/vecindex"
)

// Retrieval strategies for the agent answer path.
const (
	StrategyLexical = "lexical"
	StrategyHybrid  = "hybrid"
)

// Embedder generates embeddings for a batch of texts.
// *llm providers satisfy this interface.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds retrieval engine configuration.
type Config struct {
	Strategy       string  // lexical (default) or hybrid
	TopK           int     // results returned by Retrieve
	WeightLexical  float64 // RRF weight of the lexical list
	WeightSemantic float64 // RRF weight of the semantic list
}

// Engine answers retrieval requests against the document store and the
// in-memory vector index.
type Engine struct {
	store    *store.Store
	index    *vecindex.Index
	embedder Embedder
	cfg      Config
}

// New creates a retrieval engine. Zero-value config fields are replaced
// with defaults: lexical strategy, top 5 results, equal fusion weights.
func New(s *store.Store, idx *vecindex.Index, emb Embedder, cfg Config) *Engine {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyLexical
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.WeightLexical == 0 {
		cfg.WeightLexical = 1.0
	}
	if cfg.WeightSemantic == 0 {
		cfg.WeightSemantic = 1.0
	}
	return &Engine{store: s, index: idx, embedder: emb, cfg: cfg}
}

// Retrieve returns the grounding documents for an agent answer, using
// the configured strategy.
func (e *Engine) Retrieve(ctx context.Context, query, jurisdiction string, keywords []string) ([]store.SearchResult, error) {
	switch e.cfg.Strategy {
	case StrategyHybrid:
		return e.Hybrid(ctx, query, jurisdiction, keywords, e.cfg.TopK)
	default:
		return e.Lexical(ctx, query, jurisdiction, keywords, e.cfg.TopK)
	}
}

// Lexical fetches every document of a jurisdiction and ranks them with
// LexicalScore. Scoring is deterministic: the same query over the same
// corpus always produces the same ranking.
func (e *Engine) Lexical(ctx context.Context, query, jurisdiction string, keywords []string, limit int) ([]store.SearchResult, error) {
	docs, err := e.store.GetDocumentsByJurisdiction(ctx, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("loading jurisdiction documents: %w", err)
	}

	results := make([]store.SearchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, store.SearchResult{
			Document: d,
			Score:    LexicalScore(query, d.Title, d.Content, keywords),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Semantic embeds the query and searches the vector index, hydrating
// matches from the store. jurisdictions is an optional allow-list.
func (e *Engine) Semantic(ctx context.Context, query string, jurisdictions []string, limit int) ([]store.SearchResult, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	matches := e.index.Search(vectors[0], limit, jurisdictions)
	if len(matches) == 0 && e.index.Len() == 0 {
		// Index still warming up; serve the search from the persisted
		// vectors instead of returning nothing.
		return e.semanticFromStore(ctx, vectors[0], jurisdictions, limit)
	}

	results := make([]store.SearchResult, 0, len(matches))
	for _, m := range matches {
		doc, err := e.store.GetDocument(ctx, m.ID)
		if err != nil {
			slog.Warn("retrieval: indexed document missing from store", "id", m.ID, "error", err)
			continue
		}
		doc.Embedding = nil // vectors stay out of result payloads
		results = append(results, store.SearchResult{Document: doc, Score: m.Score})
	}
	return results, nil
}

// semanticFromStore runs a KNN search over the vec0 table. The KNN query
// cannot carry a jurisdiction predicate, so the allow-list is applied to an
// over-fetched candidate set.
func (e *Engine) semanticFromStore(ctx context.Context, query []float32, jurisdictions []string, limit int) ([]store.SearchResult, error) {
	k := limit
	if len(jurisdictions) > 0 {
		k = limit * 4
	}
	results, err := e.store.VectorSearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(jurisdictions) == 0 {
		return results, nil
	}

	allowed := make(map[string]bool, len(jurisdictions))
	for _, j := range jurisdictions {
		allowed[j] = true
	}
	filtered := results[:0]
	for _, r := range results {
		if allowed[r.Jurisdiction] {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// FullText runs a sanitized FTS5 search over titles and content.
func (e *Engine) FullText(ctx context.Context, query string, jurisdictions []string, limit int) ([]store.SearchResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if strings.TrimSpace(sanitized) == "" {
		return nil, nil
	}
	return e.store.SearchDocuments(ctx, sanitized, jurisdictions, limit)
}

// Hybrid fuses the lexical and semantic rankings with RRF. When the
// semantic leg fails (embedding provider down, empty index) the lexical
// ranking is returned alone so retrieval degrades instead of failing.
func (e *Engine) Hybrid(ctx context.Context, query, jurisdiction string, keywords []string, limit int) ([]store.SearchResult, error) {
	pool := limit * 4

	lexical, err := e.Lexical(ctx, query, jurisdiction, keywords, pool)
	if err != nil {
		return nil, err
	}

	semantic, err := e.Semantic(ctx, query, []string{jurisdiction}, pool)
	if err != nil {
		slog.Warn("retrieval: semantic leg failed, using lexical only",
			"jurisdiction", jurisdiction, "error", err)
		if limit > 0 && len(lexical) > limit {
			lexical = lexical[:limit]
		}
		return lexical, nil
	}

	return fuseRRF(lexical, semantic, e.cfg.WeightLexical, e.cfg.WeightSemantic, limit), nil
}
