package vecindex

import (
	"log/slog"
	"math"
	"sort"
	"sync"
)

// Entry is a document held in the index. Content is not kept here; callers
// hydrate full documents from the store when they need more than metadata.
type Entry struct {
	ID           int64
	Title        string
	Jurisdiction string
	DocumentType string
	Embedding    []float32
}

// Match is a scored search hit, highest similarity first.
type Match struct {
	ID           int64
	Title        string
	Jurisdiction string
	DocumentType string
	Score        float64
}

type indexed struct {
	entry Entry
	norm  float64
}

// Index is an in-memory vector index with cosine similarity search and
// jurisdiction filtering. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[int64]indexed
}

// New creates an empty index.
func New() *Index {
	return &Index{entries: make(map[int64]indexed)}
}

// Add inserts or replaces a document in the index. Documents without an
// embedding are skipped with a warning so a single bad row cannot poison
// the index.
func (ix *Index) Add(e Entry) {
	if len(e.Embedding) == 0 {
		slog.Warn("vecindex: skipping document without embedding",
			"id", e.ID,
			"title", e.Title,
		)
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[e.ID] = indexed{entry: e, norm: norm(e.Embedding)}
}

// Remove deletes a document from the index. Removing an absent ID is a no-op.
func (ix *Index) Remove(id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, id)
}

// RemoveJurisdiction deletes every document for a jurisdiction and returns
// the number removed.
func (ix *Index) RemoveJurisdiction(jurisdiction string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	for id, in := range ix.entries {
		if in.entry.Jurisdiction == jurisdiction {
			delete(ix.entries, id)
			removed++
		}
	}
	return removed
}

// Search returns the k entries most similar to the query embedding, highest
// first. An empty jurisdictions slice matches all jurisdictions; otherwise
// only entries whose jurisdiction appears in the slice are considered.
// Entries or queries with zero magnitude score 0.
func (ix *Index) Search(query []float32, k int, jurisdictions []string) []Match {
	if k <= 0 || len(query) == 0 {
		return nil
	}

	allowed := make(map[string]bool, len(jurisdictions))
	for _, j := range jurisdictions {
		allowed[j] = true
	}

	queryNorm := norm(query)

	ix.mu.RLock()
	matches := make([]Match, 0, len(ix.entries))
	for _, in := range ix.entries {
		if len(allowed) > 0 && !allowed[in.entry.Jurisdiction] {
			continue
		}
		matches = append(matches, Match{
			ID:           in.entry.ID,
			Title:        in.entry.Title,
			Jurisdiction: in.entry.Jurisdiction,
			DocumentType: in.entry.DocumentType,
			Score:        cosine(query, queryNorm, in.entry.Embedding, in.norm),
		})
	}
	ix.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Len reports the total number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Count reports the number of indexed documents for a jurisdiction.
func (ix *Index) Count(jurisdiction string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := 0
	for _, in := range ix.entries {
		if in.entry.Jurisdiction == jurisdiction {
			n++
		}
	}
	return n
}

// cosine computes cosine similarity given precomputed vector norms.
// Mismatched dimensions or zero-magnitude vectors score 0 rather than
// erroring; the index must stay usable when a provider changes models.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if len(a) != len(b) || aNorm == 0 || bNorm == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
