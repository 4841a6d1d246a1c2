package retrieval

import (
	"sort"

	"github.com/regsage/regsage/store"
)

const rrfK = 60 // RRF constant (standard value from literature)

// fuseRRF implements Reciprocal Rank Fusion to combine the lexical and
// semantic result lists. Each list is ranked independently, then scores
// are combined using: score = sum(weight_i / (k + rank_i)). Fused
// scores are normalized so the top result reports 1.0.
func fuseRRF(lexical, semantic []store.SearchResult, weightLex, weightSem float64, limit int) []store.SearchResult {
	type fusedEntry struct {
		result store.SearchResult
		score  float64
	}

	fused := make(map[int64]*fusedEntry)

	for rank, r := range lexical {
		entry, ok := fused[r.ID]
		if !ok {
			entry = &fusedEntry{result: r}
			fused[r.ID] = entry
		}
		entry.score += weightLex / float64(rrfK+rank+1)
	}

	for rank, r := range semantic {
		entry, ok := fused[r.ID]
		if !ok {
			entry = &fusedEntry{result: r}
			fused[r.ID] = entry
		}
		entry.score += weightSem / float64(rrfK+rank+1)
	}

	entries := make([]*fusedEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].result.ID < entries[j].result.ID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if len(entries) == 0 {
		return nil
	}

	top := entries[0].score
	out := make([]store.SearchResult, len(entries))
	for i, e := range entries {
		r := e.result
		r.Score = e.score / top
		out[i] = r
	}
	return out
}
