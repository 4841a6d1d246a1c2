//go:build cgo

package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/regsage/regsage/store"
	"github.com/regsage/regsage/vecindex"
)

// fakeEmbedder returns deterministic 4-dim vectors. Texts containing
// failOn make the whole call fail.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			return nil, errors.New("provider rejected input")
		}
		out[i] = []float32{float32(len(text)%7) + 1, 1, 0, 0}
	}
	return out, nil
}

func newTestPipeline(t *testing.T, emb Embedder, cfg Config) (*Pipeline, *store.Store, *vecindex.Index) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	idx := vecindex.New()
	return New(st, idx, emb, cfg), st, idx
}

func sampleInput(title, jurisdiction string) Input {
	return Input{
		Title:        title,
		Content:      "The " + title + " regulates the use of AI systems.",
		Jurisdiction: jurisdiction,
		DocumentType: "regulation",
	}
}

// ---------------------------------------------------------------------------
// Single-document ingestion
// ---------------------------------------------------------------------------

func TestIngestSingleDocument(t *testing.T) {
	p, st, idx := newTestPipeline(t, &fakeEmbedder{}, Config{})
	ctx := context.Background()

	ids, err := p.Ingest(ctx, sampleInput("EU AI Act", "eu"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}

	doc, err := st.GetDocument(ctx, ids[0])
	if err != nil {
		t.Fatalf("stored document missing: %v", err)
	}
	if doc.Title != "EU AI Act" {
		t.Errorf("title: got %q", doc.Title)
	}
	if doc.IsChunk {
		t.Error("small document should not be a chunk")
	}
	if len(doc.Embedding) != 4 {
		t.Errorf("embedding dims: got %d, want 4", len(doc.Embedding))
	}

	if idx.Len() != 1 {
		t.Errorf("index size: got %d, want 1", idx.Len())
	}

	sess, err := st.GetAgentSession(ctx, "eu")
	if err != nil {
		t.Fatalf("session not created: %v", err)
	}
	if sess.DocumentsCount != 1 || sess.EmbeddingsCount != 1 {
		t.Errorf("session counts: got %d/%d, want 1/1", sess.DocumentsCount, sess.EmbeddingsCount)
	}
	if sess.Status != "active" {
		t.Errorf("session status: got %q, want active", sess.Status)
	}
}

func TestIngestValidation(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeEmbedder{}, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
	}{
		{"missing title", Input{Content: "c", Jurisdiction: "eu"}},
		{"missing content", Input{Title: "t", Jurisdiction: "eu"}},
		{"missing jurisdiction", Input{Title: "t", Content: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Ingest(ctx, tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestIngestDefaultDocumentType(t *testing.T) {
	p, st, _ := newTestPipeline(t, &fakeEmbedder{}, Config{})
	ctx := context.Background()

	in := sampleInput("Untyped", "eu")
	in.DocumentType = ""
	ids, err := p.Ingest(ctx, in)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	doc, _ := st.GetDocument(ctx, ids[0])
	if doc.DocumentType != "regulation" {
		t.Errorf("document type: got %q, want regulation", doc.DocumentType)
	}
}

func TestIngestEmbeddingFailureWritesNothing(t *testing.T) {
	emb := &fakeEmbedder{failOn: "regulates"}
	p, st, idx := newTestPipeline(t, emb, Config{})
	ctx := context.Background()

	_, err := p.Ingest(ctx, sampleInput("Doomed Act", "eu"))
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}

	n, _ := st.CountDocuments(ctx, "")
	if n != 0 {
		t.Errorf("expected no rows after embedding failure, got %d", n)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}

// ---------------------------------------------------------------------------
// Chunked ingestion
// ---------------------------------------------------------------------------

func TestIngestSplitsLargeDocument(t *testing.T) {
	p, st, idx := newTestPipeline(t, &fakeEmbedder{}, Config{})
	ctx := context.Background()

	sentence := "Providers shall maintain technical documentation for each system."
	in := Input{
		Title:        "Omnibus AI Regulation",
		Content:      strings.TrimSpace(strings.Repeat(sentence+" ", 500)),
		Jurisdiction: "eu",
		DocumentType: "regulation",
	}

	ids, err := p.Ingest(ctx, in)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(ids) < 2 {
		t.Fatalf("expected chunked ingestion, got %d ids", len(ids))
	}

	head, err := st.GetDocument(ctx, ids[0])
	if err != nil {
		t.Fatalf("get head: %v", err)
	}
	wantTitle := fmt.Sprintf("Omnibus AI Regulation (Part 1/%d)", len(ids))
	if head.Title != wantTitle {
		t.Errorf("head title: got %q, want %q", head.Title, wantTitle)
	}
	if !head.IsChunk || head.ChunkIndex != 1 {
		t.Errorf("head chunk flags: is_chunk=%v index=%d", head.IsChunk, head.ChunkIndex)
	}

	second, _ := st.GetDocument(ctx, ids[1])
	if second.OriginalDocumentID == nil || *second.OriginalDocumentID != ids[0] {
		t.Error("second chunk does not reference the head")
	}

	// Full text survives the round trip.
	reconstructed, err := st.ReconstructContent(ctx, ids[0])
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if reconstructed != in.Content {
		t.Error("reconstructed content differs from original")
	}

	if idx.Len() != len(ids) {
		t.Errorf("index entries: got %d, want %d", idx.Len(), len(ids))
	}
}

// ---------------------------------------------------------------------------
// Batch ingestion
// ---------------------------------------------------------------------------

func TestIngestBatchOrderAndIsolation(t *testing.T) {
	emb := &fakeEmbedder{failOn: "POISON"}
	p, st, _ := newTestPipeline(t, emb, Config{Concurrency: 2})
	ctx := context.Background()

	inputs := []Input{
		sampleInput("First Act", "eu"),
		{Title: "Broken Act", Content: "POISON content", Jurisdiction: "eu"},
		sampleInput("Third Act", "uk"),
	}

	results := p.IngestBatch(ctx, inputs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Results keep input order.
	for i, want := range []string{"First Act", "Broken Act", "Third Act"} {
		if results[i].Title != want {
			t.Errorf("result %d: got %q, want %q", i, results[i].Title, want)
		}
	}

	if results[0].Err != nil {
		t.Errorf("first document failed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrEmbedding) {
		t.Errorf("second document: expected ErrEmbedding, got %v", results[1].Err)
	}
	if results[2].Err != nil {
		t.Errorf("third document failed: %v", results[2].Err)
	}

	n, _ := st.CountDocuments(ctx, "")
	if n != 2 {
		t.Errorf("expected 2 stored documents, got %d", n)
	}
}

func TestIngestBatchEmpty(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeEmbedder{}, Config{})
	results := p.IngestBatch(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

// ---------------------------------------------------------------------------
// Index warm-up
// ---------------------------------------------------------------------------

func TestWarmIndex(t *testing.T) {
	p, st, _ := newTestPipeline(t, &fakeEmbedder{}, Config{})
	ctx := context.Background()

	// Seed through the pipeline, then warm a fresh index.
	for i := 0; i < 5; i++ {
		if _, err := p.Ingest(ctx, sampleInput(fmt.Sprintf("Act %d", i), "eu")); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	fresh := vecindex.New()
	warm := New(st, fresh, &fakeEmbedder{}, Config{WarmBatch: 2, WarmPause: time.Millisecond})

	loaded, err := warm.WarmIndex(ctx)
	if err != nil {
		t.Fatalf("warm index: %v", err)
	}
	if loaded != 5 {
		t.Errorf("loaded: got %d, want 5", loaded)
	}
	if fresh.Len() != 5 {
		t.Errorf("index size: got %d, want 5", fresh.Len())
	}
}

func TestWarmIndexEmptyStore(t *testing.T) {
	p, _, idx := newTestPipeline(t, &fakeEmbedder{}, Config{})
	loaded, err := p.WarmIndex(context.Background())
	if err != nil {
		t.Fatalf("warm index: %v", err)
	}
	if loaded != 0 || idx.Len() != 0 {
		t.Errorf("expected empty warm result, got %d loaded", loaded)
	}
}
