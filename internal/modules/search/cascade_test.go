package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/studyloop/tutor-backend/internal/testutil"
)

func TestHybridSearchMergesVectorAndKeywordScores(t *testing.T) {
	query := "mitochondria respiration"
	ai := &testutil.FakeAI{Vectors: map[string][]float32{
		query: {1, 0, 0, 0},
	}}
	e, chunks, lessonID := newTestEngine(t, ai, Options{})

	// Hits on both paths: vector similarity 1.0 and one keyword occurrence
	// each, so the merged score is 0.6*1.0 + 0.4*0.2 = 0.68.
	seedChunk(t, chunks, lessonID, 0, "mitochondria drive respiration in cells", []float32{1, 0, 0, 0})
	// Keyword-only hit: no stored embedding.
	seedChunk(t, chunks, lessonID, 1, "respiration releases stored sugar", nil)

	got, err := e.HybridSearch(context.Background(), nil, query, 10)
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Chunk.ChunkIndex != 0 {
		t.Fatalf("expected the dual-path chunk first, got index %d", got[0].Chunk.ChunkIndex)
	}
	if math.Abs(got[0].Score-0.68) > 1e-9 {
		t.Fatalf("merged score = %v, want 0.68", got[0].Score)
	}
	// Keyword-only: 0.4 * 0.1.
	if math.Abs(got[1].Score-0.04) > 1e-9 {
		t.Fatalf("keyword-only score = %v, want 0.04", got[1].Score)
	}
}

func TestHybridSearchCapsMergedScore(t *testing.T) {
	query := "fractions"
	ai := &testutil.FakeAI{Vectors: map[string][]float32{
		query: {1, 0, 0, 0},
	}}
	e, chunks, lessonID := newTestEngine(t, ai, Options{VectorWeight: 0.9, KeywordWeight: 0.9})
	seedChunk(t, chunks, lessonID, 0, "fractions fractions fractions", []float32{1, 0, 0, 0})

	got, err := e.HybridSearch(context.Background(), nil, query, 10)
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].Score > 1.0 {
		t.Fatalf("merged score %v exceeds 1.0", got[0].Score)
	}
}

func TestEnhancedSearchFallsBackToKeywordWhenEmbeddingsFail(t *testing.T) {
	ai := &testutil.FakeAI{EmbedErr: errors.New("embeddings down")}
	e, chunks, lessonID := newTestEngine(t, ai, Options{})
	seedChunk(t, chunks, lessonID, 0, "gravity pulls objects toward each other", nil)

	got := e.EnhancedSearch(context.Background(), nil, "what is gravity", 5, 0.7)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 keyword hit", len(got))
	}
	if got[0].Chunk.Text != "gravity pulls objects toward each other" {
		t.Fatalf("unexpected hit %q", got[0].Chunk.Text)
	}
}

func TestEnhancedSearchReturnsNilWhenExhausted(t *testing.T) {
	ai := &testutil.FakeAI{Vectors: map[string][]float32{
		"unrelated question entirely": {0, 0, 0, 1},
		"unrelated question":          {0, 0, 0, 1},
	}}
	e, chunks, lessonID := newTestEngine(t, ai, Options{})
	seedChunk(t, chunks, lessonID, 0, "completely different material", []float32{1, 0, 0, 0})

	got := e.EnhancedSearch(context.Background(), nil, "unrelated question entirely", 5, 0.9)
	if got != nil {
		t.Fatalf("expected nil after cascade exhaustion, got %v", got)
	}
}

func TestPartialSearchUsesFirstHalfOfQuery(t *testing.T) {
	full := "photosynthesis process explained for beginners"
	half := "photosynthesis process explained"
	ai := &testutil.FakeAI{Vectors: map[string][]float32{
		full: {0, 0, 0, 1},
		half: {1, 0, 0, 0},
	}}
	e, chunks, lessonID := newTestEngine(t, ai, Options{})
	seedChunk(t, chunks, lessonID, 0, "chloroplast detail", []float32{1, 0, 0, 0})

	got, err := e.partialSearch(context.Background(), nil, full, 5)
	if err != nil {
		t.Fatalf("partialSearch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 from the halved query", len(got))
	}
}
