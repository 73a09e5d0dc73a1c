package answer

import (
	"testing"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/modules/search"
	"github.com/studyloop/tutor-backend/internal/types"
)

func result(lessonID uuid.UUID, idx int, text string, score float64) search.Result {
	return search.Result{
		Chunk: &types.ContentChunk{
			ID:         uuid.New(),
			LessonID:   lessonID,
			ChunkIndex: idx,
			Text:       text,
		},
		Score: score,
	}
}

func TestConfidenceEmptyRetrieval(t *testing.T) {
	if got := scoreConfidence("anything", nil); got != 0 {
		t.Fatalf("confidence = %d, want 0", got)
	}
}

func TestConfidenceWithinRange(t *testing.T) {
	lesson := uuid.New()
	results := []search.Result{
		result(lesson, 0, "fractions explained with fractions examples", 0.99),
		result(lesson, 1, "more fractions", 0.98),
		result(lesson, 2, "even more fractions", 0.97),
	}
	got := scoreConfidence("how do fractions work", results)
	if got < 0 || got > 100 {
		t.Fatalf("confidence %d outside [0,100]", got)
	}
	if got != 100 {
		t.Fatalf("near-perfect retrieval scored %d, want the clamp at 100", got)
	}
}

func TestConfidenceAdjacencyBonus(t *testing.T) {
	lesson := uuid.New()
	adjacent := []search.Result{
		result(lesson, 3, "unrelated words entirely", 0.5),
		result(lesson, 4, "other unrelated words", 0.5),
	}
	apart := []search.Result{
		result(lesson, 3, "unrelated words entirely", 0.5),
		result(lesson, 9, "other unrelated words", 0.5),
	}

	q := "zzz question"
	withBonus := scoreConfidence(q, adjacent)
	withoutBonus := scoreConfidence(q, apart)
	if withBonus-withoutBonus != 5 {
		t.Fatalf("adjacency bonus = %d, want 5", withBonus-withoutBonus)
	}
}

func TestConfidenceOverlapSignal(t *testing.T) {
	lesson := uuid.New()
	overlapping := []search.Result{
		result(lesson, 0, "photosynthesis converts sunlight into chemical energy", 0.5),
	}
	disjoint := []search.Result{
		result(lesson, 0, "entirely different material", 0.5),
	}

	q := "explain photosynthesis energy"
	if scoreConfidence(q, overlapping) <= scoreConfidence(q, disjoint) {
		t.Fatalf("literal overlap did not raise confidence")
	}
}

func TestConfidenceStrongChunkBonusCapped(t *testing.T) {
	lesson := uuid.New()
	var results []search.Result
	for i := 0; i < 8; i++ {
		results = append(results, result(lesson, i*2, "zzz", 0.65))
	}
	got := scoreConfidence("qqq", results)
	// mean(0.65)*100 = 65, strong-count bonus capped at 15, no overlap, no
	// adjacency.
	if got != 80 {
		t.Fatalf("confidence = %d, want 80", got)
	}
}
