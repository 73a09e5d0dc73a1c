package answer

import (
	"strings"

	"github.com/studyloop/tutor-backend/internal/modules/search"
)

// scoreConfidence turns retrieval quality signals into a [0,100] estimate:
// the mean similarity of the top three chunks, a bonus for how many chunks
// cleared 0.6, literal word overlap between question and best chunk, and a
// continuity bonus when two returned chunks are adjacent in their source.
func scoreConfidence(question string, results []search.Result) int {
	if len(results) == 0 {
		return 0
	}

	top := len(results)
	if top > 3 {
		top = 3
	}
	var sum float64
	for _, r := range results[:top] {
		sum += r.Score
	}
	score := sum / float64(top) * 100

	strong := 0
	for _, r := range results {
		if r.Score > 0.6 {
			strong++
		}
	}
	score += minFloat(15, float64(strong)*5)

	score += minFloat(10, float64(wordOverlap(question, results[0].Chunk.Text))*2)

	if hasAdjacentChunks(results) {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

// wordOverlap counts how many of the question's keywords appear literally
// in the chunk text.
func wordOverlap(question, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range search.Keywords(question) {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// hasAdjacentChunks reports whether any two results are consecutive chunks
// of the same lesson.
func hasAdjacentChunks(results []search.Result) bool {
	for i := range results {
		for j := i + 1; j < len(results); j++ {
			if results[i].Chunk.LessonID != results[j].Chunk.LessonID {
				continue
			}
			d := results[i].Chunk.ChunkIndex - results[j].Chunk.ChunkIndex
			if d == 1 || d == -1 {
				return true
			}
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
