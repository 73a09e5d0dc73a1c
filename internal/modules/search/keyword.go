package search

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/observability"
)

// Keywords exposes the engine's keyword extraction so callers can reuse
// the same salient-term view of a question, e.g. for topic tagging.
func Keywords(query string) []string {
	return extractKeywords(query)
}

// extractKeywords lowercases the query, splits on non-letter/digit runs,
// and drops stop words and fragments shorter than three characters.
func extractKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r >= 'à' && r <= 'ÿ':
			return false
		default:
			return true
		}
	})

	keywords := make([]string, 0, len(fields))
	seen := map[string]bool{}
	for _, f := range fields {
		if len([]rune(f)) < 3 || isStopword(f) || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	return keywords
}

// keywordScore sums a per-keyword frequency score over the chunk text:
// each keyword contributes min(1.0, occurrences*0.1), and the total is
// capped at 1.0 so lexical hits stay comparable with cosine scores.
func keywordScore(text string, keywords []string) float64 {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	total := 0.0
	for _, kw := range keywords {
		n := strings.Count(lower, kw)
		if n == 0 {
			continue
		}
		contribution := float64(n) * 0.1
		if contribution > 1.0 {
			contribution = 1.0
		}
		total += contribution
	}
	if total > 1.0 {
		total = 1.0
	}
	return total
}

// KeywordSearch is the lexical fallback: a paged substring scan scored by
// keyword frequency. The same scan ceiling as the vector path applies.
func (e *Engine) KeywordSearch(ctx context.Context, lessonID *uuid.UUID, query string, limit int) ([]Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "search.keyword")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}

	keywords := extractKeywords(query)
	// Expansion variants contribute their keywords too; cheap recall boost
	// for the fallback path.
	for _, variant := range e.expandQuery(query)[1:] {
		for _, kw := range extractKeywords(variant) {
			if !containsString(keywords, kw) {
				keywords = append(keywords, kw)
			}
		}
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	var results []Result
	skip := 0
	scanned := 0

	for scanned < e.opt.ScanCeiling {
		page, err := e.chunks.Page(ctx, nil, lessonID, skip, e.opt.PageSize)
		if err != nil {
			e.log.Warn("Chunk page read failed during keyword scan", "skip", skip, "error", err.Error())
			break
		}
		if len(page) == 0 {
			break
		}

		for _, ch := range page {
			if ch == nil {
				continue
			}
			scanned++
			if score := keywordScore(ch.Text, keywords); score > 0 {
				results = append(results, newResult(ch, score))
			}
			if scanned >= e.opt.ScanCeiling {
				break
			}
		}

		if len(page) < e.opt.PageSize {
			break
		}
		skip += e.opt.PageSize
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
