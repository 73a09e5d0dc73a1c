package search

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/observability"
)

// HybridSearch merges a low-threshold vector pass with a keyword pass.
// Scores are combined per chunk id as 0.6*vector + 0.4*keyword, summed when
// a chunk appears on both paths, and capped at 1.0.
func (e *Engine) HybridSearch(ctx context.Context, lessonID *uuid.UUID, query string, limit int) ([]Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "search.hybrid")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}

	vecResults, err := e.vectorSearch(ctx, lessonID, query, e.opt.SoftQuota*2, e.opt.FloorThreshold, false)
	if err != nil {
		e.log.Warn("Vector pass failed in hybrid search; keyword only", "error", err.Error())
		vecResults = nil
	}
	kwResults, err := e.KeywordSearch(ctx, lessonID, query, e.opt.SoftQuota*2)
	if err != nil {
		e.log.Warn("Keyword pass failed in hybrid search", "error", err.Error())
		kwResults = nil
	}

	merged := map[uuid.UUID]Result{}
	for _, r := range vecResults {
		r.Score = r.Score * e.opt.VectorWeight
		merged[r.Chunk.ID] = r
	}
	for _, r := range kwResults {
		weighted := r.Score * e.opt.KeywordWeight
		if prev, ok := merged[r.Chunk.ID]; ok {
			prev.Score += weighted
			if prev.Score > 1.0 {
				prev.Score = 1.0
			}
			merged[r.Chunk.ID] = prev
			continue
		}
		r.Score = weighted
		merged[r.Chunk.ID] = r
	}

	results := make([]Result, 0, len(merged))
	for _, r := range merged {
		results = append(results, r)
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// partialSearch halves the query (its first half of words) and retries the
// vector path at the floor threshold. Last rung of the fallback ladder.
func (e *Engine) partialSearch(ctx context.Context, lessonID *uuid.UUID, query string, limit int) ([]Result, error) {
	words := strings.Fields(query)
	if len(words) < 2 {
		return nil, nil
	}
	half := strings.Join(words[:(len(words)+1)/2], " ")
	return e.vectorSearch(ctx, lessonID, half, limit, e.opt.FloorThreshold, false)
}

// EnhancedSearch runs the retrieval cascade: vector (with relaxation),
// hybrid, keyword, then partial, short-circuiting on the first non-empty
// result set. It never returns an error for "nothing found".
func (e *Engine) EnhancedSearch(ctx context.Context, lessonID *uuid.UUID, query string, limit int, threshold float64) []Result {
	ctx, span := observability.Tracer().Start(ctx, "search.enhanced")
	defer span.End()

	if results, err := e.vectorSearch(ctx, lessonID, query, limit, threshold, true); err != nil {
		e.log.Warn("Vector search failed; continuing cascade", "error", err.Error())
	} else if len(results) > 0 {
		return results
	}

	if results, err := e.HybridSearch(ctx, lessonID, query, limit); err == nil && len(results) > 0 {
		return results
	}

	if results, err := e.KeywordSearch(ctx, lessonID, query, limit); err == nil && len(results) > 0 {
		return results
	}

	if results, err := e.partialSearch(ctx, lessonID, query, limit); err == nil && len(results) > 0 {
		return results
	}

	e.log.Debug("Retrieval cascade exhausted with no results", "query_len", len(query))
	return nil
}
