package search

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/observability"
	"github.com/studyloop/tutor-backend/internal/platform/envutil"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
	"github.com/studyloop/tutor-backend/internal/types"
)

// SourceInfo identifies where a retrieved chunk came from.
type SourceInfo struct {
	LessonID    uuid.UUID `json:"lesson_id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject,omitempty"`
	SectionType string    `json:"section_type"`
}

// Result is one retrieval hit. Score is cosine similarity on the vector
// path or a capped keyword-frequency score on the lexical path; merged
// scores never exceed 1.0.
type Result struct {
	Chunk  *types.ContentChunk
	Score  float64
	Source SourceInfo
}

// Options carries the retrieval policy constants. The defaults mirror the
// documented latency/completeness trade-off: the scan stops early at the
// soft quota or the hard ceiling, so a very large corpus is sampled rather
// than scanned exhaustively.
type Options struct {
	PageSize       int
	SoftQuota      int
	ScanCeiling    int
	FloorThreshold float64

	VectorWeight  float64
	KeywordWeight float64

	EmbeddingCacheSize int
	QueryCacheSize     int
}

func DefaultOptions() Options {
	return Options{
		PageSize:           envutil.Int("SEARCH_PAGE_SIZE", 100),
		SoftQuota:          envutil.Int("SEARCH_SOFT_QUOTA", 20),
		ScanCeiling:        envutil.Int("SEARCH_SCAN_CEILING", 1000),
		FloorThreshold:     envutil.Float("SEARCH_FLOOR_THRESHOLD", 0.3),
		VectorWeight:       0.6,
		KeywordWeight:      0.4,
		EmbeddingCacheSize: envutil.Int("SEARCH_EMBEDDING_CACHE_SIZE", 500),
		QueryCacheSize:     envutil.Int("SEARCH_QUERY_CACHE_SIZE", 100),
	}
}

func (o Options) withDefaults() Options {
	d := Options{
		PageSize:           100,
		SoftQuota:          20,
		ScanCeiling:        1000,
		FloorThreshold:     0.3,
		VectorWeight:       0.6,
		KeywordWeight:      0.4,
		EmbeddingCacheSize: 500,
		QueryCacheSize:     100,
	}
	if o.PageSize > 0 {
		d.PageSize = o.PageSize
	}
	if o.SoftQuota > 0 {
		d.SoftQuota = o.SoftQuota
	}
	if o.ScanCeiling > 0 {
		d.ScanCeiling = o.ScanCeiling
	}
	if o.FloorThreshold > 0 {
		d.FloorThreshold = o.FloorThreshold
	}
	if o.VectorWeight > 0 {
		d.VectorWeight = o.VectorWeight
	}
	if o.KeywordWeight > 0 {
		d.KeywordWeight = o.KeywordWeight
	}
	if o.EmbeddingCacheSize > 0 {
		d.EmbeddingCacheSize = o.EmbeddingCacheSize
	}
	if o.QueryCacheSize > 0 {
		d.QueryCacheSize = o.QueryCacheSize
	}
	return d
}

// Engine runs batched cosine-similarity retrieval over stored chunks, with
// query expansion, a keyword fallback and in-process embedding caches.
type Engine struct {
	chunks repos.ContentChunkRepo
	ai     openai.Client
	log    *logger.Logger
	opt    Options

	embCache   *fifoCache
	queryCache *fifoCache
}

func NewEngine(chunks repos.ContentChunkRepo, ai openai.Client, baseLog *logger.Logger, opt Options) *Engine {
	opt = opt.withDefaults()
	return &Engine{
		chunks:     chunks,
		ai:         ai,
		log:        baseLog.With("service", "SearchEngine"),
		opt:        opt,
		embCache:   newFIFOCache(opt.EmbeddingCacheSize),
		queryCache: newFIFOCache(opt.QueryCacheSize),
	}
}

// ClearCaches drops both embedding caches; used by tests and the sweep.
func (e *Engine) ClearCaches() {
	e.embCache.Clear()
	e.queryCache.Clear()
}

// PruneCaches evicts overflow beyond each cache's capacity. Insertion
// already keeps the caches bounded, so this is a periodic safety net.
func (e *Engine) PruneCaches() {
	e.embCache.Prune()
	e.queryCache.Prune()
}

// Search runs corpus-wide vector retrieval with automatic threshold
// relaxation. Results are ordered by descending score, at most limit.
func (e *Engine) Search(ctx context.Context, query string, limit int, threshold float64) ([]Result, error) {
	return e.SearchScoped(ctx, nil, query, limit, threshold)
}

// SearchScoped is Search restricted to a single lesson when lessonID is set.
func (e *Engine) SearchScoped(ctx context.Context, lessonID *uuid.UUID, query string, limit int, threshold float64) ([]Result, error) {
	return e.vectorSearch(ctx, lessonID, query, limit, threshold, true)
}

func (e *Engine) vectorSearch(ctx context.Context, lessonID *uuid.UUID, query string, limit int, threshold float64, allowRelax bool) ([]Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "search.vector")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	qEmb, err := e.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	results := e.scan(ctx, lessonID, qEmb, threshold)

	if len(results) == 0 && allowRelax && threshold > e.opt.FloorThreshold {
		e.log.Debug("No hits; relaxing threshold to floor",
			"threshold", threshold,
			"floor", e.opt.FloorThreshold,
		)
		return e.vectorSearch(ctx, lessonID, query, limit, e.opt.FloorThreshold, false)
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scan walks the corpus page by page, scoring each chunk against qEmb. Pages
// are read sequentially to bound memory and to avoid hammering the datastore.
// The walk stops once the soft quota of accepted results is reached or the
// hard scan ceiling is hit.
func (e *Engine) scan(ctx context.Context, lessonID *uuid.UUID, qEmb []float32, threshold float64) []Result {
	var results []Result
	skip := 0
	scanned := 0

	for scanned < e.opt.ScanCeiling {
		page, err := e.chunks.Page(ctx, nil, lessonID, skip, e.opt.PageSize)
		if err != nil {
			e.log.Warn("Chunk page read failed; stopping scan", "skip", skip, "error", err.Error())
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

			emb := e.chunkEmbedding(ch)
			if emb == nil {
				continue
			}

			score, ok := cosine(qEmb, emb)
			if !ok {
				e.log.Debug("Cosine undefined for chunk; scoring 0",
					"chunk_id", ch.ID.String(),
					"query_dim", len(qEmb),
					"chunk_dim", len(emb),
				)
				continue
			}
			if score >= threshold {
				results = append(results, newResult(ch, score))
			}
			if len(results) >= e.opt.SoftQuota || scanned >= e.opt.ScanCeiling {
				return results
			}
		}

		if len(page) < e.opt.PageSize {
			break
		}
		skip += e.opt.PageSize
	}

	return results
}

// chunkEmbedding lazily parses and caches a stored embedding. A malformed
// column is treated as a miss, never as a scan failure.
func (e *Engine) chunkEmbedding(ch *types.ContentChunk) []float32 {
	key := ch.ID.String()
	if emb, ok := e.embCache.Get(key); ok {
		return emb
	}
	emb := types.DecodeEmbedding(ch.Embedding)
	if emb == nil {
		e.log.Debug("Skipping chunk with missing or malformed embedding", "chunk_id", key)
		return nil
	}
	e.embCache.Put(key, emb)
	return emb
}

// queryEmbedding embeds the primary query variant, caching by normalized
// text so repeated questions skip the embedding call.
func (e *Engine) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	norm := normalizeQuery(query)
	if emb, ok := e.queryCache.Get(norm); ok {
		return emb, nil
	}

	variants := e.expandQuery(query)
	primary := query
	if len(variants) > 0 {
		primary = variants[0]
	}

	vecs, err := e.ai.Embed(ctx, []string{primary})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errEmptyEmbedding
	}
	e.queryCache.Put(norm, vecs[0])
	return vecs[0], nil
}

func newResult(ch *types.ContentChunk, score float64) Result {
	meta := types.DecodeChunkMetadata(ch.Metadata)
	return Result{
		Chunk: ch,
		Score: score,
		Source: SourceInfo{
			LessonID:    ch.LessonID,
			Title:       meta.SourceTitle,
			Subject:     meta.Subject,
			SectionType: meta.SectionType,
		},
	}
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(q))), " ")
}
