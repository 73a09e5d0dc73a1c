package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/observability"
	"github.com/studyloop/tutor-backend/internal/platform/envutil"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
	"github.com/studyloop/tutor-backend/internal/types"
)

// Options carries the indexing policy constants.
type Options struct {
	Chunking ChunkingOptions
	// EmbedDelay is the pause between consecutive embedding calls; the
	// provider is rate limited and chunks are embedded one at a time.
	EmbedDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Chunking: ChunkingOptions{
			TargetSize:      envutil.Int("INDEX_CHUNK_TARGET_SIZE", 600),
			MaxSize:         envutil.Int("INDEX_CHUNK_MAX_SIZE", 800),
			MinSentence:     envutil.Int("INDEX_MIN_SENTENCE", 50),
			OverlapFraction: envutil.Float("INDEX_OVERLAP_FRACTION", 0.2),
		},
		EmbedDelay: envutil.Duration("INDEX_EMBED_DELAY", 100*time.Millisecond),
	}
}

// Indexer turns raw lesson content into embedded chunks persisted through
// the chunk repo. Re-indexing a lesson is a full replace: every prior chunk
// for the lesson is deleted before new rows are written.
type Indexer struct {
	lessons repos.LessonRepo
	chunks  repos.ContentChunkRepo
	ai      openai.Client
	log     *logger.Logger
	opt     Options
}

func NewIndexer(lessons repos.LessonRepo, chunks repos.ContentChunkRepo, ai openai.Client, baseLog *logger.Logger, opt Options) *Indexer {
	if opt.EmbedDelay < 0 {
		opt.EmbedDelay = 0
	}
	return &Indexer{
		lessons: lessons,
		chunks:  chunks,
		ai:      ai,
		log:     baseLog.With("service", "Indexer"),
		opt:     opt,
	}
}

// IndexSource indexes one lesson. Idempotent: identical content produces
// the same chunk set, and the delete-then-write order guarantees no stale
// chunks survive a re-index.
func (ix *Indexer) IndexSource(ctx context.Context, lessonID uuid.UUID) error {
	ctx, span := observability.Tracer().Start(ctx, "indexing.index_source")
	defer span.End()

	lesson, err := ix.lessons.GetByID(ctx, nil, lessonID)
	if err != nil {
		return fmt.Errorf("index source: load lesson: %w", err)
	}

	enriched := BuildEnrichedText(lesson)
	sections := ChunkSections(enriched, ix.opt.Chunking)

	rows := make([]*types.ContentChunk, 0, len(sections)+8)
	total := len(sections)

	for i, sc := range sections {
		emb, err := ix.embedOne(ctx, sc.Text)
		if err != nil {
			ix.log.Warn("Embedding failed for chunk; skipping",
				"lesson_id", lessonID.String(),
				"chunk_index", NamespaceMain+i,
				"error", err.Error(),
			)
			continue
		}
		rows = append(rows, ix.newRowWithEmbedding(lesson, NamespaceMain+i, sc.Text, emb, types.ChunkMetadata{
			SourceTitle: lesson.Title,
			Subject:     lesson.Subject,
			Grade:       lesson.Grade,
			SectionType: sectionTypeFor(sc.Section),
			Enriched:    true,
			Position:    i,
			Total:       total,
		}))
	}

	rows = append(rows, ix.supplementaryRows(ctx, lesson)...)

	if err := ix.chunks.DeleteByLessonID(ctx, nil, lessonID); err != nil {
		return fmt.Errorf("index source: delete prior chunks: %w", err)
	}
	if _, err := ix.chunks.Create(ctx, nil, rows); err != nil {
		return fmt.Errorf("index source: write chunks: %w", err)
	}

	ix.log.Info("Indexed lesson",
		"lesson_id", lessonID.String(),
		"chunks", len(rows),
		"main_chunks", total,
	)
	return nil
}

// supplementaryRows embeds worked examples, exercises and visual aids under
// their reserved chunk-index namespaces. A failure on one item skips that
// item only.
func (ix *Indexer) supplementaryRows(ctx context.Context, lesson *types.Lesson) []*types.ContentChunk {
	var rows []*types.ContentChunk

	examples := DecodeExamples(lesson.Examples)
	for i, ex := range examples {
		text := strings.TrimSpace(fmt.Sprintf("Example: %s\nSolution: %s\n%s", ex.Problem, ex.Solution, ex.Explanation))
		if row := ix.supplementaryRow(ctx, lesson, NamespaceExamples+i, text, types.SectionExample, i, len(examples)); row != nil {
			rows = append(rows, row)
		}
	}

	exercises := DecodeExercises(lesson.Exercises)
	for i, q := range exercises {
		text := strings.TrimSpace(fmt.Sprintf("Exercise: %s\nAnswer: %s", q.Question, q.Answer))
		if row := ix.supplementaryRow(ctx, lesson, NamespaceExercises+i, text, types.SectionExercise, i, len(exercises)); row != nil {
			rows = append(rows, row)
		}
	}

	visuals := DecodeVisualAids(lesson.VisualAids)
	for i, v := range visuals {
		text := strings.TrimSpace(fmt.Sprintf("Visual aid: %s\n%s", v.Caption, v.Description))
		if row := ix.supplementaryRow(ctx, lesson, NamespaceVisuals+i, text, types.SectionExample, i, len(visuals)); row != nil {
			rows = append(rows, row)
		}
	}

	return rows
}

func (ix *Indexer) supplementaryRow(ctx context.Context, lesson *types.Lesson, chunkIndex int, text, sectionType string, position, total int) *types.ContentChunk {
	if text == "" {
		return nil
	}
	emb, err := ix.embedOne(ctx, text)
	if err != nil {
		ix.log.Warn("Embedding failed for supplementary chunk; skipping",
			"lesson_id", lesson.ID.String(),
			"chunk_index", chunkIndex,
			"error", err.Error(),
		)
		return nil
	}
	return ix.newRowWithEmbedding(lesson, chunkIndex, text, emb, types.ChunkMetadata{
		SourceTitle: lesson.Title,
		Subject:     lesson.Subject,
		Grade:       lesson.Grade,
		SectionType: sectionType,
		Position:    position,
		Total:       total,
	})
}

// embedOne embeds a single chunk, then pauses to respect the provider's
// rate limit. Chunks are embedded sequentially on purpose.
func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := ix.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	if ix.opt.EmbedDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ix.opt.EmbedDelay):
		}
	}
	return vecs[0], nil
}

func (ix *Indexer) newRow(lesson *types.Lesson, chunkIndex int, text string, meta types.ChunkMetadata) *types.ContentChunk {
	return &types.ContentChunk{
		ID:         uuid.New(),
		LessonID:   lesson.ID,
		ChunkIndex: chunkIndex,
		Text:       text,
		Metadata:   meta.JSON(),
	}
}

func (ix *Indexer) newRowWithEmbedding(lesson *types.Lesson, chunkIndex int, text string, emb []float32, meta types.ChunkMetadata) *types.ContentChunk {
	row := ix.newRow(lesson, chunkIndex, text, meta)
	row.Embedding = types.EncodeEmbedding(emb)
	return row
}
