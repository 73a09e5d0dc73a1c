package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/modules/search"
	pkgerrors "github.com/studyloop/tutor-backend/internal/pkg/errors"
	"github.com/studyloop/tutor-backend/internal/testutil"
	"github.com/studyloop/tutor-backend/internal/types"
)

type pipelineFixture struct {
	pipeline *Pipeline
	lessons  repos.LessonRepo
	chunks   repos.ContentChunkRepo
	learners *learner.Store
	lessonID uuid.UUID
}

func newPipelineFixture(t *testing.T, ai openai.Client) *pipelineFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	lessons := repos.NewLessonRepo(db, log)
	chunks := repos.NewContentChunkRepo(db, log)
	lesson, err := lessons.Create(context.Background(), nil, &types.Lesson{
		Title:   "Gravity",
		Subject: "science",
		Content: "placeholder",
	})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	engine := search.NewEngine(chunks, ai, log, search.Options{})
	learners := learner.NewStore(log, learner.Options{})
	pipeline := NewPipeline(engine, lessons, ai, learners, nil, log, Options{})

	return &pipelineFixture{
		pipeline: pipeline,
		lessons:  lessons,
		chunks:   chunks,
		learners: learners,
		lessonID: lesson.ID,
	}
}

func (f *pipelineFixture) seed(t *testing.T, idx int, text string, emb []float32) {
	t.Helper()
	row := &types.ContentChunk{
		LessonID:   f.lessonID,
		ChunkIndex: idx,
		Text:       text,
		Metadata:   types.ChunkMetadata{SourceTitle: "Gravity", SectionType: types.SectionConcept}.JSON(),
	}
	if emb != nil {
		row.Embedding = types.EncodeEmbedding(emb)
	}
	if _, err := f.chunks.Create(context.Background(), nil, []*types.ContentChunk{row}); err != nil {
		t.Fatalf("seed chunk: %v", err)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	f := newPipelineFixture(t, &testutil.FakeAI{})
	_, err := f.pipeline.Answer(context.Background(), AskInput{Question: "   "})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestAnswerFallbackWhenNothingRetrieved(t *testing.T) {
	question := "what is gravity"
	ai := &testutil.FakeAI{Vectors: map[string][]float32{
		question: {1, 0, 0, 0},
	}}
	f := newPipelineFixture(t, ai)

	out, err := f.pipeline.Answer(context.Background(), AskInput{Question: question, UserID: "stu1"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if out.Confidence != 0 {
		t.Fatalf("fallback confidence = %d, want 0", out.Confidence)
	}
	if len(out.Sources) != 0 {
		t.Fatalf("fallback carried sources: %v", out.Sources)
	}
	if !strings.Contains(out.Answer, "gravity") {
		t.Fatalf("fallback does not name the topic: %q", out.Answer)
	}
	if ai.TextCalls != 0 {
		t.Fatalf("generation ran despite empty retrieval")
	}
}

func TestAnswerWeakAreaFallbackWording(t *testing.T) {
	question := "what is gravity"
	ai := &testutil.FakeAI{Vectors: map[string][]float32{
		question: {1, 0, 0, 0},
	}}
	f := newPipelineFixture(t, ai)
	f.learners.RecordInteraction("stu1", learner.Interaction{Topic: "gravity", Success: false})

	out, err := f.pipeline.Answer(context.Background(), AskInput{Question: question, UserID: "stu1"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(out.Answer, "tricky before") {
		t.Fatalf("weak-area fallback wording missing: %q", out.Answer)
	}
}

func TestAnswerCachedOnIdenticalQuestion(t *testing.T) {
	question := "what is gravity"
	ai := &testutil.FakeAI{
		Vectors: map[string][]float32{
			question: {1, 0, 0, 0},
		},
		TextResponses: []string{"Gravity is the pull between masses."},
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	ctx := context.Background()
	first, err := f.pipeline.Answer(ctx, AskInput{Question: question})
	if err != nil {
		t.Fatalf("first Answer: %v", err)
	}
	if first.Cached {
		t.Fatalf("first answer reported as cached")
	}
	if first.Answer != "Gravity is the pull between masses." {
		t.Fatalf("first answer = %q", first.Answer)
	}

	second, err := f.pipeline.Answer(ctx, AskInput{Question: "What IS gravity??"})
	if err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	if !second.Cached {
		t.Fatalf("identical normalized question missed the cache")
	}
	if second.Confidence != first.Confidence {
		t.Fatalf("cached confidence %d != original %d", second.Confidence, first.Confidence)
	}
	if ai.TextCalls != 1 {
		t.Fatalf("TextCalls = %d, want 1", ai.TextCalls)
	}
}

func TestAnswerLowConfidenceNotAdmittedToCache(t *testing.T) {
	question := "tangential question"
	ai := &testutil.FakeAI{
		// cos against [1,0,0,0] is ~0.35: found only after relaxation, and
		// scored below the cache admission threshold.
		Vectors: map[string][]float32{
			question: {1, 2.7, 0, 0},
		},
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "loosely related material", []float32{1, 0, 0, 0})

	ctx := context.Background()
	first, err := f.pipeline.Answer(ctx, AskInput{Question: question})
	if err != nil {
		t.Fatalf("first Answer: %v", err)
	}
	if first.Confidence >= 40 {
		t.Fatalf("confidence = %d, expected below admission threshold", first.Confidence)
	}

	second, err := f.pipeline.Answer(ctx, AskInput{Question: question})
	if err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	if second.Cached {
		t.Fatalf("low-confidence answer appeared in the cache")
	}
	if ai.TextCalls != 2 {
		t.Fatalf("TextCalls = %d, want 2", ai.TextCalls)
	}
}

func TestAnswerGenerationFaultServesRetrievalFallback(t *testing.T) {
	question := "what is gravity"
	ai := &testutil.FakeAI{
		Vectors: map[string][]float32{
			question: {1, 0, 0, 0},
		},
		TextErr: errors.New("provider down"),
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	out, err := f.pipeline.Answer(context.Background(), AskInput{Question: question})
	if err != nil {
		t.Fatalf("Answer returned error despite local recovery: %v", err)
	}
	if !strings.Contains(out.Answer, "gravity pulls objects") {
		t.Fatalf("fallback lost the retrieved snippet: %q", out.Answer)
	}
	if len(out.Sources) == 0 {
		t.Fatalf("retrieval fallback should still cite sources")
	}
}

func TestAnswerUpdatesLearnerState(t *testing.T) {
	question := "what is gravity"
	ai := &testutil.FakeAI{
		Vectors: map[string][]float32{
			question: {1, 0, 0, 0},
		},
		TextResponses: []string{"Gravity is the pull between masses."},
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	if _, err := f.pipeline.Answer(context.Background(), AskInput{Question: question, UserID: "stu1"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if got := f.learners.PatternCount("stu1"); got != 1 {
		t.Fatalf("pattern count = %d, want 1", got)
	}
	p := f.learners.Profile("stu1")
	if p.TotalAttempts != 1 {
		t.Fatalf("TotalAttempts = %d", p.TotalAttempts)
	}
	if len(p.SuccessfulExamples) != 1 {
		t.Fatalf("high-confidence answer not kept as example: %v", p.SuccessfulExamples)
	}
}

// gatedAI blocks the first completion until released, holding a generation
// in flight long enough for a second caller to coalesce onto it.
type gatedAI struct {
	*testutil.FakeAI
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedAI) GenerateText(ctx context.Context, system, user string, opts openai.GenerateOptions) (string, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.FakeAI.GenerateText(ctx, system, user, opts)
}

func TestAnswerConcurrentCallersEachRecordInteraction(t *testing.T) {
	question := "what is gravity"
	ai := &gatedAI{
		FakeAI: &testutil.FakeAI{
			Vectors:       map[string][]float32{question: {1, 0, 0, 0}},
			TextResponses: []string{"Gravity is the pull between masses."},
		},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	ctx := context.Background()
	users := []string{"stu1", "stu2"}
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = f.pipeline.Answer(ctx, AskInput{Question: question, UserID: user})
		}(i, user)
	}
	<-ai.started
	time.Sleep(20 * time.Millisecond)
	close(ai.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	for _, user := range users {
		if got := f.learners.PatternCount(user); got != 1 {
			t.Fatalf("%s pattern count = %d, want 1", user, got)
		}
		if p := f.learners.Profile(user); p.TotalAttempts != 1 {
			t.Fatalf("%s TotalAttempts = %d, want 1", user, p.TotalAttempts)
		}
	}
}

func TestAnswerScreenMarkerNotPartOfCacheKey(t *testing.T) {
	question := "what is gravity"
	ai := &testutil.FakeAI{
		Vectors: map[string][]float32{
			question: {1, 0, 0, 0},
		},
		TextResponses: []string{"Gravity is the pull between masses."},
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	ctx := context.Background()
	if _, err := f.pipeline.Answer(ctx, AskInput{Question: question + " [screen]orbit diagram[/screen]"}); err != nil {
		t.Fatalf("first Answer: %v", err)
	}
	second, err := f.pipeline.Answer(ctx, AskInput{Question: question})
	if err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	if !second.Cached {
		t.Fatalf("marker-stripped question should share the cache entry")
	}
}
