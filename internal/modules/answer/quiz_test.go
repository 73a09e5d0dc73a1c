package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/modules/learner"
	pkgerrors "github.com/studyloop/tutor-backend/internal/pkg/errors"
	"github.com/studyloop/tutor-backend/internal/testutil"
)

func TestGenerateQuestionsUnknownLesson(t *testing.T) {
	f := newPipelineFixture(t, &testutil.FakeAI{})
	_, err := f.pipeline.GenerateQuestions(context.Background(), uuid.New(), 5, "")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGenerateQuestionsTemplatedFallbackExactCount(t *testing.T) {
	// No indexed chunks and a failing generator: the templated set must
	// still arrive at exactly the requested size.
	ai := &testutil.FakeAI{JSONErr: errors.New("provider down")}
	f := newPipelineFixture(t, ai)

	questions, err := f.pipeline.GenerateQuestions(context.Background(), f.lessonID, 7, "stu1")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 7 {
		t.Fatalf("got %d questions, want 7", len(questions))
	}
	for i, q := range questions {
		if q.Question == "" {
			t.Fatalf("question %d is empty", i)
		}
		if q.Encouragement == "" {
			t.Fatalf("question %d has no encouragement", i)
		}
	}
}

func TestGenerateQuestionsCountBounds(t *testing.T) {
	f := newPipelineFixture(t, &testutil.FakeAI{JSONErr: errors.New("down")})
	ctx := context.Background()

	questions, err := f.pipeline.GenerateQuestions(ctx, f.lessonID, 0, "")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != defaultQuizCount {
		t.Fatalf("zero count produced %d questions, want default %d", len(questions), defaultQuizCount)
	}

	questions, err = f.pipeline.GenerateQuestions(ctx, f.lessonID, 99, "")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != maxQuizCount {
		t.Fatalf("oversized count produced %d questions, want cap %d", len(questions), maxQuizCount)
	}
}

func TestGenerateQuestionsParsesStructuredSet(t *testing.T) {
	ai := &testutil.FakeAI{
		Vectors: map[string][]float32{
			"Gravity": {1, 0, 0, 0},
		},
		JSONResponse: map[string]any{
			"questions": []any{
				map[string]any{"question": "What pulls objects down?", "type": "definition", "difficulty": "simple", "answer": "Gravity"},
				map[string]any{"question": "Why do all objects fall at the same rate?", "type": "explanation", "difficulty": "moderate", "answer": "Mass cancels out"},
			},
		},
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	questions, err := f.pipeline.GenerateQuestions(context.Background(), f.lessonID, 2, "")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if questions[0].Question != "What pulls objects down?" || questions[0].Answer != "Gravity" {
		t.Fatalf("first question = %+v", questions[0])
	}
	if questions[1].Encouragement == "" {
		t.Fatalf("encouragement not attached")
	}
	if ai.JSONCalls != 1 {
		t.Fatalf("JSONCalls = %d, want 1", ai.JSONCalls)
	}
}

func TestGenerateQuestionsDowngradesAfterRecentFailures(t *testing.T) {
	ai := &testutil.FakeAI{
		Vectors: map[string][]float32{
			"Gravity": {1, 0, 0, 0},
		},
		JSONResponse: map[string]any{
			"questions": []any{
				map[string]any{"question": "Fill-in question?", "type": "definition", "difficulty": "", "answer": "x"},
			},
		},
	}
	f := newPipelineFixture(t, ai)
	f.seed(t, 0, "gravity pulls objects toward each other", []float32{1, 0, 0, 0})

	for i := 0; i < 3; i++ {
		f.learners.RecordInteraction("stu1", learner.Interaction{Topic: "gravity", Success: false})
	}

	questions, err := f.pipeline.GenerateQuestions(context.Background(), f.lessonID, 1, "stu1")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions", len(questions))
	}
	// Level 5 maps to moderate; three straight failures downgrade to simple,
	// which backfills the blank difficulty.
	if questions[0].Difficulty != DifficultySimple {
		t.Fatalf("difficulty = %q, want simple", questions[0].Difficulty)
	}
}
