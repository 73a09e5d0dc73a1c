package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/observability"
)

// QuizQuestion is one generated practice question.
type QuizQuestion struct {
	Question      string `json:"question"`
	Type          string `json:"type"`
	Difficulty    string `json:"difficulty"`
	Answer        string `json:"answer,omitempty"`
	Encouragement string `json:"encouragement"`
}

const (
	defaultQuizCount = 5
	maxQuizCount     = 10
	failureDowngrade = 3
)

var quizSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question":   map[string]any{"type": "string"},
					"type":       map[string]any{"type": "string"},
					"difficulty": map[string]any{"type": "string"},
					"answer":     map[string]any{"type": "string"},
				},
				"required":             []string{"question", "type", "difficulty", "answer"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"questions"},
	"additionalProperties": false,
}

// GenerateQuestions builds a practice set for one lesson. Any fault along
// the way degrades to a deterministic templated set of the requested size;
// callers never see an error from generation itself.
func (p *Pipeline) GenerateQuestions(ctx context.Context, lessonID uuid.UUID, count int, userID string) ([]QuizQuestion, error) {
	ctx, span := observability.Tracer().Start(ctx, "answer.generate_questions")
	defer span.End()

	if count <= 0 {
		count = defaultQuizCount
	}
	if count > maxQuizCount {
		count = maxQuizCount
	}

	lesson, err := p.lessons.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, err
	}

	profile := p.learners.Profile(userID)
	difficulty := difficultyForLevel(profile.Level)
	if profile.RecentFailures >= failureDowngrade {
		difficulty = downgrade(difficulty)
	}

	questions := p.generateQuiz(ctx, lessonID, lesson.Title, difficulty, count, profile)
	if len(questions) == 0 {
		questions = templatedQuestions(lesson.Subject, lesson.Title, count)
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	for len(questions) < count {
		pad := templatedQuestions(lesson.Subject, lesson.Title, count)
		questions = append(questions, pad[len(questions)])
	}

	motivation := learner.MotivationMedium
	if ins, ok := p.learners.Insights(userID); ok {
		motivation = ins.MotivationLevel
	}
	for i := range questions {
		questions[i].Encouragement = encouragementFor(motivation, i)
		if questions[i].Difficulty == "" {
			questions[i].Difficulty = difficulty
		}
	}
	return questions, nil
}

// generateQuiz runs retrieval and structured generation. Returns nil on
// any fault; the caller substitutes templated questions.
func (p *Pipeline) generateQuiz(ctx context.Context, lessonID uuid.UUID, title, difficulty string, count int, profile learner.Profile) []QuizQuestion {
	results := p.search.EnhancedSearch(ctx, &lessonID, title, 8, p.opt.Threshold)
	pc := buildContext(results, profile)
	if pc.empty() {
		return nil
	}

	system := "You are a tutor writing practice questions. Write questions a student " +
		"can answer from the provided material alone. Difficulty: " + difficulty + "."
	user := buildUserPrompt(pc, quizRequest(title, count, difficulty), "")

	out, err := p.ai.GenerateJSON(ctx, system, user, "quiz_questions", quizSchema, openai.GenerateOptions{
		Temperature: 0.5,
		MaxTokens:   1200,
	})
	if err != nil {
		p.log.Warn("quiz generation failed, using templated set", "error", err)
		return nil
	}
	return parseQuizPayload(out)
}

func quizRequest(title string, count int, difficulty string) string {
	return fmt.Sprintf(
		"Write %d %s practice questions about %q. Mix question types (definition, explanation, application, mathematical where the material allows).",
		count, difficulty, title)
}

func parseQuizPayload(out map[string]any) []QuizQuestion {
	raw, ok := out["questions"].([]any)
	if !ok {
		return nil
	}
	var questions []QuizQuestion
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q := QuizQuestion{
			Question:   stringField(m, "question"),
			Type:       stringField(m, "type"),
			Difficulty: stringField(m, "difficulty"),
			Answer:     stringField(m, "answer"),
		}
		if q.Question == "" {
			continue
		}
		questions = append(questions, q)
	}
	return questions
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func difficultyForLevel(level int) string {
	switch {
	case level <= 3:
		return DifficultySimple
	case level <= 7:
		return DifficultyModerate
	default:
		return DifficultyHard
	}
}

func downgrade(difficulty string) string {
	switch difficulty {
	case DifficultyHard:
		return DifficultyModerate
	default:
		return DifficultySimple
	}
}
