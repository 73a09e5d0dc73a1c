package answer

import "strings"

const (
	TypeMathematical = "mathematical"
	TypeDefinition   = "definition"
	TypeExplanation  = "explanation"
	TypeApplication  = "application"
	TypeGeneral      = "general"

	DifficultySimple   = "simple"
	DifficultyModerate = "moderate"
	DifficultyHard     = "hard"

	ToneFrustrated = "frustrated"
	TonePolite     = "polite"
	ToneUrgent     = "urgent"
	ToneNeutral    = "neutral"

	StageUnderstanding = "understanding"
	StageApplication   = "application"
	StageReview        = "review"
	StageLearning      = "learning"
)

// Classification is everything the pipeline knows about a question before
// retrieval runs.
type Classification struct {
	Type       string
	Difficulty string
	Tone       string
	Stage      string
}

// Classifier bundles the four policy functions. Each one is a plain
// keyword/heuristic matcher today; holding them as swappable funcs keeps
// the pipeline untouched if any of them is ever replaced with a model.
type Classifier struct {
	Type       func(question string) string
	Difficulty func(question string) string
	Tone       func(question string) string
	Stage      func(question string) string
}

func DefaultClassifier() Classifier {
	return Classifier{
		Type:       classifyType,
		Difficulty: classifyDifficulty,
		Tone:       classifyTone,
		Stage:      classifyStage,
	}
}

func (c Classifier) Classify(question string) Classification {
	return Classification{
		Type:       c.Type(question),
		Difficulty: c.Difficulty(question),
		Tone:       c.Tone(question),
		Stage:      c.Stage(question),
	}
}

var (
	mathMarkers = []string{
		"calculate", "solve", "equation", "sum of", "multiply", "divide",
		"fraction", "percent", "how many", "how much", "+", "-", "=", "×", "÷",
	}
	definitionMarkers = []string{
		"what is", "what are", "define", "definition", "meaning of", "what does",
	}
	explanationMarkers = []string{
		"why", "how does", "how do", "explain", "what happens",
	}
	applicationMarkers = []string{
		"example", "apply", "use this", "real life", "real world", "practice",
	}
)

func classifyType(question string) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, mathMarkers):
		return TypeMathematical
	case containsAny(q, definitionMarkers):
		return TypeDefinition
	case containsAny(q, explanationMarkers):
		return TypeExplanation
	case containsAny(q, applicationMarkers):
		return TypeApplication
	default:
		return TypeGeneral
	}
}

var conjunctions = []string{"and", "or", "but", "because", "if", "while", "when"}

// classifyDifficulty scores word count, symbol presence and conjunction
// count; two or more signals make a question hard.
func classifyDifficulty(question string) string {
	q := strings.ToLower(question)
	words := strings.Fields(q)

	score := 0
	if len(words) > 20 {
		score++
	}
	if strings.ContainsAny(question, "=+%^√∫") {
		score++
	}
	conj := 0
	for _, w := range words {
		if containsString(conjunctions, strings.Trim(w, ",.!?")) {
			conj++
		}
	}
	if conj >= 2 {
		score++
	}

	switch {
	case score >= 2:
		return DifficultyHard
	case score == 1:
		return DifficultyModerate
	default:
		return DifficultySimple
	}
}

var (
	frustratedMarkers = []string{
		"don't understand", "dont understand", "confused", "stuck",
		"this is hard", "no entiendo", "i give up", "makes no sense",
	}
	politeMarkers = []string{"please", "could you", "would you", "thank", "por favor"}
	urgentMarkers = []string{
		"quickly", "asap", "right now", "urgent", "exam tomorrow",
		"test tomorrow", "due tomorrow",
	}
)

func classifyTone(question string) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, frustratedMarkers):
		return ToneFrustrated
	case containsAny(q, urgentMarkers):
		return ToneUrgent
	case containsAny(q, politeMarkers):
		return TonePolite
	default:
		return ToneNeutral
	}
}

var (
	understandingMarkers = []string{"what is", "what are", "what does", "define", "meaning"}
	appStageMarkers      = []string{"how do i", "how can i", "solve this", "example", "apply", "practice"}
	reviewMarkers        = []string{"review", "again", "recap", "remind me", "forgot", "repaso"}
)

func classifyStage(question string) string {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, reviewMarkers):
		return StageReview
	case containsAny(q, appStageMarkers):
		return StageApplication
	case containsAny(q, understandingMarkers):
		return StageUnderstanding
	default:
		return StageLearning
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
