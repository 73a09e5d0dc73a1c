package answer

import (
	"sort"
	"strings"
	"time"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/modules/search"
)

const (
	screenOpen  = "[screen]"
	screenClose = "[/screen]"
)

// extractScreenContext pulls the embedded on-screen marker out of the
// question. The marker body is auxiliary grounding, never part of the
// question text itself.
func extractScreenContext(question string) (clean, screen string) {
	start := indexFold(question, screenOpen)
	if start < 0 {
		return strings.TrimSpace(question), ""
	}
	end := indexFold(question, screenClose)
	if end < 0 || end < start {
		return strings.TrimSpace(question[:start]), strings.TrimSpace(question[start+len(screenOpen):])
	}
	screen = strings.TrimSpace(question[start+len(screenOpen) : end])
	clean = strings.TrimSpace(question[:start] + " " + question[end+len(screenClose):])
	return clean, screen
}

// indexFold finds sub in s ignoring case. Offsets come from s itself, so
// multi-byte runes ahead of the marker cannot skew the slice points the way
// indexing into a separately lowered copy would.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// buildSystemPrompt assembles the adaptive instruction set from the
// student's profile and the question classification.
func buildSystemPrompt(profile learner.Profile, cls Classification, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a patient tutor helping a student one question at a time.\n")

	switch {
	case profile.Level <= 3:
		b.WriteString("Use very simple vocabulary and short sentences. Avoid jargon entirely.\n")
	case profile.Level <= 6:
		b.WriteString("Use everyday vocabulary; introduce technical terms only with a plain definition.\n")
	default:
		b.WriteString("The student handles technical vocabulary well; be precise and concise.\n")
	}

	switch profile.LearningStyle {
	case "visual":
		b.WriteString("Describe things visually: shapes, diagrams, spatial layouts.\n")
	case "verbal":
		b.WriteString("Lean on analogies and step-by-step verbal walkthroughs.\n")
	}

	if len(profile.WeakAreas) > 0 {
		b.WriteString("The student has struggled with: " + strings.Join(sortedKeys(profile.WeakAreas), ", ") + ". Tread carefully there and never assume mastery.\n")
	}

	switch cls.Tone {
	case ToneFrustrated:
		b.WriteString("The student sounds frustrated. Open with reassurance before explaining.\n")
	case ToneUrgent:
		b.WriteString("The student is pressed for time. Get to the point quickly.\n")
	}

	if cls.Stage == StageReview {
		b.WriteString("This is review; keep it a brief refresher, not a full lesson.\n")
	}

	hour := now.Hour()
	switch {
	case hour >= 21 || hour < 6:
		b.WriteString("It is late; keep the answer short and focused.\n")
	case hour < 9:
		b.WriteString("It is early morning; be encouraging and warm.\n")
	}

	b.WriteString("Answer only from the provided context. If the context does not cover the question, say so honestly.")
	return b.String()
}

// buildUserPrompt lays out the tiered context, prior examples, optional
// screen grounding and the cleaned question.
func buildUserPrompt(pc promptContext, question, screen string) string {
	var b strings.Builder

	writeTier := func(label string, results []search.Result) {
		if len(results) == 0 {
			return
		}
		b.WriteString(label + ":\n")
		for _, r := range results {
			b.WriteString(r.Chunk.Text)
			b.WriteString("\n\n")
		}
	}
	writeTier("Primary material", pc.Core)
	writeTier("Supporting material", pc.Supporting)
	writeTier("Background material", pc.Background)

	if len(pc.Examples) > 0 {
		b.WriteString("Explanations that worked well for this student before:\n")
		for _, ex := range pc.Examples {
			b.WriteString("- " + ex + "\n")
		}
		b.WriteString("\n")
	}

	if screen != "" {
		b.WriteString("What the student currently sees on screen:\n" + screen + "\n\n")
	}

	b.WriteString("Question: " + question)
	return b.String()
}

// generationOptions picks temperature, token budget and model from the
// classification. Review gets a tight, cool completion; mathematical
// questions route to the stronger model.
func generationOptions(cls Classification, strongModel string) openai.GenerateOptions {
	opts := openai.GenerateOptions{Temperature: 0.3, MaxTokens: 500}

	switch cls.Difficulty {
	case DifficultyHard:
		opts.MaxTokens = 800
	case DifficultySimple:
		opts.MaxTokens = 350
	}
	if cls.Stage == StageReview {
		opts.Temperature = 0.1
		opts.MaxTokens = 250
	}
	if cls.Type == TypeMathematical {
		opts.Temperature = 0.2
		opts.Model = strongModel
	}
	return opts
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
