package answer

import (
	"fmt"
	"strings"

	"github.com/studyloop/tutor-backend/internal/modules/learner"
)

// fallbackAnswer is the templated reply used when retrieval comes back
// empty. The wording shifts when the topic is one the student has already
// struggled with, so the reply lands as encouragement rather than a shrug.
func fallbackAnswer(profile learner.Profile, topic string) string {
	if topic != "" && profile.WeakAreas[topic] {
		return fmt.Sprintf(
			"I know %s has been tricky before, and that's completely normal. "+
				"I don't have material on this exact question yet, but let's not give up: "+
				"try asking about one small piece of it, or ask your teacher to add a lesson on %s.",
			topic, topic)
	}
	if topic != "" {
		return fmt.Sprintf(
			"I couldn't find anything in your lessons about %s yet. "+
				"Try rephrasing the question, or pick a lesson that covers it and ask again from there.",
			topic)
	}
	return "I couldn't find lesson material matching your question. " +
		"Try rephrasing it with the key words from your lesson, or choose a specific lesson first."
}

// generationFallback replaces a failed completion when retrieval did find
// material. The top of the retrieved text is surfaced directly so the
// student still gets something grounded.
func generationFallback(topSnippet string) string {
	snippet := strings.TrimSpace(topSnippet)
	if len([]rune(snippet)) > 300 {
		snippet = string([]rune(snippet)[:300]) + "..."
	}
	if snippet == "" {
		return "I'm having trouble writing an explanation right now. Please try asking again in a moment."
	}
	return "I'm having trouble writing a full explanation right now, but here is the most relevant part of your lesson:\n\n" + snippet
}

var encouragements = []string{
	"You've got this!",
	"Take your time, there's no rush.",
	"Great effort so far, keep going!",
	"Every attempt makes you stronger at this.",
	"Mistakes are how we learn, try it!",
}

func encouragementFor(motivation string, i int) string {
	if motivation == learner.MotivationLow {
		return "No pressure at all, just give it a try. " + encouragements[i%len(encouragements)]
	}
	return encouragements[i%len(encouragements)]
}

// templatedQuestions is the deterministic quiz fallback: always exactly
// count questions, usable even when generation is down entirely.
func templatedQuestions(subject, topic string, count int) []QuizQuestion {
	if topic == "" {
		topic = "this lesson"
	}
	templates := []QuizQuestion{
		{Question: fmt.Sprintf("In your own words, what is the main idea of %s?", topic), Type: TypeDefinition, Difficulty: DifficultySimple},
		{Question: fmt.Sprintf("Give one example of %s from everyday life.", topic), Type: TypeApplication, Difficulty: DifficultySimple},
		{Question: fmt.Sprintf("Why is %s important in %s?", topic, subjectOr(subject)), Type: TypeExplanation, Difficulty: DifficultyModerate},
		{Question: fmt.Sprintf("What would you tell a classmate who is confused about %s?", topic), Type: TypeExplanation, Difficulty: DifficultyModerate},
		{Question: fmt.Sprintf("Describe a problem you could solve using %s.", topic), Type: TypeApplication, Difficulty: DifficultyHard},
	}
	out := make([]QuizQuestion, 0, count)
	for i := 0; i < count; i++ {
		q := templates[i%len(templates)]
		if i >= len(templates) {
			q.Question = fmt.Sprintf("(%d) %s", i/len(templates)+1, q.Question)
		}
		out = append(out, q)
	}
	return out
}

func subjectOr(subject string) string {
	if subject == "" {
		return "your studies"
	}
	return subject
}
