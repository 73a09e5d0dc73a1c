package indexing

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/studyloop/tutor-backend/internal/types"
)

// Section markers used in the enriched representation. Chunking splits on
// these first, so a chunk never straddles two sections.
const sectionMarkerPrefix = "§"

func sectionMarker(name string) string { return sectionMarkerPrefix + name }

// BuildEnrichedText concatenates every teachable facet of a lesson into a
// single representation under labeled section markers: core text, key
// points, worked examples, exercises, misconception corrections, learning
// objectives and self-check items.
func BuildEnrichedText(lesson *types.Lesson) string {
	if lesson == nil {
		return ""
	}

	var b strings.Builder

	writeSection := func(name, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		b.WriteString(sectionMarker(name))
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	writeSection("concept", lesson.Content)
	writeSection("keypoints", joinLines(decodeStrings(lesson.KeyPoints)))

	examples := DecodeExamples(lesson.Examples)
	if len(examples) > 0 {
		var ex strings.Builder
		for i, e := range examples {
			fmt.Fprintf(&ex, "Example %d: %s\nSolution: %s\n", i+1, e.Problem, e.Solution)
			if e.Explanation != "" {
				fmt.Fprintf(&ex, "Why: %s\n", e.Explanation)
			}
		}
		writeSection("example", ex.String())
	}

	exercises := DecodeExercises(lesson.Exercises)
	if len(exercises) > 0 {
		var ex strings.Builder
		for i, q := range exercises {
			fmt.Fprintf(&ex, "Exercise %d: %s\nAnswer: %s\n", i+1, q.Question, q.Answer)
		}
		writeSection("exercise", ex.String())
	}

	misconceptions := decodeStrings(lesson.Misconceptions)
	if len(misconceptions) > 0 {
		var mc strings.Builder
		for _, m := range misconceptions {
			fmt.Fprintf(&mc, "Common misconception: %s\n", m)
		}
		writeSection("misconception", mc.String())
	}

	writeSection("objective", joinLines(decodeStrings(lesson.Objectives)))
	writeSection("selfcheck", joinLines(decodeStrings(lesson.SelfChecks)))

	return strings.TrimSpace(b.String())
}

// sectionTypeFor maps an enriched section name to the metadata section type.
func sectionTypeFor(name string) string {
	switch name {
	case "example":
		return types.SectionExample
	case "exercise":
		return types.SectionExercise
	case "selfcheck":
		return types.SectionAssessment
	case "objective":
		return types.SectionObjective
	case "keypoints":
		return types.SectionSummary
	default:
		return types.SectionConcept
	}
}

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// DecodeExamples parses the lesson examples column; malformed JSON yields
// nil so a bad record degrades to "no supplementary examples".
func DecodeExamples(raw datatypes.JSON) []types.LessonExample {
	if len(raw) == 0 {
		return nil
	}
	var out []types.LessonExample
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func DecodeExercises(raw datatypes.JSON) []types.LessonExercise {
	if len(raw) == 0 {
		return nil
	}
	var out []types.LessonExercise
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func DecodeVisualAids(raw datatypes.JSON) []types.LessonVisualAid {
	if len(raw) == 0 {
		return nil
	}
	var out []types.LessonVisualAid
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func joinLines(items []string) string {
	clean := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s != "" {
			clean = append(clean, "- "+s)
		}
	}
	return strings.Join(clean, "\n")
}
