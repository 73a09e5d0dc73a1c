package answer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/modules/search"
)

const (
	coreTier       = 0.7
	supportingTier = 0.5
)

// promptContext is the tiered material handed to prompt assembly. Core
// chunks scored above 0.7, supporting sit in (0.5, 0.7], everything else
// is background.
type promptContext struct {
	Core       []search.Result
	Supporting []search.Result
	Background []search.Result
	Examples   []string
}

func (pc promptContext) empty() bool {
	return len(pc.Core) == 0 && len(pc.Supporting) == 0 && len(pc.Background) == 0
}

// buildContext partitions results into tiers and, within each tier, prefers
// chunks whose estimated complexity sits closest to the user's level. Up to
// two of the user's previously successful examples ride along.
func buildContext(results []search.Result, profile learner.Profile) promptContext {
	var pc promptContext
	for _, r := range results {
		switch {
		case r.Score > coreTier:
			pc.Core = append(pc.Core, r)
		case r.Score > supportingTier:
			pc.Supporting = append(pc.Supporting, r)
		default:
			pc.Background = append(pc.Background, r)
		}
	}
	sortByLevelFit(pc.Core, profile.Level)
	sortByLevelFit(pc.Supporting, profile.Level)
	sortByLevelFit(pc.Background, profile.Level)

	n := len(profile.SuccessfulExamples)
	if n > 2 {
		n = 2
	}
	pc.Examples = profile.SuccessfulExamples[len(profile.SuccessfulExamples)-n:]
	return pc
}

func sortByLevelFit(results []search.Result, level int) {
	sort.SliceStable(results, func(i, j int) bool {
		di := absInt(complexityEstimate(results[i].Chunk.Text) - level)
		dj := absInt(complexityEstimate(results[j].Chunk.Text) - level)
		return di < dj
	})
}

// complexityEstimate maps a chunk's text to the same 1..10 scale as user
// levels, from length, digit density, technical-token density and sentence
// count. Rough by construction; it only drives ordering, not filtering.
func complexityEstimate(text string) int {
	if text == "" {
		return 1
	}
	runes := []rune(text)

	score := 1.0
	score += float64(len(runes)) / 200.0

	digits := 0
	for _, r := range runes {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	score += float64(digits) / float64(len(runes)) * 20.0

	words := strings.Fields(text)
	technical := 0
	for _, w := range words {
		if len([]rune(w)) > 8 {
			technical++
		}
	}
	if len(words) > 0 {
		score += float64(technical) / float64(len(words)) * 10.0
	}

	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences > 5 {
		score++
	}

	if score > 10 {
		score = 10
	}
	return int(score)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
