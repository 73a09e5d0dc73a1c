package learner

import "fmt"

const (
	MotivationLow    = "low"
	MotivationMedium = "medium"
	MotivationHigh   = "high"
)

// Insights returns the cached predictive insights for a user, or ok=false
// when the pattern buffer is still too small to say anything useful.
func (s *Store) Insights(userID string) (Insights, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.patterns[userID]) < s.opt.MinForInsights {
		return Insights{}, false
	}
	ins, ok := s.insights[userID]
	if !ok {
		ins = s.analyzeLocked(userID)
		s.insights[userID] = ins
	}
	return ins, true
}

// analyzeLocked recomputes insights from the current buffer. Caller holds
// the mutex.
func (s *Store) analyzeLocked(userID string) Insights {
	buf := s.patterns[userID]
	last := buf[len(buf)-1]

	ins := Insights{
		OptimalLearningTime: optimalHour(buf),
		MotivationLevel:     motivationLevel(buf),
	}

	if next := adjacentTopics(last.Topic); len(next) > 0 {
		ins.NextLikelyQuestion = fmt.Sprintf("How does %s relate to %s?", last.Topic, next[0])
		ins.SuggestedTopics = next
	} else if last.Topic != "" {
		ins.NextLikelyQuestion = fmt.Sprintf("Can you explain more about %s?", last.Topic)
		ins.SuggestedTopics = []string{last.Topic}
	}

	ins.PredictedDifficulties = hardTopics(buf)
	return ins
}

// optimalHour is the modal hour of the user's successful interactions, or
// -1 when none have succeeded yet.
func optimalHour(buf []Pattern) int {
	counts := map[int]int{}
	for _, p := range buf {
		if p.Success {
			counts[p.Timestamp.Hour()]++
		}
	}
	best, bestCount := -1, 0
	for h := 0; h < 24; h++ {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best
}

// hardTopics lists topics where the user failed a hard question.
func hardTopics(buf []Pattern) []string {
	var hard []string
	seen := map[string]bool{}
	for _, p := range buf {
		if p.Success || p.Difficulty != "hard" || p.Topic == "" || seen[p.Topic] {
			continue
		}
		seen[p.Topic] = true
		hard = append(hard, p.Topic)
	}
	return hard
}

// motivationLevel reads the emotional tone of the last five interactions.
func motivationLevel(buf []Pattern) string {
	start := len(buf) - 5
	if start < 0 {
		start = 0
	}
	frustrated, excited := 0, 0
	for _, p := range buf[start:] {
		switch p.EmotionalState {
		case "frustrated", "confused":
			frustrated++
		case "excited", "confident":
			excited++
		}
	}
	switch {
	case frustrated >= 3:
		return MotivationLow
	case excited >= 3:
		return MotivationHigh
	default:
		return MotivationMedium
	}
}
