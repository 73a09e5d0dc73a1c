package learner

import (
	"sync"
	"time"

	"github.com/studyloop/tutor-backend/internal/platform/envutil"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

// Profile is the per-student adaptive state used to personalize retrieval
// and prompting. Profiles are created lazily on first interaction and live
// for the process lifetime only; durability is an explicit non-goal.
type Profile struct {
	UserID             string
	Level              int // 1..10
	CorrectAnswers     int
	TotalAttempts      int
	WeakAreas          map[string]bool
	StrongAreas        map[string]bool
	LearningStyle      string
	CurrentMood        string
	RecentFailures     int
	SuccessfulExamples []string
	LastActive         time.Time
}

// Pattern is one immutable interaction record.
type Pattern struct {
	Timestamp      time.Time
	Topic          string
	QuestionType   string
	ResponseTime   time.Duration
	Success        bool
	Difficulty     string
	EmotionalState string
}

// Insights is the lightweight predictive model recomputed from a user's
// pattern buffer once it holds enough records.
type Insights struct {
	NextLikelyQuestion    string   `json:"next_likely_question"`
	SuggestedTopics       []string `json:"suggested_topics"`
	OptimalLearningTime   int      `json:"optimal_learning_time"` // hour of day, -1 when unknown
	PredictedDifficulties []string `json:"predicted_difficulties"`
	MotivationLevel       string   `json:"motivation_level"`
}

// Interaction is the graded outcome the answer pipeline reports.
type Interaction struct {
	Topic          string
	QuestionType   string
	Difficulty     string
	EmotionalState string
	Success        bool
	ResponseTime   time.Duration
}

// Options carries the prediction policy constants. These are best-effort
// heuristics; the thresholds are tunable, not contractual.
type Options struct {
	RingSize        int
	MinForInsights  int
	StrongStreak    int
	LevelUpEvery    int
	MaxLevel        int
	SuccessExamples int
}

func DefaultOptions() Options {
	return Options{
		RingSize:        envutil.Int("LEARNER_RING_SIZE", 100),
		MinForInsights:  envutil.Int("LEARNER_MIN_FOR_INSIGHTS", 5),
		StrongStreak:    envutil.Int("LEARNER_STRONG_STREAK", 3),
		LevelUpEvery:    5,
		MaxLevel:        10,
		SuccessExamples: 10,
	}
}

func (o Options) withDefaults() Options {
	if o.RingSize <= 0 {
		o.RingSize = 100
	}
	if o.MinForInsights <= 0 {
		o.MinForInsights = 5
	}
	if o.StrongStreak <= 0 {
		o.StrongStreak = 3
	}
	if o.LevelUpEvery <= 0 {
		o.LevelUpEvery = 5
	}
	if o.MaxLevel <= 0 {
		o.MaxLevel = 10
	}
	if o.SuccessExamples <= 0 {
		o.SuccessExamples = 10
	}
	return o
}

// Store owns every profile, pattern buffer and insight for the process.
// It is constructed once by the composition root and passed by reference;
// Clear exists for tests.
type Store struct {
	mu       sync.Mutex
	log      *logger.Logger
	opt      Options
	profiles map[string]*Profile
	patterns map[string][]Pattern
	insights map[string]Insights
}

func NewStore(baseLog *logger.Logger, opt Options) *Store {
	return &Store{
		log:      baseLog.With("service", "LearnerStore"),
		opt:      opt.withDefaults(),
		profiles: map[string]*Profile{},
		patterns: map[string][]Pattern{},
		insights: map[string]Insights{},
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = map[string]*Profile{}
	s.patterns = map[string][]Pattern{}
	s.insights = map[string]Insights{}
}

// Profile returns a copy of the user's profile, creating it lazily.
func (s *Store) Profile(userID string) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.profileLocked(userID))
}

func (s *Store) profileLocked(userID string) *Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &Profile{
			UserID:        userID,
			Level:         5,
			WeakAreas:     map[string]bool{},
			StrongAreas:   map[string]bool{},
			LearningStyle: "balanced",
			CurrentMood:   "neutral",
			LastActive:    time.Now(),
		}
		s.profiles[userID] = p
	}
	return p
}

// RecordInteraction appends a pattern to the user's bounded ring buffer and
// mutates the profile. The buffer never exceeds RingSize; the oldest record
// is dropped first.
func (s *Store) RecordInteraction(userID string, in Interaction) {
	if userID == "" {
		return
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(userID)
	p.TotalAttempts++
	p.LastActive = now
	if in.EmotionalState != "" {
		p.CurrentMood = in.EmotionalState
	}

	if in.Success {
		p.CorrectAnswers++
		p.RecentFailures = 0
		s.maybePromoteTopic(userID, p, in.Topic)
	} else {
		p.RecentFailures++
		if in.Topic != "" {
			p.WeakAreas[in.Topic] = true
			delete(p.StrongAreas, in.Topic)
		}
	}

	s.adjustLevel(p)

	buf := append(s.patterns[userID], Pattern{
		Timestamp:      now,
		Topic:          in.Topic,
		QuestionType:   in.QuestionType,
		ResponseTime:   in.ResponseTime,
		Success:        in.Success,
		Difficulty:     in.Difficulty,
		EmotionalState: in.EmotionalState,
	})
	if overflow := len(buf) - s.opt.RingSize; overflow > 0 {
		buf = buf[overflow:]
	}
	s.patterns[userID] = buf

	if len(buf) >= s.opt.MinForInsights {
		s.insights[userID] = s.analyzeLocked(userID)
	}
}

// maybePromoteTopic moves a topic from weak to strong after an unbroken
// streak of successes on it.
func (s *Store) maybePromoteTopic(userID string, p *Profile, topic string) {
	if topic == "" {
		return
	}
	streak := 0
	buf := s.patterns[userID]
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i].Topic != topic {
			continue
		}
		if !buf[i].Success {
			break
		}
		streak++
	}
	// The interaction being recorded counts as part of the streak.
	if streak+1 >= s.opt.StrongStreak {
		delete(p.WeakAreas, topic)
		p.StrongAreas[topic] = true
	}
}

// adjustLevel drifts the level with running accuracy, checked every few
// attempts so a single answer never whipsaws it.
func (s *Store) adjustLevel(p *Profile) {
	if p.TotalAttempts == 0 || p.TotalAttempts%s.opt.LevelUpEvery != 0 {
		return
	}
	accuracy := float64(p.CorrectAnswers) / float64(p.TotalAttempts)
	switch {
	case accuracy > 0.8 && p.Level < s.opt.MaxLevel:
		p.Level++
	case accuracy < 0.4 && p.Level > 1:
		p.Level--
	}
}

// AddSuccessfulExample remembers a worked explanation that landed well, for
// reuse in later prompts. Bounded; oldest dropped first.
func (s *Store) AddSuccessfulExample(userID, example string) {
	if userID == "" || example == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	p.SuccessfulExamples = append(p.SuccessfulExamples, example)
	if overflow := len(p.SuccessfulExamples) - s.opt.SuccessExamples; overflow > 0 {
		p.SuccessfulExamples = p.SuccessfulExamples[overflow:]
	}
}

// RecentTopics returns up to n distinct topics from newest to oldest.
func (s *Store) RecentTopics(userID string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.patterns[userID]
	var topics []string
	seen := map[string]bool{}
	for i := len(buf) - 1; i >= 0 && len(topics) < n; i-- {
		t := buf[i].Topic
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics
}

// PatternCount reports the current ring occupancy for a user.
func (s *Store) PatternCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns[userID])
}

func snapshot(p *Profile) Profile {
	out := *p
	out.WeakAreas = copySet(p.WeakAreas)
	out.StrongAreas = copySet(p.StrongAreas)
	out.SuccessfulExamples = append([]string(nil), p.SuccessfulExamples...)
	return out
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
