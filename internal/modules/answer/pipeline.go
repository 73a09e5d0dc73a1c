package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	redisclient "github.com/studyloop/tutor-backend/internal/clients/redis"
	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/modules/search"
	"github.com/studyloop/tutor-backend/internal/observability"
	pkgerrors "github.com/studyloop/tutor-backend/internal/pkg/errors"
	"github.com/studyloop/tutor-backend/internal/platform/envutil"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

// Options carries the pipeline policy constants.
type Options struct {
	SearchLimit        int
	Threshold          float64
	AdmissionThreshold int
	SuccessThreshold   int
	ExampleThreshold   int
	CacheTTL           time.Duration
	CacheSize          int
	SweepInterval      time.Duration
	StrongModel        string
}

func DefaultOptions() Options {
	return Options{
		SearchLimit:        envutil.Int("ANSWER_SEARCH_LIMIT", 5),
		Threshold:          envutil.Float("ANSWER_SEARCH_THRESHOLD", 0.7),
		AdmissionThreshold: envutil.Int("ANSWER_CACHE_ADMISSION", 40),
		SuccessThreshold:   envutil.Int("ANSWER_SUCCESS_THRESHOLD", 50),
		ExampleThreshold:   envutil.Int("ANSWER_EXAMPLE_THRESHOLD", 70),
		CacheTTL:           envutil.Duration("ANSWER_CACHE_TTL", 30*time.Minute),
		CacheSize:          envutil.Int("ANSWER_CACHE_SIZE", 1000),
		SweepInterval:      envutil.Duration("ANSWER_CACHE_SWEEP_INTERVAL", 5*time.Minute),
		StrongModel:        envutil.String("OPENAI_STRONG_MODEL", "gpt-4o"),
	}
}

func (o Options) withDefaults() Options {
	if o.SearchLimit <= 0 {
		o.SearchLimit = 5
	}
	if o.Threshold <= 0 {
		o.Threshold = 0.7
	}
	if o.AdmissionThreshold <= 0 {
		o.AdmissionThreshold = 40
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 50
	}
	if o.ExampleThreshold <= 0 {
		o.ExampleThreshold = 70
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 30 * time.Minute
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 1000
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
	if o.StrongModel == "" {
		o.StrongModel = "gpt-4o"
	}
	return o
}

// AskInput is one student question, optionally scoped to a lesson and
// attributed to a user.
type AskInput struct {
	Question string
	LessonID *uuid.UUID
	UserID   string
}

// SourceRef identifies a retrieved chunk that grounded the answer.
type SourceRef struct {
	LessonID    uuid.UUID `json:"lesson_id"`
	Title       string    `json:"title"`
	SectionType string    `json:"section_type"`
	Score       float64   `json:"score"`
}

type AskOutput struct {
	Answer     string      `json:"answer"`
	Sources    []SourceRef `json:"sources"`
	Confidence int         `json:"confidence"`
	Cached     bool        `json:"cached"`
}

// Pipeline orchestrates retrieval, prompt assembly, completion generation,
// confidence scoring, caching and learner feedback for one question.
type Pipeline struct {
	search     *search.Engine
	lessons    repos.LessonRepo
	ai         openai.Client
	learners   *learner.Store
	mirror     redisclient.AnswerMirror
	cache      *answerCache
	classifier Classifier
	log        *logger.Logger
	opt        Options
	sf         singleflight.Group
	now        func() time.Time
}

func NewPipeline(
	eng *search.Engine,
	lessons repos.LessonRepo,
	ai openai.Client,
	learners *learner.Store,
	mirror redisclient.AnswerMirror,
	baseLog *logger.Logger,
	opt Options,
) *Pipeline {
	opt = opt.withDefaults()
	return &Pipeline{
		search:     eng,
		lessons:    lessons,
		ai:         ai,
		learners:   learners,
		mirror:     mirror,
		cache:      newAnswerCache(opt.CacheTTL, opt.CacheSize),
		classifier: DefaultClassifier(),
		log:        baseLog.With("service", "AnswerPipeline"),
		opt:        opt,
		now:        time.Now,
	}
}

// ClearCaches empties the answer cache. Intended for tests and the admin
// re-index path, where stale answers would contradict fresh content.
func (p *Pipeline) ClearCaches() {
	p.cache.Clear()
}

// RunCacheSweeper blocks until ctx is done, periodically evicting expired
// answers and trimming the cache to its bound.
func (p *Pipeline) RunCacheSweeper(ctx context.Context) {
	t := time.NewTicker(p.opt.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := p.cache.Sweep(); n > 0 {
				p.log.Debug("answer cache swept", "evicted", n)
			}
			p.search.PruneCaches()
		}
	}
}

// Answer runs the full question pipeline. Retrieval and generation faults
// degrade to templated answers; the only error surfaced is an empty
// question.
func (p *Pipeline) Answer(ctx context.Context, in AskInput) (AskOutput, error) {
	ctx, span := observability.Tracer().Start(ctx, "answer.ask")
	defer span.End()

	clean, screen := extractScreenContext(in.Question)
	if clean == "" {
		return AskOutput{}, fmt.Errorf("%w: empty question", pkgerrors.ErrInvalidArgument)
	}

	cls := p.classifier.Classify(clean)
	topic := primaryTopic(clean)
	profile := p.learners.Profile(in.UserID)
	key := cacheKey(clean, sourceScope(in.LessonID))

	if e, ok := p.cache.Get(key); ok {
		p.recordInteraction(in.UserID, topic, cls, e.Confidence)
		return AskOutput{Answer: e.Answer, Confidence: e.Confidence, Cached: true}, nil
	}
	if p.mirror != nil {
		if m, ok, err := p.mirror.Get(ctx, key); err == nil && ok {
			p.cache.Put(key, m.Answer, m.Confidence)
			p.recordInteraction(in.UserID, topic, cls, m.Confidence)
			return AskOutput{Answer: m.Answer, Confidence: m.Confidence, Cached: true}, nil
		}
	}

	// Identical in-flight questions share one generation. Coalesced callers
	// receive an answer shaped by the leader's profile; each still records
	// its own interaction below, same as a cache hit would.
	start := p.now()
	v, err, _ := p.sf.Do(key, func() (any, error) {
		return p.generate(ctx, in, clean, screen, cls, topic, profile, key), nil
	})
	if err != nil {
		return AskOutput{}, err
	}
	out := v.(AskOutput)
	p.recordInteractionTimed(in.UserID, topic, cls, out.Confidence, p.now().Sub(start))
	return out, nil
}

func (p *Pipeline) generate(
	ctx context.Context,
	in AskInput,
	clean, screen string,
	cls Classification,
	topic string,
	profile learner.Profile,
	key string,
) AskOutput {
	query := augmentQuery(clean, profile, p.learners.RecentTopics(in.UserID, 3))
	results := p.search.EnhancedSearch(ctx, in.LessonID, query, p.opt.SearchLimit, p.opt.Threshold)

	if len(results) == 0 {
		return AskOutput{Answer: fallbackAnswer(profile, topic), Confidence: 0}
	}

	conf := scoreConfidence(clean, results)
	pc := buildContext(results, profile)
	system := buildSystemPrompt(profile, cls, p.now())
	user := buildUserPrompt(pc, clean, screen)

	text, genErr := p.ai.GenerateText(ctx, system, user, generationOptions(cls, p.opt.StrongModel))
	if genErr != nil || strings.TrimSpace(text) == "" {
		p.log.Warn("completion failed, serving retrieval fallback", "error", genErr)
		return AskOutput{
			Answer:     generationFallback(results[0].Chunk.Text),
			Sources:    sourceRefs(results),
			Confidence: conf,
		}
	}

	if conf > p.opt.AdmissionThreshold {
		p.cache.Put(key, text, conf)
		if p.mirror != nil {
			if err := p.mirror.Put(ctx, key, redisclient.MirroredAnswer{
				Answer:     text,
				Confidence: conf,
				CachedAt:   p.now(),
			}); err != nil {
				p.log.Warn("answer mirror write failed", "error", err)
			}
		}
	}
	if conf >= p.opt.ExampleThreshold {
		p.learners.AddSuccessfulExample(in.UserID, snippet(text, 200))
	}

	return AskOutput{Answer: text, Sources: sourceRefs(results), Confidence: conf}
}

func (p *Pipeline) recordInteraction(userID, topic string, cls Classification, conf int) {
	p.recordInteractionTimed(userID, topic, cls, conf, 0)
}

// recordInteractionTimed treats an answer we are reasonably confident in
// as a successful interaction; low-confidence and fallback answers count
// against the topic.
func (p *Pipeline) recordInteractionTimed(userID, topic string, cls Classification, conf int, took time.Duration) {
	if userID == "" {
		return
	}
	p.learners.RecordInteraction(userID, learner.Interaction{
		Topic:          topic,
		QuestionType:   cls.Type,
		Difficulty:     cls.Difficulty,
		EmotionalState: emotionalState(cls.Tone),
		Success:        conf >= p.opt.SuccessThreshold,
		ResponseTime:   took,
	})
}

func emotionalState(tone string) string {
	switch tone {
	case ToneFrustrated:
		return "frustrated"
	case ToneUrgent:
		return "stressed"
	default:
		return "neutral"
	}
}

// primaryTopic is the first salient term of the question.
func primaryTopic(question string) string {
	if kws := search.Keywords(question); len(kws) > 0 {
		return kws[0]
	}
	return ""
}

// augmentQuery appends up to two personalization terms so retrieval leans
// toward material the student is working on or struggling with.
func augmentQuery(question string, profile learner.Profile, recent []string) string {
	qkw := map[string]bool{}
	for _, k := range search.Keywords(question) {
		qkw[k] = true
	}

	var extra []string
	add := func(term string) {
		if term == "" || qkw[term] || len(extra) >= 2 {
			return
		}
		for _, e := range extra {
			if e == term {
				return
			}
		}
		extra = append(extra, term)
	}
	for _, t := range recent {
		if profile.WeakAreas[t] {
			add(t)
		}
	}
	for _, t := range recent {
		add(t)
	}

	if len(extra) == 0 {
		return question
	}
	return question + " " + strings.Join(extra, " ")
}

func sourceScope(lessonID *uuid.UUID) string {
	if lessonID == nil {
		return "all"
	}
	return lessonID.String()
}

func sourceRefs(results []search.Result) []SourceRef {
	refs := make([]SourceRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, SourceRef{
			LessonID:    r.Source.LessonID,
			Title:       r.Source.Title,
			SectionType: r.Source.SectionType,
			Score:       r.Score,
		})
	}
	return refs
}

func snippet(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}
