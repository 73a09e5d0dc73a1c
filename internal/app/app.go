package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/studyloop/tutor-backend/internal/clients/openai"
	redisclient "github.com/studyloop/tutor-backend/internal/clients/redis"
	"github.com/studyloop/tutor-backend/internal/data/db"
	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/handlers"
	"github.com/studyloop/tutor-backend/internal/modules/answer"
	"github.com/studyloop/tutor-backend/internal/modules/indexing"
	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/modules/search"
	"github.com/studyloop/tutor-backend/internal/observability"
	"github.com/studyloop/tutor-backend/internal/platform/envutil"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
	"github.com/studyloop/tutor-backend/internal/server"
)

type Config struct {
	Mode        string
	Port        int
	ServiceName string
	Version     string
}

func LoadConfig() Config {
	return Config{
		Mode:        envutil.String("APP_MODE", "dev"),
		Port:        envutil.Int("PORT", 8080),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "tutor-backend"),
		Version:     envutil.String("APP_VERSION", "dev"),
	}
}

// cacheInvalidator drops every derived cache after content changes:
// cached answers and cached chunk embeddings both go stale together.
type cacheInvalidator struct {
	pipeline *answer.Pipeline
	engine   *search.Engine
}

func (ci cacheInvalidator) ClearCaches() {
	ci.pipeline.ClearCaches()
	ci.engine.ClearCaches()
}

// App is the composition root. Every process-wide resource (database,
// caches, learner state, background sweeper) is owned here and torn down
// in Close.
type App struct {
	cfg Config
	log *logger.Logger

	pg       *db.PostgresService
	mirror   redisclient.AnswerMirror
	pipeline *answer.Pipeline

	httpSrv      *http.Server
	sweepCancel  context.CancelFunc
	sweepDone    chan struct{}
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Mode,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	ai, err := openai.NewClient(log)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	mirror, err := redisclient.NewAnswerMirror(log)
	if err != nil {
		log.Warn("redis unavailable, running without answer mirror", "error", err)
		mirror = nil
	}

	lessons := repos.NewLessonRepo(pg.DB(), log)
	chunks := repos.NewContentChunkRepo(pg.DB(), log)

	engine := search.NewEngine(chunks, ai, log, search.DefaultOptions())
	indexer := indexing.NewIndexer(lessons, chunks, ai, log, indexing.DefaultOptions())
	learners := learner.NewStore(log, learner.DefaultOptions())
	pipeline := answer.NewPipeline(engine, lessons, ai, learners, mirror, log, answer.DefaultOptions())

	invalidator := cacheInvalidator{pipeline: pipeline, engine: engine}
	router := server.NewRouter(pg.DB(), server.Handlers{
		Ask:      handlers.NewAskHandler(pipeline, log),
		Search:   handlers.NewSearchHandler(engine, log),
		Lessons:  handlers.NewLessonHandler(lessons, chunks, indexer, invalidator, log),
		Insights: handlers.NewInsightsHandler(learners, log),
	}, log, cfg.Mode)

	return &App{
		cfg: cfg,
		log: log,
		pg:  pg,

		mirror:   mirror,
		pipeline: pipeline,
		httpSrv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		otelShutdown: otelShutdown,
	}, nil
}

// Run starts the cache sweeper and serves HTTP until the server is shut
// down via Close.
func (a *App) Run() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	a.sweepCancel = cancel
	a.sweepDone = make(chan struct{})
	go func() {
		defer close(a.sweepDone)
		a.pipeline.RunCacheSweeper(sweepCtx)
	}()

	a.log.Info("listening", "addr", a.httpSrv.Addr, "mode", a.cfg.Mode)
	if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.httpSrv.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if a.sweepCancel != nil {
		a.sweepCancel()
		<-a.sweepDone
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
