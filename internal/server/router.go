package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/studyloop/tutor-backend/internal/handlers"
	"github.com/studyloop/tutor-backend/internal/platform/envutil"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

type Handlers struct {
	Ask      *handlers.AskHandler
	Search   *handlers.SearchHandler
	Lessons  *handlers.LessonHandler
	Insights *handlers.InsightsHandler
}

func NewRouter(db *gorm.DB, h Handlers, baseLog *logger.Logger, mode string) *gin.Engine {
	if mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := baseLog.With("component", "router")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(cors.New(corsConfig()))

	r.GET("/healthz", healthz(db))

	v1 := r.Group("/v1")
	{
		v1.POST("/ask", h.Ask.Ask)
		v1.POST("/quiz", h.Ask.Quiz)
		v1.GET("/search", h.Search.Search)
		v1.POST("/lessons", h.Lessons.Create)
		v1.GET("/lessons", h.Lessons.List)
		v1.POST("/lessons/:id/index", h.Lessons.Index)
		v1.GET("/users/:id/insights", h.Insights.Get)
	}
	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = []string{envutil.String("CORS_ALLOW_ORIGIN", "*")}
	if cfg.AllowOrigins[0] == "*" {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cfg
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
