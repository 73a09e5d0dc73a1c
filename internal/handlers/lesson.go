package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyloop/tutor-backend/internal/data/repos"
	"github.com/studyloop/tutor-backend/internal/modules/indexing"
	pkgerrors "github.com/studyloop/tutor-backend/internal/pkg/errors"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
	"github.com/studyloop/tutor-backend/internal/types"
)

// LessonHandler owns lesson CRUD and the re-index trigger. Indexing runs
// inline on the request; lessons are small enough that the embed loop
// finishes well within normal request budgets.
type LessonHandler struct {
	lessons     repos.LessonRepo
	chunks      repos.ContentChunkRepo
	indexer     *indexing.Indexer
	invalidator CacheInvalidator
	log         *logger.Logger
}

// CacheInvalidator drops derived caches after content changes. Stale
// cached answers would contradict freshly indexed material.
type CacheInvalidator interface {
	ClearCaches()
}

func NewLessonHandler(
	lessons repos.LessonRepo,
	chunks repos.ContentChunkRepo,
	indexer *indexing.Indexer,
	invalidator CacheInvalidator,
	baseLog *logger.Logger,
) *LessonHandler {
	return &LessonHandler{
		lessons:     lessons,
		chunks:      chunks,
		indexer:     indexer,
		invalidator: invalidator,
		log:         baseLog.With("handler", "Lesson"),
	}
}

type createLessonRequest struct {
	Title          string                  `json:"title" binding:"required"`
	Subject        string                  `json:"subject"`
	Grade          string                  `json:"grade"`
	Content        string                  `json:"content" binding:"required"`
	KeyPoints      []string                `json:"key_points"`
	Examples       []types.LessonExample   `json:"examples"`
	Exercises      []types.LessonExercise  `json:"exercises"`
	Misconceptions []string                `json:"misconceptions"`
	Objectives     []string                `json:"objectives"`
	SelfChecks     []string                `json:"self_checks"`
	VisualAids     []types.LessonVisualAid `json:"visual_aids"`
}

func (h *LessonHandler) Create(c *gin.Context) {
	var req createLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}

	lesson := &types.Lesson{
		Title:          req.Title,
		Subject:        req.Subject,
		Grade:          req.Grade,
		Content:        req.Content,
		KeyPoints:      toJSON(req.KeyPoints),
		Examples:       toJSON(req.Examples),
		Exercises:      toJSON(req.Exercises),
		Misconceptions: toJSON(req.Misconceptions),
		Objectives:     toJSON(req.Objectives),
		SelfChecks:     toJSON(req.SelfChecks),
		VisualAids:     toJSON(req.VisualAids),
	}
	created, err := h.lessons.Create(c.Request.Context(), nil, lesson)
	if err != nil {
		h.log.Error("lesson create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create lesson"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *LessonHandler) List(c *gin.Context) {
	lessons, err := h.lessons.List(c.Request.Context(), nil, 100, 0)
	if err != nil {
		h.log.Error("lesson list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list lessons"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}

// Index chunks, embeds and stores one lesson's content, replacing any
// previous index for it, then drops derived caches.
func (h *LessonHandler) Index(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
		return
	}

	if err := h.indexer.IndexSource(c.Request.Context(), id); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
			return
		}
		h.log.Error("indexing failed", "lessonID", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to index lesson"})
		return
	}
	h.invalidator.ClearCaches()

	count, err := h.chunks.CountByLessonID(c.Request.Context(), nil, id)
	if err != nil {
		count = 0
	}
	c.JSON(http.StatusOK, gin.H{"lesson_id": id, "chunks": count})
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
