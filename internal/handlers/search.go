package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/modules/search"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

type SearchHandler struct {
	engine *search.Engine
	log    *logger.Logger
}

func NewSearchHandler(engine *search.Engine, baseLog *logger.Logger) *SearchHandler {
	return &SearchHandler{engine: engine, log: baseLog.With("handler", "Search")}
}

type searchHit struct {
	Text    string            `json:"text"`
	Score   float64           `json:"score"`
	Source  search.SourceInfo `json:"source"`
	ChunkID string            `json:"chunk_id"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be in [1,50]"})
			return
		}
		limit = n
	}
	threshold := 0.7
	if v := c.Query("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be in [0,1]"})
			return
		}
		threshold = f
	}
	var lessonID *uuid.UUID
	if v := c.Query("lesson_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lesson_id must be a uuid"})
			return
		}
		lessonID = &id
	}

	results := h.engine.EnhancedSearch(c.Request.Context(), lessonID, query, limit, threshold)
	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			Text:    r.Chunk.Text,
			Score:   r.Score,
			Source:  r.Source,
			ChunkID: r.Chunk.ID.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}
