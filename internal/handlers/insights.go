package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyloop/tutor-backend/internal/modules/learner"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

type InsightsHandler struct {
	learners *learner.Store
	log      *logger.Logger
}

func NewInsightsHandler(learners *learner.Store, baseLog *logger.Logger) *InsightsHandler {
	return &InsightsHandler{learners: learners, log: baseLog.With("handler", "Insights")}
}

func (h *InsightsHandler) Get(c *gin.Context) {
	userID := c.Param("id")
	ins, ok := h.learners.Insights(userID)
	if !ok {
		// Not enough history yet; an empty insight set is not an error.
		c.JSON(http.StatusOK, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "insights": ins})
}
