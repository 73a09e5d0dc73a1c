package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyloop/tutor-backend/internal/modules/answer"
	pkgerrors "github.com/studyloop/tutor-backend/internal/pkg/errors"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

type AskHandler struct {
	pipeline *answer.Pipeline
	log      *logger.Logger
}

func NewAskHandler(pipeline *answer.Pipeline, baseLog *logger.Logger) *AskHandler {
	return &AskHandler{pipeline: pipeline, log: baseLog.With("handler", "Ask")}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	LessonID string `json:"lesson_id"`
	UserID   string `json:"user_id"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	in := answer.AskInput{Question: req.Question, UserID: req.UserID}
	if req.LessonID != "" {
		id, err := uuid.Parse(req.LessonID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lesson_id must be a uuid"})
			return
		}
		in.LessonID = &id
	}

	out, err := h.pipeline.Answer(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("answer pipeline failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer question"})
		return
	}
	c.JSON(http.StatusOK, out)
}

type quizRequest struct {
	LessonID string `json:"lesson_id" binding:"required"`
	Count    int    `json:"count"`
	UserID   string `json:"user_id"`
}

func (h *AskHandler) Quiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lesson_id is required"})
		return
	}
	id, err := uuid.Parse(req.LessonID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lesson_id must be a uuid"})
		return
	}

	questions, err := h.pipeline.GenerateQuestions(c.Request.Context(), id, req.Count, req.UserID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson not found"})
			return
		}
		h.log.Error("quiz generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate questions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
