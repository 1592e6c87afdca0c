package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
	"github.com/examforge/exam-service/internal/validator"
)

type ScoringHandler struct {
	BaseHandler
	scoringService services.ScoringService
	validator      *validator.Validator
}

func NewScoringHandler(scoringService services.ScoringService, v *validator.Validator, logger utils.Logger) *ScoringHandler {
	return &ScoringHandler{
		BaseHandler:    NewBaseHandler(logger),
		scoringService: scoringService,
		validator:      v,
	}
}

// EvaluateAttempt grades a submitted attempt, optionally applying manual
// grades for descriptive answers. The body is optional: an evaluate call
// without manual grades may send nothing at all.
func (h *ScoringHandler) EvaluateAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Evaluating attempt", "attempt_id", attemptID)

	var req validator.EvaluateAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	gradedBy := h.getUserID(c)
	manualGrades := make([]services.ManualGrade, 0, len(req.ManualGrades))
	for _, grade := range req.ManualGrades {
		manualGrades = append(manualGrades, services.ManualGrade{
			QuestionID:   grade.QuestionID,
			IsCorrect:    grade.IsCorrect,
			MarksAwarded: grade.MarksAwarded,
			GradedBy:     gradedBy,
		})
	}

	score, err := h.scoringService.EvaluateAttempt(c.Request.Context(), attemptID, manualGrades)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt evaluated successfully",
		Data:    score,
	})
}

// RecomputeScore re-grades an attempt against the current answer keys
func (h *ScoringHandler) RecomputeScore(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Recomputing score", "attempt_id", attemptID)

	score, err := h.scoringService.RecomputeScore(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Score recomputed successfully",
		Data:    score,
	})
}

// GetResults returns the overall score with its section breakdown
func (h *ScoringHandler) GetResults(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	result, err := h.scoringService.GetResults(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: result})
}

// GetSectionScores returns the per-section breakdown of an attempt
func (h *ScoringHandler) GetSectionScores(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	sections, err := h.scoringService.GetSectionScores(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: sections})
}

// GetMyTopicScores returns the caller's latest per-topic snapshots
func (h *ScoringHandler) GetMyTopicScores(c *gin.Context) {
	topics, err := h.scoringService.GetTopicScores(c.Request.Context(), h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: topics})
}

// GetTopicScores returns per-topic snapshots for any user, for staff
func (h *ScoringHandler) GetTopicScores(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid user_id"})
		return
	}

	topics, err := h.scoringService.GetTopicScores(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: topics})
}
