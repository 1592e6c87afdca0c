package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
	"github.com/examforge/exam-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(attemptService services.AttemptService, v *validator.Validator, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      v,
	}
}

// StartAttempt starts a new exam attempt
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting attempt")

	var req validator.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if errs := h.validator.Validate(&req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: errs.Error(),
		})
		return
	}

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), req.ExamID, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Attempt started successfully",
		Data:    attempt,
	})
}

// GetAttempt retrieves the caller's attempt with sections and answers
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), id, h.ownerScope(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: attempt})
}

// GetCurrentAttempt retrieves the caller's active attempt for an exam
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "exam_id")
	if examID == 0 {
		return
	}

	attempt, err := h.attemptService.GetCurrentAttempt(c.Request.Context(), examID, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: attempt})
}

// ListAttempts lists attempts with pagination and filters
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.AttemptFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		attemptStatus := models.AttemptStatus(status)
		filters.Status = &attemptStatus
	}
	if examID := h.parseIntQuery(c, "exam_id", 0); examID > 0 {
		id := uint(examID)
		filters.ExamID = &id
	}

	// Students only see their own attempts
	if scope := h.ownerScope(c); scope != "" {
		filters.UserID = &scope
	} else if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
		filters.UserID = &userID
	}

	attempts, total, err := h.attemptService.ListAttempts(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:  attempts,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// SaveAnswer upserts one answer within an attempt
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var req validator.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, h.getUserID(c), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer saved"})
}

// UpdateTime applies an elapsed-seconds delta and returns the remaining
// budget, auto-submitting when the budget crosses zero
func (h *AttemptHandler) UpdateTime(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var req validator.UpdateTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	remaining, err := h.attemptService.UpdateTime(c.Request.Context(), attemptID, h.getUserID(c), req.ElapsedSeconds)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: remaining})
}

// PauseAttempt freezes an in-progress attempt
func (h *AttemptHandler) PauseAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Pausing attempt", "attempt_id", attemptID)

	attempt, err := h.attemptService.PauseAttempt(c.Request.Context(), attemptID, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt paused",
		Data:    attempt,
	})
}

// ResumeAttempt reopens a paused attempt
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Resuming attempt", "attempt_id", attemptID)

	attempt, err := h.attemptService.ResumeAttempt(c.Request.Context(), attemptID, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt resumed",
		Data:    attempt,
	})
}

// SubmitAttempt submits an attempt with its final answers
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID)

	var req validator.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.attemptService.SubmitAttempt(c.Request.Context(), attemptID, h.getUserID(c), req.Answers)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt submitted successfully",
		Data:    result,
	})
}

// StartSection opens a section of the caller's attempt
func (h *AttemptHandler) StartSection(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	sectionID := h.parseIDParam(c, "section_id")
	if sectionID == 0 {
		return
	}

	if err := h.attemptService.StartSection(c.Request.Context(), attemptID, sectionID, h.getUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Section started"})
}

// SubmitSection closes a section of the caller's attempt
func (h *AttemptHandler) SubmitSection(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	sectionID := h.parseIDParam(c, "section_id")
	if sectionID == 0 {
		return
	}

	if err := h.attemptService.SubmitSection(c.Request.Context(), attemptID, sectionID, h.getUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Section submitted"})
}

// ownerScope returns the caller's user ID for student requests and the
// empty string for staff, who may see any attempt
func (h *AttemptHandler) ownerScope(c *gin.Context) string {
	if role, err := GetUserRoleFromContext(c); err == nil && role != models.RoleStudent {
		return ""
	}
	return h.getUserID(c)
}

// GetUserRoleFromContext extracts the user role from the Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", errNoRole
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", errNoRole
	}

	return role, nil
}
